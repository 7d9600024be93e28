package armor

import (
	"errors"
	"testing"
)

func TestDecideFailsClosed(t *testing.T) {
	cases := []struct {
		name    string
		verdict Verdict
		err     error
		allow   bool
	}{
		{"clean", Verdict{}, nil, true},
		{"blocked", Verdict{Blocked: true, Reason: "pii"}, nil, false},
		{"scanner error", Verdict{}, errors.New("armor unreachable"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.verdict, tc.err)
			if d.Allow != tc.allow {
				t.Fatalf("expected allow=%v, got %+v", tc.allow, d)
			}
		})
	}
}
