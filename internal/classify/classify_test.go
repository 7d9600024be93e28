package classify

import (
	"context"
	"testing"

	"github.com/ChristChad-mv/careflow-sub000/internal/provider"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in    string
		tier  Tier
		brief string
	}{
		{"RED|chest pain reported", TierRed, "chest pain reported"},
		{"green | stable, no complaints", TierGreen, "stable, no complaints"},
		{"YELLOW|", TierYellow, "YELLOW"},
		{"RED", TierRed, "RED"},
		{"the patient seems fine", TierYellow, "the patient seems fine"},
		{"GREEN|ok\nextra commentary", TierGreen, "ok"},
	}
	for _, tc := range cases {
		got := Parse(tc.in)
		if got.Tier != tc.tier || got.Brief != tc.brief {
			t.Fatalf("Parse(%q) = %+v, want tier=%s brief=%q", tc.in, got, tc.tier, tc.brief)
		}
	}
}

func TestTierPriority(t *testing.T) {
	if TierGreen.Priority() != "safe" || TierYellow.Priority() != "warning" || TierRed.Priority() != "critical" {
		t.Fatalf("priority mapping broken")
	}
}

func TestLLMClassify(t *testing.T) {
	gen := &provider.Fake{Chunks: []provider.Chunk{{Text: "RED|shortness "}, {Text: "of breath"}}}
	c := &LLM{Generator: gen}
	got, err := c.Classify(context.Background(), "patient reports shortness of breath")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Tier != TierRed || got.Brief != "shortness of breath" {
		t.Fatalf("unexpected result %+v", got)
	}
	if len(gen.Calls) != 1 {
		t.Fatalf("expected one provider call, got %d", len(gen.Calls))
	}
}
