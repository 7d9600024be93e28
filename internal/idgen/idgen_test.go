package idgen

import "testing"

func TestNewDistinct(t *testing.T) {
	a := New()
	b := New()
	if a == "" || b == "" {
		t.Fatalf("expected non-empty ids")
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
}

func TestEntryOrdering(t *testing.T) {
	a := Entry()
	b := Entry()
	if !(a < b) {
		t.Fatalf("expected ulids to sort by creation order: %q !< %q", a, b)
	}
}

func TestValidatePatientID(t *testing.T) {
	valid := []string{"maria", "patient-12", "a"}
	for _, id := range valid {
		if err := ValidatePatientID(id); err != nil {
			t.Fatalf("expected %q to be valid: %v", id, err)
		}
	}
	invalid := []string{"", "Maria", "1abc", "a-", "a_b", "a b"}
	for _, id := range invalid {
		if err := ValidatePatientID(id); err == nil {
			t.Fatalf("expected %q to be invalid", id)
		}
	}
}
