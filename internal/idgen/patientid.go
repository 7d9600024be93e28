package idgen

import (
	"fmt"
	"regexp"
)

var patientIDPattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ValidatePatientID checks that id is a valid operator-assigned patient ID.
// Rules: lowercase letters, digits, and dashes; must start with a letter and
// end with a letter or digit; max 64 characters.
func ValidatePatientID(id string) error {
	if len(id) > 64 {
		return fmt.Errorf("patient id too long (max 64 characters)")
	}
	if !patientIDPattern.MatchString(id) {
		return fmt.Errorf("patient id %q is invalid: must match %s", id, patientIDPattern.String())
	}
	return nil
}
