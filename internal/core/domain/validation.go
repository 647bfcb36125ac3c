package domain

import (
	"fmt"
	"strings"
)

// ValidateInput checks the caller-supplied assessment input. Name is the
// only required field; vendor name and URL are hints for entity resolution.
func ValidateInput(input AssessmentInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("assessment input: name is required")
	}
	if len(input.Name) > 255 {
		return fmt.Errorf("assessment input: name exceeds 255 characters")
	}
	return nil
}

// ValidType reports whether the assessment type is one of the known values.
func ValidType(t AssessmentType) bool {
	switch t {
	case TypeSmall, TypeMedium, TypeLarge:
		return true
	}
	return false
}
