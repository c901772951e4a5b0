// Package validation provides structural validation for loaded regimens
// and screening of user-supplied request input.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nkiranraj/oncov3/interfaces"
	"github.com/nkiranraj/oncov3/regimenparser/entities"
	"github.com/nkiranraj/oncov3/resolver"
)

const maxInputLength = 100

// Pre-compiled regex pattern for performance optimization
// Compiled once at package initialization and reused for all validations
var (
	// Input validation: alphanumeric + accents + safe punctuation as seen
	// in regimen ids, drug names and indications
	inputRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.\+_'/àâäéèêëïîôöùûüÿç]+$`)

	// Dangerous patterns as strings (faster than regex for simple substring matching)
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "onload=", "onerror=",
		"eval(", "expression(", "url(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "--", "/*", "*/",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
	}
)

// RegimenValidatorImpl implements the interfaces.RegimenValidator interface
type RegimenValidatorImpl struct{}

// NewRegimenValidator creates a new regimen validator
func NewRegimenValidator() interfaces.RegimenValidator {
	return &RegimenValidatorImpl{}
}

// ValidateRegimen checks the structural invariants of a parsed regimen:
// positive cycle_length and cycles, classified drug shapes, and day values
// inside [1, cycle_length] for every course.
func (v *RegimenValidatorImpl) ValidateRegimen(r *entities.Regimen) error {
	if r == nil {
		return &entities.MalformedInputError{Reason: "regimen is nil"}
	}
	for _, course := range r.Courses {
		if err := resolver.ValidateCourse(course); err != nil {
			return err
		}
	}
	return nil
}

// ValidateInput validates user input strings such as search terms
func (v *RegimenValidatorImpl) ValidateInput(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return fmt.Errorf("input cannot be empty")
	}
	if len(trimmed) > maxInputLength {
		return fmt.Errorf("input too long: %d characters (max %d)", len(trimmed), maxInputLength)
	}

	lowered := strings.ToLower(trimmed)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowered, pattern) {
			return fmt.Errorf("input contains disallowed sequence")
		}
	}

	if !inputRegex.MatchString(trimmed) {
		return fmt.Errorf("input contains invalid characters")
	}
	return nil
}

// ValidateCycleNumber parses a cycle number and checks it addresses an
// existing cycle of a course with the given cycle count.
func (v *RegimenValidatorImpl) ValidateCycleNumber(input string, cycles int) (int, error) {
	cycle, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("cycle number must be an integer, got %q", input)
	}
	if cycle < 1 || cycle > cycles {
		return 0, &entities.InvalidRangeError{
			Record: "cycle",
			Field:  "cycle_number",
			Value:  cycle,
			Min:    1,
			Max:    cycles,
		}
	}
	return cycle, nil
}

// ValidateAnchorDate parses a timeline anchor in ISO date form
func (v *RegimenValidatorImpl) ValidateAnchorDate(input string) (time.Time, error) {
	anchor, err := time.Parse("2006-01-02", input)
	if err != nil {
		return time.Time{}, fmt.Errorf("anchor must be a date in YYYY-MM-DD form, got %q", input)
	}
	return anchor, nil
}
