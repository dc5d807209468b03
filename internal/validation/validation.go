// Package validation checks company submissions, customer registrations and
// chat messages before they reach storage or the generator.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// Field limits, in runes.
const (
	MaxNameLength     = 256
	MaxEmailLength    = 320
	MaxPitchLength    = 20000
	MaxQuestionLength = 1000
	MaxMessageLength  = 10000
)

// Rule names reported per field.
const (
	RuleRequired     = "required"
	RuleFormat       = "invalid_format"
	RuleTooLong      = "too_long"
	RuleControlChars = "control_characters"
)

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + " " + e.Message
}

// Errors lists every failed rule of a request in the order checked.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// On returns the errors of one field.
func (e Errors) On(field string) Errors {
	var out Errors
	for _, fe := range e {
		if fe.Field == field {
			out = append(out, fe)
		}
	}
	return out
}

// Validator collects field errors. Each check returns whether it passed so
// dependent checks can be skipped.
type Validator struct {
	errs Errors
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

func (v *Validator) fail(field, rule, message string) bool {
	v.errs = append(v.errs, FieldError{Field: field, Rule: rule, Message: message})
	return false
}

// Errors returns the collected errors.
func (v *Validator) Errors() Errors {
	return v.errs
}

// Err returns nil when every check passed. A lone missing field reports
// MISSING_FIELD and a lone malformed one INVALID_FORMAT; everything else is
// VALIDATION_ERROR. The field errors stay reachable with errors.As.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	code := apperrors.CodeValidation
	if len(v.errs) == 1 {
		switch v.errs[0].Rule {
		case RuleRequired:
			code = apperrors.CodeMissingField
		case RuleFormat:
			code = apperrors.CodeInvalidFormat
		}
	}
	return apperrors.Wrap(v.errs, "", code, v.errs.Error())
}

// Required fails on empty or whitespace-only values.
func (v *Validator) Required(field, value string) bool {
	if strings.TrimSpace(value) != "" {
		return true
	}
	return v.fail(field, RuleRequired, "is required")
}

// MaxLength fails when value has more than limit runes.
func (v *Validator) MaxLength(field, value string, limit int) bool {
	if utf8.RuneCountInString(value) <= limit {
		return true
	}
	return v.fail(field, RuleTooLong, fmt.Sprintf("must be at most %d characters", limit))
}

// NoControlChars fails on control characters other than line breaks and tabs.
func (v *Validator) NoControlChars(field, value string) bool {
	if strings.IndexFunc(value, isForbiddenControl) < 0 {
		return true
	}
	return v.fail(field, RuleControlChars, "contains invalid control characters")
}

// emailPattern is loose on purpose: local@host.tld without whitespace.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email fails on a non-empty value that does not look like an address.
func (v *Validator) Email(field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || emailPattern.MatchString(value) {
		return true
	}
	return v.fail(field, RuleFormat, "must be a valid email address")
}

// UUID fails on a non-empty value that is not a hyphenated UUID.
func (v *Validator) UUID(field, value string) bool {
	if value == "" {
		return true
	}
	if _, err := uuid.Parse(value); err == nil && len(value) == 36 {
		return true
	}
	return v.fail(field, RuleFormat, "must be a valid UUID")
}

// Text applies the rules shared by every free-text field.
func (v *Validator) Text(field, value string, limit int) bool {
	return v.Required(field, value) &&
		v.MaxLength(field, value, limit) &&
		v.NoControlChars(field, value)
}

// Company validates a company submission.
func Company(name, email, pitch string, questions []string) error {
	v := New()
	v.Text("name", name, MaxNameLength)
	if v.Text("email", email, MaxEmailLength) {
		v.Email("email", email)
	}
	v.Text("pitch", pitch, MaxPitchLength)
	if len(questions) == 0 {
		v.fail("questions", RuleRequired, "must contain at least one entry")
	}
	for i, q := range questions {
		v.Text(fmt.Sprintf("questions[%d]", i), q, MaxQuestionLength)
	}
	return v.Err()
}

// Customer validates a customer registration.
func Customer(name, email, companyID string) error {
	v := New()
	v.Text("name", name, MaxNameLength)
	if v.Text("email", email, MaxEmailLength) {
		v.Email("email", email)
	}
	if v.Required("companyId", companyID) {
		v.UUID("companyId", companyID)
	}
	return v.Err()
}

// Message validates a chat message sent by a customer.
func Message(text string) error {
	v := New()
	v.Text("message", text, MaxMessageLength)
	return v.Err()
}

// SanitizeString drops NUL bytes, turns other forbidden control characters
// into spaces and trims the result.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == 0:
			return -1
		case isForbiddenControl(r):
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func isForbiddenControl(r rune) bool {
	return r < 32 && unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t'
}
