// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package form provides declarative validation for HTML form submissions.
//
// A form is described as data: an ordered list of fields, each carrying
// an ordered list of rules. Validation walks the rule table and collects
// per-field messages; invalid input is a normal outcome, never an error
// return. Rules are pure - they see only the submitted values, never a
// store or the network.
package form

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// emailRegex accepts the usual mailbox@host shape. It deliberately stays
// loose; the definitive check is the confirmation mail round-trip.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Values holds a raw submission as field name to submitted string.
type Values map[string]string

// Bool interprets a submitted value as a checkbox state. Browsers send
// "on" for a checked box and omit the field entirely otherwise.
func (v Values) Bool(name string) bool {
	switch v[name] {
	case "on", "true", "1", "y", "yes":
		return true
	default:
		return false
	}
}

// Errors maps field names to validation messages.
type Errors map[string][]string

// Has reports whether any field failed validation.
func (e Errors) Has() bool {
	return len(e) > 0
}

// First returns the first message for a field, or "".
func (e Errors) First(name string) string {
	if msgs := e[name]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Add appends a message for a field.
func (e Errors) Add(name, message string) {
	e[name] = append(e[name], message)
}

// Rule is a single validation check with its user-facing message.
// Check receives the field's value and the whole submission, so rules
// like "must match password" can see their sibling field.
type Rule struct {
	Check   func(value string, values Values) bool
	Message string
}

// Field is one entry in a form's rule table. Rules run in order; the
// first failure wins for the field. Optional fields skip their rules
// when the submission omits them or leaves them empty.
type Field struct {
	Name     string
	Optional bool
	Rules    []Rule
}

// Form is an ordered rule table for one submission type.
type Form struct {
	Fields []Field
}

// Validate runs the rule table against a submission. It returns an
// empty Errors map when the submission is valid.
func (f Form) Validate(values Values) Errors {
	errs := make(Errors)
	for _, field := range f.Fields {
		value := values[field.Name]
		if field.Optional && value == "" {
			continue
		}
		for _, rule := range field.Rules {
			if !rule.Check(value, values) {
				errs.Add(field.Name, rule.Message)
				break
			}
		}
	}
	return errs
}

// Required fails on an empty value.
func Required() Rule {
	return Rule{
		Check:   func(value string, _ Values) bool { return value != "" },
		Message: "This field is required.",
	}
}

// Length bounds the value's length in runes, inclusive.
func Length(min, max int) Rule {
	return Rule{
		Check: func(value string, _ Values) bool {
			n := utf8.RuneCountInString(value)
			return n >= min && n <= max
		},
		Message: fmt.Sprintf("Must be between %d and %d characters long.", min, max),
	}
}

// MaxLength bounds the value's length in runes from above.
func MaxLength(max int) Rule {
	return Rule{
		Check: func(value string, _ Values) bool {
			return utf8.RuneCountInString(value) <= max
		},
		Message: fmt.Sprintf("Must be at most %d characters long.", max),
	}
}

// Email requires the value to look like an email address.
func Email() Rule {
	return Rule{
		Check:   func(value string, _ Values) bool { return emailRegex.MatchString(value) },
		Message: "Invalid email address.",
	}
}

// EqualTo requires the value to equal another field's value.
func EqualTo(other string) Rule {
	return Rule{
		Check:   func(value string, values Values) bool { return value == values[other] },
		Message: "Passwords must match.",
	}
}
