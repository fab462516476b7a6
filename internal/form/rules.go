// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package form

// Field length bounds shared with the storage schema.
const (
	MinNameLength     = 4
	MaxNameLength     = 20
	MaxEmailLength    = 50
	MinPasswordLength = 8
	MaxPasswordLength = 80
)

// Registration is the rule table for the registration submission.
func Registration() Form {
	return Form{
		Fields: []Field{
			{
				Name: "first_name",
				Rules: []Rule{
					Required(),
					Length(MinNameLength, MaxNameLength),
				},
			},
			{
				Name: "surname",
				Rules: []Rule{
					Required(),
					Length(MinNameLength, MaxNameLength),
				},
			},
			{
				Name: "email",
				Rules: []Rule{
					Required(),
					Email(),
					MaxLength(MaxEmailLength),
				},
			},
			{
				Name: "password",
				Rules: []Rule{
					Required(),
					Length(MinPasswordLength, MaxPasswordLength),
				},
			},
			{
				Name: "password2",
				Rules: []Rule{
					Required(),
					EqualTo("password"),
					Length(MinPasswordLength, MaxPasswordLength),
				},
			},
		},
	}
}

// Login is the rule table for the login submission. The credentials
// themselves are checked by the auth service, not here.
func Login() Form {
	return Form{
		Fields: []Field{
			{
				Name: "email",
				Rules: []Rule{
					Required(),
					Email(),
				},
			},
			{
				Name: "password",
				Rules: []Rule{
					Required(),
				},
			},
			{
				Name:     "remember",
				Optional: true,
			},
		},
	}
}
