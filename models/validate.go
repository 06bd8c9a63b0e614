package models

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Validate checks `validate` struct tags. Besides the built-in rules it
// knows notblank and one tag per enum: role, department, category,
// priority and status. The enum tags accept the empty string; pair them
// with required where a value must be present.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	must(v.RegisterValidation("notblank", validators.NotBlank))
	must(v.RegisterValidation("role", enum(func(s string) bool { return Role(s).Valid() })))
	must(v.RegisterValidation("department", enum(func(s string) bool { return Department(s).Valid() })))
	must(v.RegisterValidation("category", enum(func(s string) bool { return IssueCategory(s).Valid() })))
	must(v.RegisterValidation("priority", enum(func(s string) bool { return IssuePriority(s).Valid() })))
	must(v.RegisterValidation("status", enum(func(s string) bool { return IssueStatus(s).Valid() })))
	return v
}

func enum(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || valid(s)
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
