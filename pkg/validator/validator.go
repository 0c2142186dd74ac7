// Package validator validates structs with go-playground/validator tags and
// reports failures keyed by JSON field name.
package validator

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"unicode"

	playground "github.com/go-playground/validator/v10"
)

// Errors maps a field name to its messages.
type Errors url.Values

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if msgs := e[f]; len(msgs) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", f, msgs[0]))
		}
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e Errors) Add(field, message string) { url.Values(e).Add(field, message) }

func (e Errors) Get(field string) string { return url.Values(e).Get(field) }

func (e Errors) Has(field string) bool { return len(e[field]) > 0 }

var std = New()

// New returns a validator with the project's custom rules registered.
func New() *playground.Validate {
	v := playground.New(playground.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl playground.FieldLevel) bool {
		return PasswordStrong(fl.Field().String())
	})
	return v
}

// Struct validates s. It returns Errors on failure or nil.
func Struct(s any) error {
	return convert(std.Struct(s))
}

// Var validates a single value against tag and reports it under field.
func Var(field string, value any, tag string) error {
	err := std.Var(value, tag)
	if err == nil {
		return nil
	}
	var ves playground.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := Errors{}
	for _, fe := range ves {
		out.Add(field, message(fe))
	}
	return out
}

// PasswordStrong requires 8 to 128 characters from at least two classes:
// lower case, upper case, digits, symbols.
func PasswordStrong(p string) bool {
	n := len([]rune(p))
	if n < 8 || n > 128 {
		return false
	}
	var lower, upper, digit, other bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	classes := 0
	for _, ok := range []bool{lower, upper, digit, other} {
		if ok {
			classes++
		}
	}
	return classes >= 2
}

func convert(err error) error {
	if err == nil {
		return nil
	}
	var ves playground.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := Errors{}
	for _, fe := range ves {
		out.Add(fieldPath(fe), message(fe))
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe playground.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "fqdn", "hostname", "hostname_rfc1123":
		return "must be a valid domain name"
	case "uuid", "uuid4":
		return "must be a valid identifier"
	case "password":
		return "must be 8-128 characters and mix at least two of: lower case, upper case, digits, symbols"
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		switch fe.Kind() {
		case reflect.Slice, reflect.Map:
			return fmt.Sprintf("must contain %s %s items", bound, fe.Param())
		case reflect.String:
			return fmt.Sprintf("must be %s %s characters", bound, fe.Param())
		}
		return fmt.Sprintf("must be %s %s", bound, fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "dive":
		return "contains an invalid item"
	}
	return "is invalid"
}
