// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

// Package validation wraps go-playground/validator v10 behind a singleton.
//
// Field names in errors are taken from the `json` tag so that messages refer
// to wire names (sender_user_id, receiver_username) rather than Go names.
// The custom "nickname" tag accepts 1-64 printable characters without
// whitespace, matching the user directory's nickname rules.
//
//	type join struct {
//	    Username string `json:"username" validate:"required,nickname"`
//	}
//
//	if verr := validation.ValidateStruct(&msg); verr != nil {
//	    return verr.Fields()
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Code is the error code reported for any failed validation.
const Code = "VALIDATION_FAILED"

const maxNicknameLen = 64

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single failed rule.
type FieldError struct {
	field   string
	tag     string
	param   string
	message string
}

// Field returns the wire name of the field.
func (e *FieldError) Field() string { return e.field }

// Tag returns the rule that failed.
func (e *FieldError) Tag() string { return e.tag }

// Param returns the rule parameter, e.g. "0" for gt=0.
func (e *FieldError) Param() string { return e.param }

func (e *FieldError) Error() string { return e.message }

// RequestValidationError collects every failed rule for one value.
type RequestValidationError struct {
	errors []FieldError
}

// Errors returns the individual failures.
func (ve *RequestValidationError) Errors() []FieldError {
	return ve.errors
}

// Fields returns the wire names of the failing fields in declaration order.
func (ve *RequestValidationError) Fields() []string {
	out := make([]string, len(ve.errors))
	for i := range ve.errors {
		out[i] = ve.errors[i].field
	}
	return out
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.errors))
	for i := range ve.errors {
		msgs[i] = ve.errors[i].message
	}
	return strings.Join(msgs, "; ")
}

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		if err := validate.RegisterValidation("nickname", validNickname); err != nil {
			panic(fmt.Sprintf("validation: register nickname: %v", err))
		}
	})
	return validate
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func validNickname(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > maxNicknameLen {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ValidateStruct validates s and returns nil or a *RequestValidationError.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{errors: []FieldError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	out := make([]FieldError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			message: translateError(fe),
		}
	}
	return &RequestValidationError{errors: out}
}

// ValidateVar validates a single value against tag, naming it field in errors.
func ValidateVar(field string, value interface{}, tag string) *RequestValidationError {
	err := GetValidator().Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &RequestValidationError{errors: []FieldError{{field: field, tag: "unknown", message: err.Error()}}}
	}
	fe := fieldErrs[0]
	return &RequestValidationError{errors: []FieldError{{
		field:   field,
		tag:     fe.Tag(),
		param:   fe.Param(),
		message: render(field, fe.Tag(), fe.Param(), fe.Kind() == reflect.String),
	}}}
}

var simpleMessages = map[string]string{
	"required": "%s is required",
	"nickname": "%s must be 1-64 printable characters without spaces",
	"numeric":  "%s must be numeric",
	"number":   "%s must be a whole number",
}

var paramMessages = map[string]string{
	"gt":    "%s must be greater than %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"oneof": "%s must be one of: %s",
}

func translateError(fe validator.FieldError) string {
	return render(fe.Field(), fe.Tag(), fe.Param(), fe.Kind() == reflect.String)
}

func render(field, tag, param string, isString bool) string {
	if tmpl, ok := simpleMessages[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := paramMessages[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}
	switch tag {
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}
