// Copyright (c) 2016 Yandex LLC. All rights reserved.
// Author: Vladimir Skipor <skipor@yandex-team.ru>

package config

import (
	"github.com/pkg/errors"
	validator "gopkg.in/bluesuncorp/validator.v9"
)

var validations = []struct {
	key string
	val validator.Func
}{
	{"min-time", MinTimeValidation},
	{"max-time", MaxTimeValidation},
	{"min-size", MinSizeValidation},
	{"max-size", MaxSizeValidation},
	{"oneof", OneOfValidation},
}

var stringValidations = []struct {
	key string
	val StringValidation
}{
	{"endpoint", EndpointStringValidation},
}

var defaultValidator = newValidator()

// Validate runs struct-tag validation (the "validate" tag) over
// value, which must be a struct or struct pointer.
func Validate(value interface{}) error {
	return errors.WithStack(defaultValidator.Struct(value))
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.SetTagName("validate")
	for _, val := range validations {
		_ = validate.RegisterValidation(val.key, val.val)
	}
	for _, val := range stringValidations {
		_ = validate.RegisterValidation(val.key, StringToAbstractValidation(val.val))
	}
	return validate
}

type StringValidation func(value string) bool

// StringToAbstractValidation wraps a StringValidation into a
// validator.Func for registration.
func StringToAbstractValidation(sv StringValidation) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if strVal, ok := fl.Field().Interface().(string); ok {
			return sv(strVal)
		}
		return false
	}
}
