package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/c2h5oh/datasize"
	validator "gopkg.in/bluesuncorp/validator.v9"
)

// OneOfValidation implements the "oneof" tag: the field's value,
// rendered with fmt.Sprint, must match one of the space-separated
// values in the tag param. gopkg.in/bluesuncorp/validator.v9 predates
// upstream go-playground/validator's built-in "oneof", so it is
// registered here instead.
func OneOfValidation(fl validator.FieldLevel) bool {
	field := fmt.Sprint(fl.Field().Interface())
	for _, opt := range strings.Fields(fl.Param()) {
		if opt == field {
			return true
		}
	}
	return false
}

func MinTimeValidation(fl validator.FieldLevel) bool {
	t, min, ok := getTimeForValidation(fl.Field().Interface(), fl.Param())
	return ok && min <= t
}

func MaxTimeValidation(fl validator.FieldLevel) bool {
	t, max, ok := getTimeForValidation(fl.Field().Interface(), fl.Param())
	return ok && t <= max
}

func getTimeForValidation(v interface{}, param string) (actual time.Duration, check time.Duration, ok bool) {
	check, err := time.ParseDuration(param)
	if err != nil {
		return
	}
	actual, ok = v.(time.Duration)
	return
}

func MinSizeValidation(fl validator.FieldLevel) bool {
	t, min, ok := getSizeForValidation(fl.Field().Interface(), fl.Param())
	return ok && min <= t
}

func MaxSizeValidation(fl validator.FieldLevel) bool {
	t, max, ok := getSizeForValidation(fl.Field().Interface(), fl.Param())
	return ok && t <= max
}

func getSizeForValidation(v interface{}, param string) (actual, check datasize.ByteSize, ok bool) {
	err := check.UnmarshalText([]byte(param))
	if err != nil {
		return
	}
	actual, ok = v.(datasize.ByteSize)
	return
}

// EndpointStringValidation checks "host:port" or ":port".
func EndpointStringValidation(value string) bool {
	host, port, err := net.SplitHostPort(value)
	return err == nil &&
		(host == "" || govalidator.IsHost(host)) &&
		govalidator.IsPort(port)
}
