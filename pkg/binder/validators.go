package binder

import (
	"github.com/go-playground/validator/v10"
)

// maxUnixTime is 9999-12-31T23:59:59Z.
const maxUnixTime = 253402300799

// unixtimeValidator accepts unix timestamps in seconds between the epoch and
// the end of year 9999. Nil pointers pass so optional fields can be omitted.
func unixtimeValidator(fl validator.FieldLevel) bool {
	v := fl.Field().Int()
	return v >= 0 && v <= maxUnixTime
}
