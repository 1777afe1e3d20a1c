package validation

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

// "HH:MM" 24-hour clock, optional ":SS"
var clockRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)

var (
	defaultValidate *validator.Validate
	defaultOnce     sync.Once
)

// New returns a validator with the custom scheduling tags registered.
func New() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// Default is a shared validator for handlers that do not get one injected.
func Default() *validator.Validate {
	defaultOnce.Do(func() {
		defaultValidate = New()
	})
	return defaultValidate
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("clock", ValidClock)
}

// ValidClock validates a time of day such as "09:30"
func ValidClock(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Optional, use required if needed
	}
	return clockRegex.MatchString(val)
}
