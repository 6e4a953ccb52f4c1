package pkg

import (
	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole process.
var validate = validator.New()

func IsValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
