package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// v is the package-level singleton validator. Custom rules are registered in
// init before the first call to Struct.
var v = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report fields by their wire name so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form", "param", "query"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRE.MatchString(fl.Field().String())
	})
}

// Struct validates the given struct using its validate tags.
// All field errors are joined into one message separated by "; ".
func Struct(s any) error {
	if err := v.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, message(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "len":
		return fmt.Sprintf("%q must be exactly %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%q must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q must be at most %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%q must contain only digits", field)
	case "username":
		return fmt.Sprintf("%q may only contain letters, numbers and underscores", field)
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("field '%s' failed '%s'", field, fe.Tag())
	}
}
