package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxNameLength is the longest name a length-prefixed string can hold
	MaxNameLength = synthdef.MaxNameLength

	// identifierPattern matches node ids and control names usable in references
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)
)

func init() {
	validate = validator.New()

	// Report fields by their document keys
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	mustRegister("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	mustRegister("rate", func(fl validator.FieldLevel) bool {
		_, err := ugen.ParseRate(fl.Field().String())
		return err == nil
	})
	mustRegister("pstring", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxNameLength
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Struct validates v using its validate tags. Besides the built-in tags,
// "identifier", "rate" and "pstring" are available.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateIdentifier checks a node id or control name
func ValidateIdentifier(id string) error {
	if id == "" {
		return errors.New("identifier cannot be empty")
	}
	if len(id) > MaxNameLength {
		return fmt.Errorf("identifier '%s' exceeds maximum length of %d bytes", id, MaxNameLength)
	}
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("identifier '%s' is invalid (must start with letter or underscore, followed by alphanumeric, underscore, dot or dash)", id)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "identifier":
			return fmt.Errorf("%s: '%v' is not a valid identifier", field, e.Value())
		case "rate":
			return fmt.Errorf("%s: '%v' is not a rate", field, e.Value())
		case "pstring":
			return fmt.Errorf("%s: exceeds %d bytes", field, MaxNameLength)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
