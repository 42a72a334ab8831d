package api

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"dental-registration/catalog"

	"github.com/go-playground/validator/v10"
)

var (
	personNamePattern  = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑüÜ\s]+$`)
	mobilePhonePattern = regexp.MustCompile(`^\+569\d{8}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]func(string) bool{
		"person_name":  personNamePattern.MatchString,
		"mobile_phone": mobilePhonePattern.MatchString,
		"career_year":  catalog.CareerYears.Contains,
		"city":         catalog.Cities.Contains,
	}
	for tag, match := range rules {
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return match(fl.Field().String())
		})
	}

	return v
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validationDetails turns validator errors into per-field messages.
func validationDetails(err error) map[string]any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]any{"errors": []fieldError{{Message: err.Error()}}}
	}

	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return map[string]any{"errors": out}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min", "max":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	case "person_name":
		return "may only contain letters and spaces"
	case "mobile_phone":
		return "must have the format +569XXXXXXXX"
	case "career_year":
		return "must be one of " + catalog.CareerYears.String()
	case "city":
		return "must be one of " + catalog.Cities.String()
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
