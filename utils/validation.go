package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MsgRequired = "This field is required."
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field names in errors come from
// the json tag so they line up with form field names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// ValidateStruct validates v and returns messages keyed by field name, or nil.
func ValidateStruct(v interface{}) (map[string][]string, error) {
	err := Validator().Struct(v)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], FieldMessage(fe))
	}
	return out, nil
}

// FieldMessage renders a validator error the way the recipe forms show it.
func FieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "max":
		return MaxLengthMessage(fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("Enter a valid value (%s).", fe.Tag())
	}
}

// MaxLengthMessage reports a string longer than limit.
func MaxLengthMessage(limit string, value interface{}) string {
	s, _ := value.(string)
	return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", limit, utf8.RuneCountInString(s))
}
