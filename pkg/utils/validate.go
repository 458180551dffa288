package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"socialposts/pkg/model"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	emailRegex      = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)
	alphaSpaceRegex = regexp.MustCompile(`^[A-Za-z ]+$`)
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// report fields by their json name
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterValidation("alphaspace", func(fl validator.FieldLevel) bool {
			return alphaSpaceRegex.MatchString(fl.Field().String())
		})
		validate.RegisterValidation("emailpattern", func(fl validator.FieldLevel) bool {
			return emailRegex.MatchString(fl.Field().String())
		})
	})
	return validate
}

func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

func IsAlphaSpace(s string) bool {
	return alphaSpaceRegex.MatchString(s)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "alphaspace":
		return fmt.Sprintf("%s must only contain letters and spaces", fe.Field())
	case "emailpattern":
		return fmt.Sprintf("%s is not a valid email", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}
}

// Validate checks the validate tags of input and reports the first failing field as a validation error
func Validate(input any) error {
	err := validatorInstance().Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		return model.Validation("%s", describe(fieldErrors[0]))
	}
	return model.Validation("%s", err.Error())
}

// ParseId trims id and converts it to an object id.
// field names the argument in the error message.
func ParseId(field string, id string) (primitive.ObjectID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return primitive.NilObjectID, model.Validation("%s is required", field)
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, model.Validation("%s %q is not a valid id", field, id)
	}
	return objectID, nil
}
