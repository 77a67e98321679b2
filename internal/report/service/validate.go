package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// Store ids are UUIDs in Postgres and generated keys in Firestore; both fit.
var recordID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func validateRecordID(fl validator.FieldLevel) bool {
	return recordID.MatchString(fl.Field().String())
}

// newValidator reports fields by their JSON names so messages match what the
// client sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("record_id", validateRecordID)
	return v
}

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newError(InvalidInput, "invalid request", err)
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return newError(InvalidInput, fe.Field()+" is required", err)
	}
	return newError(InvalidInput, fe.Field()+" is malformed", err)
}
