package workflow

import (
	"errors"
	"strings"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/report"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("issue_type", func(fl validator.FieldLevel) bool {
		return report.IssueType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		return report.Severity(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return report.Status(fl.Field().String()).Valid()
	})
	return v
}

// checkStruct runs the struct tags and turns the first failure into a ValidationError.
func checkStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return apperr.Validation("%s is required", name)
		case "gte", "lte":
			return apperr.Validation("%s out of range", name)
		case "max":
			return apperr.Validation("%s too long (max %s)", name, fe.Param())
		default:
			return apperr.Validation("invalid %s %q", name, fe.Value())
		}
	}
	return apperr.Validation("%v", err)
}
