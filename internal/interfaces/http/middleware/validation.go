package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SetupValidator configures gin's validator: JSON field names in errors,
// decimal.Decimal validated through its string form, and the money tags.
//
//	money         positive with at most two decimal places
//	signed_money  non-zero with at most two decimal places
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			RegisterValidations(v)
		}
	})
}

var setupOnce sync.Once

// RegisterValidations installs the ledger validations on v
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, ok := parseMoney(fl.Field())
		return ok && d.IsPositive()
	})
	_ = v.RegisterValidation("signed_money", func(fl validator.FieldLevel) bool {
		d, ok := parseMoney(fl.Field())
		return ok && !d.IsZero()
	})
}

func parseMoney(field reflect.Value) (decimal.Decimal, bool) {
	if field.Kind() != reflect.String {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(field.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, d.Equal(d.Round(2))
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	} else {
		details = append(details, dto.ValidationDetail{Message: err.Error()})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "money":
		return "Must be a positive amount with at most 2 decimal places"
	case "signed_money":
		return "Must be a non-zero amount with at most 2 decimal places"
	case "uuid", "uuid4":
		return "Must be a valid UUID"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "max":
		return "Must be at most " + e.Param() + " characters"
	case "min":
		return "Must be at least " + e.Param()
	}
	return "Invalid value"
}
