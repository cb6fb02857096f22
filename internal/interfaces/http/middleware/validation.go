package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/erp/acct/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// CivilDateLayout is the wire format of report and schedule dates
const CivilDateLayout = "2006-01-02"

var setupOnce sync.Once

// SetupValidator makes binding errors name fields by their json or form key
// and registers the civildate tag. Safe to call more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
		_ = v.RegisterValidation("civildate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(CivilDateLayout, fl.Field().String())
			return err == nil
		})
	})
}

// HandleValidationError answers 400 with one detail per rejected field.
// Errors that are not field validations, such as a malformed number in a
// query string, are reported under the request as a whole.
func HandleValidationError(c *gin.Context, err error) {
	var details []dto.ValidationDetail
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{Field: e.Field(), Message: validationMessage(e)})
		}
	} else {
		details = []dto.ValidationDetail{{Field: "request", Message: err.Error()}}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest,
		dto.NewValidationErrorResponse("Request validation failed", RequestIDFrom(c), details))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "civildate":
		return "Must be a date in YYYY-MM-DD format"
	case "min":
		return "Must be at least " + e.Param()
	case "max":
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid UUID format"
	default:
		return "Invalid value"
	}
}
