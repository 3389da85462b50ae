package middleware

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/carebook/scheduling-api/internal/model"
)

// ValidationError carries one field-level failure back to the client.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validationMessages = map[string]string{
	"required":        "Field is required",
	"email":           "Invalid email format",
	"min":             "Value is too small",
	"max":             "Value is too large",
	"oneof":           "Value is not one of the allowed options",
	"permission_type": "Unknown permission type",
}

// RegisterValidators installs domain validators on gin's binding engine and
// makes validation errors report JSON field names rather than Go ones.
// Call once before routes are registered.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	if err := v.RegisterValidation("permission_type", func(fl validator.FieldLevel) bool {
		return model.PermissionType(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}

// Validation translates binding failures into a structured 400 body.
// Handlers attach them with c.Error(err).SetType(gin.ErrorTypeBind) and
// abort without writing; this middleware owns the response.
func Validation() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		bindErrs := c.Errors.ByType(gin.ErrorTypeBind)
		if len(bindErrs) == 0 || c.Writer.Written() {
			return
		}

		var fieldErrors []ValidationError
		for _, err := range bindErrs {
			errs, ok := err.Err.(validator.ValidationErrors)
			if !ok {
				continue
			}
			for _, e := range errs {
				msg := validationMessages[e.Tag()]
				if msg == "" {
					msg = e.Error()
				}
				fieldErrors = append(fieldErrors, ValidationError{
					Field:   e.Field(),
					Message: msg,
				})
			}
		}

		// Malformed JSON and other non-validator failures get a plain 400.
		if len(fieldErrors) == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": fieldErrors})
	}
}
