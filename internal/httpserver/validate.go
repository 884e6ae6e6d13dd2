package httpserver

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/pipeline"
)

// validate checks request bodies after binding. Field names in messages
// are the JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "granularity", func(fl validator.FieldLevel) bool {
		_, err := model.ParseGranularity(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "policy", func(fl validator.FieldLevel) bool {
		_, err := pipeline.ParsePolicy(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// bind decodes the JSON body into req and validates it. On failure the
// request is aborted with a 400 and false is returned.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			respondInvalid(c, "request body is empty", nil)
			return false
		}
		respondInvalid(c, "malformed JSON body", []string{err.Error()})
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondInvalid(c, "request validation failed", formatValidationErrors(verrs))
			return false
		}
		respondInvalid(c, err.Error(), nil)
		return false
	}
	return true
}

// formatValidationErrors renders one line per failed field.
func formatValidationErrors(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := fmt.Sprintf("field '%s' failed on the '%s' rule", e.Field(), e.Tag())
		if e.Param() != "" {
			msg = fmt.Sprintf("%s (%s)", msg, e.Param())
		}
		out = append(out, msg)
	}
	return out
}
