package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report the name the client used, not the Go field name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// Bind fills req from path, query and body, applies `default` tags to the
// fields left empty, then validates. It returns nil when req is usable.
func Bind(c echo.Context, req interface{}) []*AppError {
	if err := c.Bind(req); err != nil {
		return []*AppError{bindError(err)}
	}
	if err := defaults.Set(req); err != nil {
		return []*AppError{bindError(err)}
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		var fes validator.ValidationErrors
		if !errors.As(err, &fes) {
			return []*AppError{bindError(err)}
		}
		errs := make([]*AppError, 0, len(fes))
		for _, fe := range fes {
			errs = append(errs, fieldError(fe))
		}
		return errs
	}
	return nil
}

func bindError(err error) *AppError {
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return newAppError(http.StatusBadRequest, "ERR_BIND", msg).WithError(err)
}

func fieldError(fe validator.FieldError) *AppError {
	e := newAppError(http.StatusBadRequest, "ERR_"+strings.ToUpper(fe.Tag()), fieldMessage(fe))
	e.Field = fe.Field()
	switch fe.Tag() {
	case "min", "gte":
		e.WithParam("min", fe.Param())
	case "max", "lte":
		e.WithParam("max", fe.Param())
	case "gt", "lt":
		e.WithParam("value", fe.Param())
	case "oneof":
		e.WithParam("options", strings.Fields(fe.Param()))
	case "datetime":
		e.WithParam("layout", fe.Param())
	}
	return e
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as %s", field, fe.Param())
	case "unique":
		return field + " must not contain duplicates"
	case "min":
		switch fe.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
		case reflect.String:
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(strings.Fields(fe.Param()), ", "))
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
