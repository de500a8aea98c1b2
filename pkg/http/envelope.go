package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope wraps every JSON body the API writes. Failures carry their
// details in Errors and leave Data empty.
type Envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []*AppError `json:"errors,omitempty"`
}

// Page is the Data of list responses. Total counts matches before any limit.
type Page struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}

// JSON writes data with status as both the HTTP and the envelope status.
func JSON(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func OK(c echo.Context, data interface{}) error {
	return JSON(c, http.StatusOK, data)
}

func Created(c echo.Context, data interface{}) error {
	return JSON(c, http.StatusCreated, data)
}

func List(c echo.Context, rows interface{}, total int64) error {
	return JSON(c, http.StatusOK, Page{Rows: rows, Total: total})
}

// Invalid writes a 400 listing every rejected field.
func Invalid(c echo.Context, errs []*AppError) error {
	return writeErrors(c, http.StatusBadRequest, errs)
}

// Fail writes err. An *AppError anywhere in the chain picks the status;
// anything else is reported as an opaque 500.
func Fail(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return writeErrors(c, appErr.Status, []*AppError{appErr})
	}
	return writeErrors(c, http.StatusInternalServerError, []*AppError{InternalError("something went wrong")})
}

func writeErrors(c echo.Context, status int, errs []*AppError) error {
	return c.JSON(status, Envelope{
		Status:  status,
		Message: http.StatusText(status),
		Errors:  errs,
	})
}
