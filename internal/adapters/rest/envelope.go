package rest

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// envelope is the shape of every REST response
type envelope struct {
	Success    bool              `json:"success"`
	Data       interface{}       `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	StatusCode int               `json:"statusCode"`
}

func respond(c echo.Context, code int, data interface{}) error {
	return c.JSON(code, envelope{Success: true, Data: data, StatusCode: code})
}

func ok(c echo.Context, data interface{}) error {
	return respond(c, http.StatusOK, data)
}

func created(c echo.Context, data interface{}) error {
	return respond(c, http.StatusCreated, data)
}
