package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
)

// NewJSONContext builds an Echo context carrying a JSON body, returning
// the context and the response recorder
func NewJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return c, rec
}

// AsUser marks the context as authenticated the way AuthMiddleware would
func AsUser(c echo.Context, userID uint, admin bool) {
	c.Set("user_id", userID)
	c.Set("admin", admin)
}

// NewRequestContext builds an Echo context from a prepared request
func NewRequestContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return c, rec
}
