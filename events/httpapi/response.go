package httpapi

import "github.com/labstack/echo/v4"

// errorBody is the JSON shape every error response shares.
type errorBody struct {
	Error string `json:"error"`
}

// writeError sends apiErr's status and message as the response body. A
// non-*apiError is treated as a transient backend failure, since by the
// time it reaches here it escaped the taxonomy the handlers enforce.
func writeError(c echo.Context, err error) error {
	apiErr, ok := err.(*apiError)
	if !ok {
		apiErr = transientError(err.Error())
	}
	return c.JSON(apiErr.status, errorBody{Error: apiErr.message})
}
