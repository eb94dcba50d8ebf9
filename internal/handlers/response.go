package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okrboard/okrboard-backend/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError translates service errors to their HTTP form. Anything
// that is not an apierr.Error becomes an opaque 500.
func RespondServiceError(c *gin.Context, err error) {
	ae := apierr.From(err)
	msg := ae.Code
	if ae.Status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(ae.Status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    ae.Code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
