package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Code    int         `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse wraps collection payloads
type ListResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithList sends a collection with its size
func RespondWithList(c *gin.Context, items interface{}, total int) {
	RespondWithSuccess(c, http.StatusOK, ListResponse{Items: items, Total: total})
}

// RespondWithError sends an error response. Non-application errors are
// reported as internal without leaking their text.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"
	code := int(errors.ErrInternal)

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		statusCode = appErr.StatusCode()
		message = appErr.Message
		code = int(appErr.Code)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, Response{
		Status:  "error",
		Message: message,
		Code:    code,
	})
}
