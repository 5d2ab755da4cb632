package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rishabhdev/roomio/internal/apperrors"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithAppError maps a typed domain error to an HTTP response.
// Gateway and internal failures get a generic message; the caller is
// expected to have logged the detail server-side.
func RespondWithAppError(c *gin.Context, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		RespondWithError(c, http.StatusBadRequest, err.Error())
	case apperrors.KindNotFound:
		RespondWithError(c, http.StatusNotFound, err.Error())
	case apperrors.KindConflict:
		RespondWithError(c, http.StatusConflict, err.Error())
	case apperrors.KindInsufficientBalance:
		RespondWithError(c, http.StatusPaymentRequired, err.Error())
	case apperrors.KindForbidden:
		RespondWithError(c, http.StatusForbidden, err.Error())
	case apperrors.KindGateway:
		RespondWithError(c, http.StatusBadGateway, "Payment gateway error. Please try again.")
	default:
		RespondWithError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
