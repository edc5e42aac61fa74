package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, apiError{Code: status, Message: message})
}

// XML writes a feed document with the content type the downstream
// consumers expect.
func XML(c *gin.Context, body []byte) {
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}
