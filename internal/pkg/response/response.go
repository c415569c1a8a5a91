package response

import "github.com/gin-gonic/gin"

// Body is the envelope every endpoint answers with: success carries data,
// failure carries a machine-readable code plus a human message, and
// optionally details the client needs to recover (the conflicting booking
// id, the cancelled booking after an advance rollback).
type Body struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Body{Success: true, Data: data})
}

func Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Body{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code, message string, details any) {
	c.JSON(statusCode, Body{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message, Details: details},
	})
}
