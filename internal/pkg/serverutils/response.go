package serverutils

import (
	"github.com/gofiber/fiber/v2/utils"
)

type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"-"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

type ErrorBody struct {
	Success bool   `json:"success"`
	Code    int    `json:"-"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func SuccessResponse[T any](message string, data T) *BaseResponse[T] {
	return &BaseResponse[T]{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

// ErrorResponse carries the human readable error; message is the status text.
func ErrorResponse(code int, message string) *ErrorBody {
	return &ErrorBody{
		Success: false,
		Code:    code,
		Error:   message,
		Message: utils.StatusMessage(code),
	}
}
