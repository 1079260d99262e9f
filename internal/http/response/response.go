// Package response builds the JSON envelope shared by every handler.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse documents failed replies in the API docs.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// StatusOKWithData wraps data in a successful envelope.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error wraps msg in a failed envelope.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError joins one readable message per failed field.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "genre":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of the supported genres", err.Field()))
		case "halfstep":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a multiple of 0.5", err.Field()))
		case "interval":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be daily, weekly, monthly or yearly", err.Field()))
		case "finishedafterstart":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must not be before started_at", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param()))
		case "url":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid URL", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
