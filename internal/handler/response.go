package handler

import "github.com/qualitrack/qc-api/internal/model"

// Response is the wire envelope shared by every endpoint. Pagination is
// present only on list-shaped responses.
type Response struct {
	Success    bool              `json:"success"`
	Data       interface{}       `json:"data,omitempty"`
	Message    string            `json:"message,omitempty"`
	Error      string            `json:"error,omitempty"`
	Pagination *model.Pagination `json:"pagination,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

func NewMessageResponse(data interface{}, message string) *Response {
	return &Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func NewListResponse(data interface{}, pagination model.Pagination) *Response {
	return &Response{
		Success:    true,
		Data:       data,
		Pagination: &pagination,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Success: false,
		Error:   message,
	}
}
