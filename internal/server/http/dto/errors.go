package dto

// ErrorBody carries the error taxonomy kind and a human readable message.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorResponse wraps every non-2xx admin response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
