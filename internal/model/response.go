package model

// MessageResponse is the envelope for every non-2xx core response and for
// simple confirmations. Error carries the underlying diagnostic for 500s;
// it never contains secrets or stack traces.
type MessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// ListResponse wraps list endpoints in a resource array with a count.
type ListResponse struct {
	Resource interface{} `json:"resource"`
	Count    int         `json:"count"`
}
