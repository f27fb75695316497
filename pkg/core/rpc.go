package core

// Request is the RPC envelope sent by the editor.
// Cursor names the node the command is issued against; it is nil when no
// node is focused.
type Request struct {
	Cursor  *string        `json:"cursor"`
	Command string         `json:"command"`
	Args    map[string]any `json:"args"`
}

// ErrorBody describes a failed command.
type ErrorBody struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// ErrorResponse is the payload returned in place of a projected graph
// when a command fails.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds the failure payload for err.
// Unclassified errors are reported as persistence errors since every other
// failure path classifies its errors.
func NewErrorResponse(err error) ErrorResponse {
	kind := KindOf(err)
	if kind == "" {
		kind = KindPersistenceError
	}
	return ErrorResponse{Error: ErrorBody{Kind: kind, Message: err.Error()}}
}

// StringPtr returns a pointer to s. Handy for building cursors.
func StringPtr(s string) *string {
	return &s
}
