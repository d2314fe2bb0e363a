package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/poiesic/vidrag/core"
)

// ErrAppRequired is returned when no App is provided.
var ErrAppRequired = errors.New("app required")

// ErrConversationNotFound is returned for an unknown conversation id.
var ErrConversationNotFound = fmt.Errorf("%w: conversation", core.ErrNotFound)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	var body errorBody
	body.Error.Message = fmt.Sprintf(format, args...)
	body.Error.Type = errType
	writeJSON(w, code, body)
}

// statusOf maps domain error classes onto HTTP status codes.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrConfiguration),
		errors.Is(err, core.ErrInvalidTranscript),
		errors.Is(err, core.ErrEmptyContent):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, core.ErrExternalService):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "api_error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, errType := statusOf(err)
	httpError(w, code, errType, "%v", err)
}
