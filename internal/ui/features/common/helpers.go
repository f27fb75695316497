// Package common provides shared helpers for UI features.
package common

import (
	"encoding/json"
	"net/http"

	"github.com/leapstack-labs/dark/pkg/core"
)

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(kind core.Kind) int {
	switch kind {
	case core.KindUnknownNode:
		return http.StatusNotFound
	case core.KindInvalidCommand,
		core.KindMalformedArgs,
		core.KindNotADatastore,
		core.KindDuplicateName,
		core.KindDuplicateFieldName,
		core.KindUnknownFieldType:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error payload for err. Unclassified errors are
// reported as PersistenceError.
func WriteError(w http.ResponseWriter, err error) {
	resp := core.NewErrorResponse(err)
	WriteJSON(w, StatusFor(resp.Error.Kind), resp)
}
