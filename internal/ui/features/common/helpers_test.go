package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dark/pkg/core"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind core.Kind
		want int
	}{
		{core.KindInvalidCommand, http.StatusBadRequest},
		{core.KindMalformedArgs, http.StatusBadRequest},
		{core.KindNotADatastore, http.StatusBadRequest},
		{core.KindDuplicateName, http.StatusBadRequest},
		{core.KindDuplicateFieldName, http.StatusBadRequest},
		{core.KindUnknownFieldType, http.StatusBadRequest},
		{core.KindUnknownNode, http.StatusNotFound},
		{core.KindPersistenceError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("disk full"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body core.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, core.KindPersistenceError, body.Error.Kind)
	assert.Equal(t, "disk full", body.Error.Message)
}
