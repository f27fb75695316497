package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: ""},
		{name: "classified", err: Errorf(KindUnknownNode, "node %q", "a"), want: KindUnknownNode},
		{name: "wrapped", err: fmt.Errorf("apply: %w", Errorf(KindNotADatastore, "x")), want: KindNotADatastore},
		{name: "persistence cause", err: Wrap(KindPersistenceError, errors.New("disk full"), "commit"), want: KindPersistenceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("outer: %w", Errorf(KindDuplicateName, "node %q exists", "a"))

	assert.True(t, errors.Is(err, &Error{Kind: KindDuplicateName}))
	assert.False(t, errors.Is(err, &Error{Kind: KindUnknownNode}))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(KindPersistenceError, nil, "commit"))

	cause := errors.New("disk full")
	err := Wrap(KindPersistenceError, cause, "commit snapshot")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "PersistenceError: commit snapshot: disk full", err.Error())
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(Errorf(KindInvalidCommand, "unknown command %q", "fly"))
	assert.Equal(t, KindInvalidCommand, resp.Error.Kind)
	assert.Contains(t, resp.Error.Message, "fly")

	resp = NewErrorResponse(errors.New("unexpected"))
	assert.Equal(t, KindPersistenceError, resp.Error.Kind)
}
