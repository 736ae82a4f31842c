package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	assert.Equal(t, "[connection] open database: dial tcp: refused",
		Wrap(KindConnection, "open database", cause).Error())
	assert.Equal(t, "[no_selection] no tables selected",
		New(KindNoSelection, "no tables selected").Error())
	assert.Equal(t, "[generation] reached maximum retries (5)",
		Newf(KindGeneration, "reached maximum retries (%d)", 5).Error())
}

func TestError_UnwrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(KindIntrospection, "query tables", cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsIntrospection(err))
	assert.False(t, IsConnection(err))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"connection", New(KindConnection, "x"), KindConnection},
		{"introspection", New(KindIntrospection, "x"), KindIntrospection},
		{"generation", New(KindGeneration, "x"), KindGeneration},
		{"no selection", New(KindNoSelection, "x"), KindNoSelection},
		{"invalid input", New(KindInvalidInput, "x"), KindInvalidInput},
		{"plain error", errors.New("x"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.kind == KindConnection, IsConnection(tt.err))
			assert.Equal(t, tt.kind == KindGeneration, IsGeneration(tt.err))
			assert.Equal(t, tt.kind == KindNoSelection, IsNoSelection(tt.err))
			assert.Equal(t, tt.kind == KindInvalidInput, IsInvalidInput(tt.err))
		})
	}
}
