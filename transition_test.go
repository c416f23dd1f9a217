package edgefsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		from, to string
		want     transitionKind
	}{
		{"", "a", crossState},
		{"", "a.x", crossState},
		{"a", "b", crossState},
		{"a", "a", crossState},
		{"a", "a.x", enterSubstate},
		{"a.x", "a.y", subToSub},
		{"a.x", "a.x", subToSub},
		{"a.x", "a", crossState},
		{"a.x", "b.x", crossState},
		{"a", "b.x", crossState},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestSplitPath(t *testing.T) {
	top, sub, err := splitPath("a")
	require.NoError(t, err)
	assert.Equal(t, "a", top)
	assert.Empty(t, sub)

	top, sub, err = splitPath("a.b")
	require.NoError(t, err)
	assert.Equal(t, "a", top)
	assert.Equal(t, "b", sub)

	for _, bad := range []string{"", ".", "a.", ".b", "a.b.c"} {
		_, _, err := splitPath(bad)
		assert.ErrorIs(t, err, ErrInvalidStateName, bad)
	}
}
