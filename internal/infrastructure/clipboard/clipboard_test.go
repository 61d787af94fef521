package clipboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_WriteText(t *testing.T) {
	var got string
	s := &System{write: func(text string) error {
		got = text
		return nil
	}}

	require.NoError(t, s.WriteText(context.Background(), "# Title"))
	assert.Equal(t, "# Title", got)
}

func TestSystem_WriteTextError(t *testing.T) {
	s := &System{write: func(string) error { return errors.New("exit status 1") }}
	err := s.WriteText(context.Background(), "x")
	assert.ErrorContains(t, err, "write clipboard")
}

func TestSystem_WriteTextCancelled(t *testing.T) {
	called := false
	s := &System{write: func(string) error {
		called = true
		return nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.WriteText(ctx, "x"), context.Canceled)
	assert.False(t, called)
}
