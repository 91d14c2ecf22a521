package memory_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store/memory"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

func TestMailboxStore_CommandRoundTrip(t *testing.T) {
	s := memory.NewMailboxStore()
	ctx := context.Background()

	empty, err := s.GetCommand(ctx, "esp-1")
	require.NoError(t, err)
	assert.Nil(t, empty.Servo)

	require.NoError(t, s.SetCommand(ctx, "esp-1", types.CommandState{Servo: json.RawMessage(`90`)}))

	got, err := s.GetCommand(ctx, "esp-1")
	require.NoError(t, err)
	assert.JSONEq(t, `90`, string(got.Servo))
}

func TestMailboxStore_Frame(t *testing.T) {
	s := memory.NewMailboxStore()
	ctx := context.Background()

	_, ok, err := s.GetFrame(ctx, "esp-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetFrame(ctx, "esp-1", "aGVsbG8="))
	frame, ok, err := s.GetFrame(ctx, "esp-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "aGVsbG8=", frame)
}
