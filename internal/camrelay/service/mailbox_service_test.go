package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/service"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store/memory"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

func TestMailboxService(t *testing.T) {
	svc := service.NewMailboxService(memory.NewMailboxStore())
	ctx := context.Background()

	_, err := svc.LatestFrame(ctx, "esp-1")
	assert.ErrorIs(t, err, service.ErrNoFrame)

	require.NoError(t, svc.PushFrame(ctx, "esp-1", "/9j/4AAQ"))
	frame, err := svc.LatestFrame(ctx, "esp-1")
	require.NoError(t, err)
	assert.Equal(t, "/9j/4AAQ", frame)

	require.NoError(t, svc.SetCommand(ctx, "esp-1", types.CommandState{WiFi: json.RawMessage(`"on"`)}))
	cmd, err := svc.Command(ctx, "esp-1")
	require.NoError(t, err)
	assert.JSONEq(t, `"on"`, string(cmd.WiFi))

	assert.ErrorIs(t, svc.PushFrame(ctx, " ", "x"), service.ErrInvalidDeviceID)
}
