package chainplug_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/plugstack/app"
	"github.com/vk/plugstack/hclopts"
	"github.com/vk/plugstack/plugins/chainplug"
	"github.com/vk/plugstack/plugins/netplug"
)

func TestChainStack_EndToEnd(t *testing.T) {
	// --- Arrange ---
	overrides := map[string][]string{
		"net-listen":           {"127.0.0.1:0"},
		"chain-block-interval": {"25ms"},
	}
	loader := hclopts.NewLoader("", overrides)
	stack, err := app.New(nil, &app.Config{Workers: 4}, loader, chainplug.Descriptor)
	require.NoError(t, err)

	chainP, ok := app.Find[*chainplug.Plugin](stack, chainplug.Descriptor)
	require.True(t, ok)
	netP, ok := app.Find[*netplug.Plugin](stack, netplug.Descriptor)
	require.True(t, ok, "net must have been registered transitively")

	// --- Act ---
	require.NoError(t, stack.Start(context.Background(), chainP))
	defer stack.Shutdown(context.Background())

	// --- Assert: bring-up order.
	assert.Equal(t, []string{"net", "chain"}, stack.StartedOrder())

	// Blocks are produced and visible through the Head method slot.
	head := app.ObtainMethod(stack, chainplug.Head)
	require.Eventually(t, func() bool {
		info, err := head.Call(context.Background(), struct{}{})
		return err == nil && info.Height >= 2
	}, 3*time.Second, 10*time.Millisecond)

	// A peer connection travels net → channel → chain's counter.
	conn, err := net.Dial("tcp", netP.Addr().String())
	require.NoError(t, err)
	conn.Close()

	require.Eventually(t, func() bool {
		info, err := head.Call(context.Background(), struct{}{})
		return err == nil && info.Peers >= 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestChain_RejectsBadInterval(t *testing.T) {
	loader := hclopts.NewLoader("", map[string][]string{
		"net-listen":           {"127.0.0.1:0"},
		"chain-block-interval": {"not-a-duration"},
	})
	stack, err := app.New(nil, &app.Config{Workers: 2}, loader, chainplug.Descriptor)
	require.NoError(t, err)

	chainP, _ := stack.Lookup("chain")
	err = stack.Start(context.Background(), chainP)
	require.Error(t, err)
	assert.Empty(t, stack.StartedOrder())
}
