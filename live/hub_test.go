package live

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHub_BroadcastReachesOnlyRoom(t *testing.T) {
	hub, _ := startHub(t)

	inRoom := NewClient(hub, nil, CategoryRoom("cat_1"))
	otherRoom := NewClient(hub, nil, CategoryRoom("cat_2"))
	require.True(t, hub.Join(inRoom))
	require.True(t, hub.Join(otherRoom))

	require.Eventually(t, func() bool { return hub.RoomSize("category_cat_1") == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastToRoom(CategoryRoom("cat_1"), Message{Type: PlayerCreated, Payload: map[string]string{"id": "player_1"}, RoomID: "category_cat_1"})

	select {
	case raw := <-inRoom.Send:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, PlayerCreated, msg["type"])
		assert.Equal(t, "category_cat_1", msg["room_id"])
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	assert.Len(t, otherRoom.Send, 0)
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub, _ := startHub(t)

	client := NewClient(hub, nil, TeamsRoom)
	require.True(t, hub.Join(client))
	require.Eventually(t, func() bool { return hub.RoomSize(TeamsRoom) == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBufferSize+10; i++ {
			hub.BroadcastToRoom(TeamsRoom, Message{Type: TeamUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}
	assert.Len(t, client.Send, sendBufferSize)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub, cancel := startHub(t)

	client := NewClient(hub, nil, TeamsRoom)
	require.True(t, hub.Join(client))
	require.Eventually(t, func() bool { return hub.RoomSize(TeamsRoom) == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case _, ok := <-client.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client channel not closed on stop")
	}

	assert.False(t, hub.Join(NewClient(hub, nil, TeamsRoom)))
	hub.Leave(client)
}
