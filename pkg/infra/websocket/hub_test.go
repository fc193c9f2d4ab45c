package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mmout "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
)

type fakeConn struct{}

func (f *fakeConn) WriteJSON(v interface{}) error                  { return nil }
func (f *fakeConn) ReadJSON(v interface{}) error                   { return nil }
func (f *fakeConn) WriteMessage(messageType int, data []byte) error { return nil }
func (f *fakeConn) Close() error                                   { return nil }
func (f *fakeConn) SetReadLimit(limit int64)                       {}

func recvMessage(t *testing.T, send chan *WebSocketMessage) *WebSocketMessage {
	t.Helper()
	select {
	case msg := <-send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for socket message")
		return nil
	}
}

func assertNoMessage(t *testing.T, send chan *WebSocketMessage) {
	t.Helper()
	select {
	case msg := <-send:
		t.Fatalf("unexpected socket message: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRegisterClient_SendsConnectedAck(t *testing.T) {
	hub := NewSocketHub(nil)
	userID := uuid.New()
	c := NewClient(userID, &fakeConn{})

	hub.registerClient(c)

	msg := recvMessage(t, c.Send)
	assert.Equal(t, EventConnected, msg.Type)

	var payload struct {
		SocketID uuid.UUID `json:"socket_id"`
		UserID   uuid.UUID `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, c.ID, payload.SocketID)
	assert.Equal(t, userID, payload.UserID)
}

// TestSecondSocketForSameUserDoesNotOrphanFirst covers the scenario the
// single byUser map used to break: a user opening a second connection must
// not evict the first socket's registry entry out from under it.
func TestSecondSocketForSameUserDoesNotOrphanFirst(t *testing.T) {
	hub := NewSocketHub(nil)
	userID := uuid.New()
	first := NewClient(userID, &fakeConn{})
	second := NewClient(userID, &fakeConn{})

	hub.registerClient(first)
	recvMessage(t, first.Send)

	hub.registerClient(second)
	recvMessage(t, second.Send)

	assert.Equal(t, 2, hub.ConnectedClients())
	assert.Len(t, hub.userSockets[userID], 2)

	hub.unregisterClient(first)

	assert.Len(t, hub.userSockets[userID], 1)
	assert.Equal(t, 1, hub.ConnectedClients())
	_, stillThere := hub.userSockets[userID][second.ID]
	assert.True(t, stillThere)
}

// TestPresence_OnlineOnFirstSocketOfflineOnLast drives the dual-socket
// presence scenario: a watcher subscribed to status:{userId} sees exactly
// one online transition on the user's first connect and exactly one offline
// transition once the user's last socket drops, with no chatter in between.
func TestPresence_OnlineOnFirstSocketOfflineOnLast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewSocketHub(nil)
	go hub.Run(ctx)

	watcher := NewClient(uuid.New(), &fakeConn{})
	hub.RegisterClient(watcher)
	recvMessage(t, watcher.Send)

	watched := uuid.New()
	hub.SubscribeUserStatus(watcher, []uuid.UUID{watched})
	subscribed := recvMessage(t, watcher.Send)
	assert.Equal(t, EventUserStatusUpdate, subscribed.Type)

	var snapshot struct {
		Statuses map[uuid.UUID]string `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(subscribed.Payload, &snapshot))
	assert.Equal(t, "offline", snapshot.Statuses[watched])

	firstSocket := NewClient(watched, &fakeConn{})
	hub.RegisterClient(firstSocket)
	recvMessage(t, firstSocket.Send)

	online := recvMessage(t, watcher.Send)
	assert.Equal(t, EventUserStatus, online.Type)
	var onlinePayload struct {
		UserID uuid.UUID `json:"user_id"`
		Status string    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(online.Payload, &onlinePayload))
	assert.Equal(t, watched, onlinePayload.UserID)
	assert.Equal(t, "online", onlinePayload.Status)

	secondSocket := NewClient(watched, &fakeConn{})
	hub.RegisterClient(secondSocket)
	recvMessage(t, secondSocket.Send)
	assertNoMessage(t, watcher.Send)

	hub.UnregisterClient(firstSocket)
	assertNoMessage(t, watcher.Send)

	hub.UnregisterClient(secondSocket)
	offline := recvMessage(t, watcher.Send)
	assert.Equal(t, EventUserStatus, offline.Type)
	var offlinePayload struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(offline.Payload, &offlinePayload))
	assert.Equal(t, "offline", offlinePayload.Status)
}

func TestSubscribeMatch_JoinsRoomAndAcks(t *testing.T) {
	hub := NewSocketHub(nil)
	c := NewClient(uuid.New(), &fakeConn{})
	hub.registerClient(c)
	recvMessage(t, c.Send)

	requestID := uuid.New()
	hub.SubscribeMatch(c, requestID)

	ack := recvMessage(t, c.Send)
	assert.Equal(t, EventMatchmakingSubscribed, ack.Type)
	assert.Len(t, hub.matchRooms[requestID], 1)

	hub.UnsubscribeMatch(c, requestID)
	unsubAck := recvMessage(t, c.Send)
	assert.Equal(t, EventMatchmakingUnsubscribed, unsubAck.Type)
	assert.Len(t, hub.matchRooms[requestID], 0)
}

// TestBroadcastRequestStatus_RoutesToMatchRoom confirms matchmaking status
// goes to every socket subscribed to match:{requestId}, not just the user's
// own connection.
func TestBroadcastRequestStatus_RoutesToMatchRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewSocketHub(nil)
	go hub.Run(ctx)

	requestID := uuid.New()
	owner := NewClient(uuid.New(), &fakeConn{})
	observer := NewClient(uuid.New(), &fakeConn{})

	hub.RegisterClient(owner)
	recvMessage(t, owner.Send)
	hub.RegisterClient(observer)
	recvMessage(t, observer.Send)

	hub.SubscribeMatch(owner, requestID)
	recvMessage(t, owner.Send)
	hub.SubscribeMatch(observer, requestID)
	recvMessage(t, observer.Send)

	hub.BroadcastRequestStatus(context.Background(), owner.UserID, mmout.RequestStatusPayload{
		Status:    mmout.StatusSearching,
		RequestID: requestID,
	})

	ownerMsg := recvMessage(t, owner.Send)
	assert.Equal(t, EventMatchmakingStatus, ownerMsg.Type)
	observerMsg := recvMessage(t, observer.Send)
	assert.Equal(t, EventMatchmakingStatus, observerMsg.Type)
}
