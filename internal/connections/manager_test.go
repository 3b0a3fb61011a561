package connections

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialPair starts a server that registers every upgraded connection with
// manager and returns the client side of one connection.
func dialPair(t *testing.T, manager *Manager) *websocket.Conn {
	t.Helper()

	registered := make(chan struct{})
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.AddConnection(conn)
		close(registered)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				manager.RemoveConnection(conn)
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("server never registered the connection")
	}
	return client
}

func TestManager(t *testing.T) {
	t.Run("basic add and remove connection", func(t *testing.T) {
		manager := NewManager(DefaultTimeouts)
		conn := &websocket.Conn{}

		assert.True(t, manager.AddConnection(conn))
		assert.True(t, manager.HasConnection(conn))
		assert.Equal(t, 1, manager.GetConnectionCount())

		manager.RemoveConnection(conn)
		assert.False(t, manager.HasConnection(conn))
		assert.Equal(t, 0, manager.GetConnectionCount())
	})

	t.Run("concurrent connection operations", func(t *testing.T) {
		manager := NewManager(DefaultTimeouts)
		const concurrentOps = 100

		conns := make([]*websocket.Conn, concurrentOps)
		for i := range conns {
			conns[i] = &websocket.Conn{}
		}

		var wg sync.WaitGroup
		for _, conn := range conns {
			wg.Add(1)
			go func(conn *websocket.Conn) {
				defer wg.Done()
				manager.AddConnection(conn)
			}(conn)
		}
		wg.Wait()
		assert.Equal(t, concurrentOps, manager.GetConnectionCount())

		for _, conn := range conns {
			wg.Add(1)
			go func(conn *websocket.Conn) {
				defer wg.Done()
				manager.RemoveConnection(conn)
			}(conn)
		}
		wg.Wait()
		assert.Equal(t, 0, manager.GetConnectionCount())
	})

	t.Run("timeout configuration", func(t *testing.T) {
		custom := TimeoutConfig{
			PongWait:   time.Minute,
			PingPeriod: 54 * time.Second,
			WriteWait:  20 * time.Second,
		}
		manager := NewManager(custom)
		assert.Equal(t, custom, manager.GetTimeouts())

		updated := TimeoutConfig{
			PongWait:   2 * time.Minute,
			PingPeriod: 108 * time.Second,
			WriteWait:  30 * time.Second,
		}
		manager.SetTimeouts(updated)
		assert.Equal(t, updated, manager.GetTimeouts())
	})

	t.Run("close all sends going away", func(t *testing.T) {
		manager := NewManager(DefaultTimeouts)
		client := dialPair(t, manager)
		require.Equal(t, 1, manager.GetConnectionCount())

		manager.CloseAll()
		assert.Equal(t, 0, manager.GetConnectionCount())

		require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := client.ReadMessage()
		require.Error(t, err)
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	})

	t.Run("rejects registrations after close", func(t *testing.T) {
		manager := NewManager(DefaultTimeouts)
		manager.CloseAll()

		assert.False(t, manager.AddConnection(&websocket.Conn{}))
		assert.Equal(t, 0, manager.GetConnectionCount())
	})
}
