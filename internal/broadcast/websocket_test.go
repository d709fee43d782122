package broadcast

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fraud-detector/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestWebsocketHub_GreetsAndStreamsAlerts(t *testing.T) {
	fanout := NewFanOut(8, time.Second, discardLogger())
	hub := NewWebsocketHub(fanout, discardLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()

	var greeting models.ObserverGreeting
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "connected", greeting.Type)
	assert.Equal(t, "Connected to fraud alert stream", greeting.Message)

	require.Eventually(t, func() bool { return fanout.Count() == 1 }, time.Second, 5*time.Millisecond)

	sent := payloadFor("TXN-042")
	fanout.Publish(context.Background(), sent)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got models.AlertPayload
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, sent.AlertID, got.AlertID)
	assert.Equal(t, "TXN-042", got.TransactionID)
	assert.Equal(t, 55, got.RiskScore)
	assert.Equal(t, models.PayloadStatusNew, got.AlertStatus)

	require.NoError(t, fanout.Close(context.Background()))
}

func TestWebsocketHub_DisconnectUnsubscribes(t *testing.T) {
	fanout := NewFanOut(8, time.Second, discardLogger())
	defer fanout.Close(context.Background())
	hub := NewWebsocketHub(fanout, discardLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	var greeting models.ObserverGreeting
	require.NoError(t, conn.ReadJSON(&greeting))
	require.Eventually(t, func() bool { return fanout.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return fanout.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestWebsocketHub_MultipleObserversReceiveSameAlert(t *testing.T) {
	fanout := NewFanOut(8, time.Second, discardLogger())
	hub := NewWebsocketHub(fanout, discardLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conns := []*websocket.Conn{dialHub(t, srv), dialHub(t, srv)}
	for _, c := range conns {
		defer c.Close()
		var greeting models.ObserverGreeting
		require.NoError(t, c.ReadJSON(&greeting))
	}
	require.Eventually(t, func() bool { return fanout.Count() == 2 }, time.Second, 5*time.Millisecond)

	fanout.Publish(context.Background(), payloadFor("TXN-7"))

	for _, c := range conns {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got models.AlertPayload
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, "TXN-7", got.TransactionID)
	}

	require.NoError(t, fanout.Close(context.Background()))
}
