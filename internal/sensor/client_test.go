package sensor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

var upgrader = websocket.Upgrader{}

// newBridge starts a fake sensor bridge that runs serve per connection.
func newBridge(t *testing.T, serve func(*websocket.Conn)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestClient(url string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewClient(&config.SensorConfig{
		URL:                  url,
		ReconnectDelay:       10 * time.Millisecond,
		MaxReconnectDelay:    50 * time.Millisecond,
		MaxReconnectAttempts: 1,
		ReadTimeout:          time.Second,
	}, logger)
}

func TestReceivesAngleSamples(t *testing.T) {
	url := newBridge(t, func(conn *websocket.Conn) {
		conn.WriteJSON(models.SensorMessage{Type: "angle", Angle: 72.5, Timestamp: time.Now().UnixMilli()})
		time.Sleep(200 * time.Millisecond)
	})

	c := newTestClient(url)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	select {
	case sample := <-c.Samples():
		require.NotNil(t, sample)
		assert.Equal(t, 72.5, sample.Angle)
	case <-time.After(2 * time.Second):
		t.Fatal("no sample received")
	}

	assert.True(t, c.IsConnected())
	assert.False(t, c.LastUpdate().IsZero())
}

func TestSkipsNonAngleMessages(t *testing.T) {
	url := newBridge(t, func(conn *websocket.Conn) {
		conn.WriteJSON(map[string]interface{}{"type": "hello", "version": 1})
		conn.WriteJSON(models.SensorMessage{Type: "angle", Angle: 33})
		time.Sleep(200 * time.Millisecond)
	})

	c := newTestClient(url)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	select {
	case sample := <-c.Samples():
		require.NotNil(t, sample)
		assert.Equal(t, 33.0, sample.Angle)
	case <-time.After(2 * time.Second):
		t.Fatal("no sample received")
	}
}

func TestDisconnectEmitsNil(t *testing.T) {
	url := newBridge(t, func(conn *websocket.Conn) {
		conn.WriteJSON(models.SensorMessage{Type: "angle", Angle: 45})
		// Then the bridge dies.
	})

	c := newTestClient(url)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	var got []*models.AngleSample
	deadline := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case sample := <-c.Samples():
			got = append(got, sample)
		case <-deadline:
			t.Fatal("expected a sample then a nil disconnect marker")
		}
	}

	require.NotNil(t, got[0])
	assert.Nil(t, got[1])
	assert.False(t, c.IsConnected())
}
