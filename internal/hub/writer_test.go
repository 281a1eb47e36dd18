package hub

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// dialWriter upgrades one connection and wraps the server side in a
// ClientWriter. The returned client connection is under test control.
func dialWriter(t *testing.T) (*ClientWriter, *ws.Conn) {
	t.Helper()

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	connCh := make(chan *ws.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		connCh <- conn
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return newClientWriter(<-connCh, clockwork.NewRealClock()), client
}

func TestClientWriter_StopGracefulReturnsAfterStalledWrite(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out a real write deadline")
	}

	cw, _ := dialWriter(t)

	// The peer never reads. Large frames fill the kernel buffers until the
	// run loop blocks inside WriteMessage and hits its write deadline while
	// the shutdown below is already waiting on the goroutine.
	frame := bytes.Repeat([]byte("x"), 1<<20)
	for range messageBufferSize {
		cw.trySend(frame)
	}

	done := make(chan struct{})
	go func() {
		cw.stopGraceful("server shutting down")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(writeDeadline + 10*time.Second):
		t.Fatal("stopGraceful did not return after the run loop's write failed")
	}
}

func TestClientWriter_StopGracefulAfterDeadWriter(t *testing.T) {
	cw, client := dialWriter(t)

	client.Close()
	cw.markDead()

	done := make(chan struct{})
	go func() {
		cw.stopGraceful("server shutting down")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stopGraceful did not return for an already dead writer")
	}
}

func TestClientWriter_StopIsIdempotent(t *testing.T) {
	cw, _ := dialWriter(t)

	cw.stop()
	cw.stop()

	select {
	case <-cw.done:
	default:
		t.Fatal("done channel not closed after stop")
	}
}
