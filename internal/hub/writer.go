package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

// ClientWriter owns the outbound side of one websocket connection. It drains
// a buffered queue into the transport and keeps the peer alive with pings.
// Write errors terminate the writer; they are never escalated past the log.
type ClientWriter struct {
	conn     *websocket.Conn
	clock    clockwork.Clock
	sendCh   chan []byte
	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

func newClientWriter(conn *websocket.Conn, clock clockwork.Clock) *ClientWriter {
	cw := &ClientWriter{
		conn:   conn,
		clock:  clock,
		sendCh: make(chan []byte, messageBufferSize),
		done:   make(chan struct{}),
	}
	cw.configurePongHandler()
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *ClientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.updateWriteDeadline()
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				cw.markDead()
				return
			}
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cw.markDead()
				return
			}
		case <-cw.done:
			return
		}
	}
}

// trySend queues a message without blocking. Returns false if the writer is
// dead or its buffer is full; the hub treats either as a failed delivery.
func (cw *ClientWriter) trySend(msg []byte) bool {
	select {
	case <-cw.done:
		return false
	default:
	}

	select {
	case cw.sendCh <- msg:
		return true
	case <-cw.done:
		return false
	default:
		return false
	}
}

// markDead signals failure from inside the run loop. It never waits on the
// run goroutine (the run loop is the caller); the connection is closed so the
// session's read loop unblocks and tears the session down.
func (cw *ClientWriter) markDead() {
	cw.doneOnce.Do(func() { close(cw.done) })
	_ = cw.conn.Close()
}

func (cw *ClientWriter) stop() {
	cw.doneOnce.Do(func() { close(cw.done) })
	_ = cw.conn.Close()
	cw.wg.Wait()
}

// stopGraceful sends a close frame with reason before closing. If the writer
// already died on a failed write, the frame write fails silently on the
// closed connection.
func (cw *ClientWriter) stopGraceful(reason string) {
	cw.doneOnce.Do(func() { close(cw.done) })
	cw.wg.Wait()

	// Run goroutine has exited, safe to write the close frame.
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	cw.updateWriteDeadline()
	_ = cw.conn.WriteMessage(websocket.CloseMessage, closeMsg)
	_ = cw.conn.Close()
}

func (cw *ClientWriter) configurePongHandler() {
	cw.updateReadDeadline()
	cw.conn.SetPongHandler(func(string) error {
		cw.updateReadDeadline()
		return nil
	})
}

func (cw *ClientWriter) updateWriteDeadline() {
	_ = cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

func (cw *ClientWriter) updateReadDeadline() {
	_ = cw.conn.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}
