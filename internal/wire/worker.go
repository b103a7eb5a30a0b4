package wire

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrConnectionReset is raised on the exceptional-event channel when the
// socket errors, or when the broker goes silent for longer than
// 2*heartbeat. It is the sentinel internal/wire hands upward; the amqp
// package wraps it into its own typed ConnectionResetError.
var ErrConnectionReset = errors.New("wire: connection reset")

// FrameGroup is the atomic outbound enqueue unit: a method frame alone, or
// a method frame followed by exactly one header frame and its body frames.
// The writer goroutine never interleaves another group or a heartbeat
// inside a group's frames.
type FrameGroup []Frame

// shutdownSentinel, when received on the outbound queue, tells the writer
// goroutine to flush, close the socket, and exit.
type shutdownSentinel struct{}

func (shutdownSentinel) Channel() uint16 { return 0 }

// Worker owns the socket: one reader goroutine parses inbound frames and
// hands them to Demux, one writer goroutine drains the outbound queue and
// emits heartbeats. Nothing else touches conn directly.
type Worker struct {
	conn      net.Conn
	fw        *FrameWriter
	out       chan FrameGroup
	heartbeat int64 // time.Duration, accessed via atomic -- negotiated only after connection.tune

	// Demux routes a decoded inbound frame to channel 0 (the Connection) or
	// to the owning Channel's inbound queue. Set before Start.
	Demux func(Frame)

	// Errc receives exactly one error, wrapping ErrConnectionReset, when the
	// worker fails on a socket error, a frame decode error, or a heartbeat
	// timeout. A shutdown through Shutdown posts nothing. Buffered so neither
	// goroutine blocks posting it.
	Errc chan error

	closeOnce sync.Once
	done      chan struct{}
}

// NewWorker wraps an already-connected socket. heartbeat of 0 disables both
// the send-side keepalive and the receive-side timeout until SetHeartbeat is
// called, which is how Connection applies the value negotiated in
// connection.tune after Start has already launched both goroutines.
func NewWorker(conn net.Conn, heartbeat time.Duration) *Worker {
	return &Worker{
		conn:      conn,
		fw:        NewFrameWriter(conn),
		out:       make(chan FrameGroup, 64),
		heartbeat: int64(heartbeat),
		Errc:      make(chan error, 1),
		done:      make(chan struct{}),
	}
}

// SetHeartbeat updates the negotiated heartbeat interval. Safe to call
// concurrently with the reader/writer goroutines.
func (w *Worker) SetHeartbeat(d time.Duration) {
	atomic.StoreInt64(&w.heartbeat, int64(d))
}

func (w *Worker) currentHeartbeat() time.Duration {
	return time.Duration(atomic.LoadInt64(&w.heartbeat))
}

// Start launches the reader and writer goroutines. Demux must be set first.
func (w *Worker) Start() {
	go w.readLoop()
	go w.writeLoop()
}

// Enqueue hands one atomic frame group to the writer goroutine. The
// outbound queue is multi-producer/single-consumer: any application
// goroutine may call Enqueue concurrently.
func (w *Worker) Enqueue(group FrameGroup) {
	select {
	case w.out <- group:
	case <-w.done:
	}
}

// Shutdown enqueues the connection.close method (already framed by the
// caller as part of group) followed by the shutdown sentinel, so the
// writer flushes both before closing the socket.
func (w *Worker) Shutdown(closeGroup FrameGroup) {
	if len(closeGroup) > 0 {
		w.Enqueue(closeGroup)
	}
	select {
	case w.out <- FrameGroup{shutdownSentinel{}}:
	case <-w.done:
	}
}

func (w *Worker) fail(err error) {
	w.closeOnce.Do(func() {
		close(w.done)
		w.Errc <- fmt.Errorf("%w: %v", ErrConnectionReset, err)
		w.conn.Close()
	})
}

func (w *Worker) readLoop() {
	fr := newReader(w.conn)

	w.resetReadDeadline()

	for {
		frame, err := fr.ReadFrame()
		if err != nil {
			w.fail(err)
			return
		}

		if _, ok := frame.(*HeartbeatFrame); ok {
			w.resetReadDeadline()
			continue
		}

		if w.Demux != nil {
			w.Demux(frame)
		}

		w.resetReadDeadline()
	}
}

func (w *Worker) resetReadDeadline() {
	if hb := w.currentHeartbeat(); hb > 0 {
		w.conn.SetReadDeadline(time.Now().Add(2 * hb))
	} else {
		w.conn.SetReadDeadline(time.Time{})
	}
}

func (w *Worker) writeLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastSent := time.Now()

	for {
		select {
		case group, ok := <-w.out:
			if !ok {
				return
			}
			for _, f := range group {
				if _, isSentinel := f.(shutdownSentinel); isSentinel {
					w.closeOnce.Do(func() {
						close(w.done)
						w.conn.Close()
					})
					return
				}
				if err := w.fw.WriteFrame(f); err != nil {
					w.fail(err)
					return
				}
			}
			lastSent = time.Now()

		case <-ticker.C:
			hb := w.currentHeartbeat()
			if hb > 0 && time.Since(lastSent) >= hb {
				if err := w.fw.WriteFrame(&HeartbeatFrame{}); err != nil {
					w.fail(err)
					return
				}
				lastSent = time.Now()
			}

		case <-w.done:
			return
		}
	}
}
