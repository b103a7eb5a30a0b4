// Package wiretest is a fake AMQP broker built on net.Pipe, used by this
// module's own tests to script expected inbound methods and canned
// responses without a running RabbitMQ server. It speaks the wire protocol
// from the server side of the connection: it reads the raw protocol header
// by hand (the one thing that isn't a normal frame), then hands the rest of
// the socket to an internal/wire.Worker exactly as Connection does on the
// client side.
package wiretest

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/lucidmq/amqp/internal/wire"
)

// Broker is the server half of a net.Pipe. Tests dial it with
// amqp.Open(clientConn, cfg) on the other end, then drive the exchange with
// Expect/Send or the canned Handshake.
type Broker struct {
	conn net.Conn
	work *wire.Worker
	in   chan wire.Frame
}

// NewPipe returns a connected (clientConn, *Broker) pair. clientConn is
// passed to amqp.Open; the Broker reads/writes the other end.
func NewPipe() (net.Conn, *Broker) {
	client, server := net.Pipe()
	return client, NewBroker(server)
}

// NewBroker wraps an already-accepted connection's server side.
func NewBroker(conn net.Conn) *Broker {
	b := &Broker{conn: conn, in: make(chan wire.Frame, 64)}
	return b
}

// Start reads and discards the client's 8-byte protocol header, then starts
// the underlying frame worker. Must be called before Expect/Send.
func (b *Broker) Start() error {
	hdr := make([]byte, len(wire.ProtocolHeader))
	if _, err := io.ReadFull(b.conn, hdr); err != nil {
		return fmt.Errorf("wiretest: reading protocol header: %w", err)
	}

	b.work = wire.NewWorker(b.conn, 0)
	b.work.Demux = func(f wire.Frame) {
		select {
		case b.in <- f:
		default:
			// test scripts are expected to keep pace; drop rather than
			// block the reader goroutine if they don't.
		}
	}
	b.work.Start()
	return nil
}

// Close tears down the pipe.
func (b *Broker) Close() error {
	return b.conn.Close()
}

// Next blocks for the next inbound frame, failing after timeout.
func (b *Broker) Next(timeout time.Duration) (wire.Frame, error) {
	select {
	case f := <-b.in:
		return f, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("wiretest: timed out waiting for a frame")
	}
}

// ExpectMethod blocks for the next inbound method frame and asserts it
// matches classId/methodId, returning the decoded method.
func (b *Broker) ExpectMethod(timeout time.Duration, classId, methodId uint16) (wire.Method, error) {
	f, err := b.Next(timeout)
	if err != nil {
		return nil, err
	}
	mf, ok := f.(*wire.MethodFrame)
	if !ok {
		return nil, fmt.Errorf("wiretest: expected a method frame, got %T", f)
	}
	if mf.Method.ClassId() != classId || mf.Method.MethodId() != methodId {
		return nil, fmt.Errorf("wiretest: expected method class=%d method=%d, got class=%d method=%d",
			classId, methodId, mf.Method.ClassId(), mf.Method.MethodId())
	}
	return mf.Method, nil
}

// Send frames and writes a single method to the given channel.
func (b *Broker) Send(channelId uint16, m wire.Method) {
	b.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: channelId, Method: m}})
}

// SendContent frames and writes method m followed by a header/body sequence
// carrying payload, for basic.deliver/return/get-ok.
func (b *Broker) SendContent(channelId uint16, m wire.ContentMethod, props wire.Properties, payload []byte) {
	group := wire.FrameGroup{
		&wire.MethodFrame{ChannelId: channelId, Method: m},
		&wire.HeaderFrame{ChannelId: channelId, ClassId: m.ClassId(), BodySize: uint64(len(payload)), Properties: props},
	}
	if len(payload) > 0 {
		group = append(group, &wire.BodyFrame{ChannelId: channelId, Payload: payload})
	}
	b.work.Enqueue(group)
}

// HandshakeOpts overrides the canned values Handshake sends in
// connection.start/tune; zero values fall back to sensible defaults.
type HandshakeOpts struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
	Mechanisms string
}

// Handshake drives the server side of the standard connection handshake:
// connection.start, expect start-ok, connection.tune, expect tune-ok,
// expect connection.open, connection.open-ok. It is the sequence every
// Dial/Open call needs satisfied before any channel work can happen.
func (b *Broker) Handshake(opts HandshakeOpts) error {
	if opts.ChannelMax == 0 {
		opts.ChannelMax = 2047
	}
	if opts.FrameMax == 0 {
		opts.FrameMax = 131072
	}
	if opts.Mechanisms == "" {
		opts.Mechanisms = "PLAIN EXTERNAL"
	}

	b.Send(0, wire.ConnectionStart{
		VersionMajor:     0,
		VersionMinor:     9,
		ServerProperties: wire.Table{"product": "wiretest"},
		Mechanisms:       opts.Mechanisms,
		Locales:          "en_US",
	})
	if _, err := b.ExpectMethod(2*time.Second, 10, 11); err != nil { // connection.start-ok
		return err
	}

	b.Send(0, wire.ConnectionTune{ChannelMax: opts.ChannelMax, FrameMax: opts.FrameMax, Heartbeat: opts.Heartbeat})
	if _, err := b.ExpectMethod(2*time.Second, 10, 31); err != nil { // connection.tune-ok
		return err
	}

	if _, err := b.ExpectMethod(2*time.Second, 10, 40); err != nil { // connection.open
		return err
	}
	b.Send(0, wire.ConnectionOpenOk{})
	return nil
}

// OpenChannel drives the server side of a channel.open RPC on id, replying
// with channel.open-ok.
func (b *Broker) OpenChannel(id uint16) error {
	if _, err := b.ExpectMethod(2*time.Second, 20, 10); err != nil { // channel.open
		return err
	}
	b.Send(id, wire.ChannelOpenOk{})
	return nil
}
