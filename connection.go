// Copyright (c) 2012, Sean Treadway, SoundCloud Ltd.
// Use of this source code is governed by a BSD-style license; the frame
// dispatch and handshake structure here continues that lineage.

package amqp

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lucidmq/amqp/internal/event"
	"github.com/lucidmq/amqp/internal/wire"
)

// ConnectionState is the connection-level handshake/lifecycle state, spec
// section 3. Every transition except CloseWithCode's compare-and-swap from
// OPEN to CLOSING funnels through setState, which logs it.
type ConnectionState int32

const (
	StateClosed ConnectionState = iota
	StateProtocolHeaderSent
	StateStartReceived
	StateTuneReceived
	StateOpenSent
	StateOpen
	StateClosing
	StateClosedByServer
	StateClosedByClient
)

func (s ConnectionState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateProtocolHeaderSent:
		return "PROTOCOL_HEADER_SENT"
	case StateStartReceived:
		return "START_RECEIVED"
	case StateTuneReceived:
		return "TUNE_RECEIVED"
	case StateOpenSent:
		return "OPEN_SENT"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosedByServer:
		return "CLOSED_BY_SERVER"
	case StateClosedByClient:
		return "CLOSED_BY_CLIENT"
	default:
		return "UNKNOWN"
	}
}

// Blocking describes a connection.blocked/unblocked notification.
type Blocking struct {
	Active bool
	Reason string
}

// Config tunes the handshake, spec section 6. The zero value plus the URI's
// own defaults is what Dial uses.
type Config struct {
	SASL              []Authentication
	Vhost             string
	ChannelMax        int
	FrameSize         int
	Heartbeat         time.Duration
	Locale            string
	TLSClientConfig   *tls.Config
	ConnectionTimeout time.Duration
	Properties        wire.Table // extra client-properties entries merged into the advertised table
	Logger            *logrus.Logger
}

// Connection owns one TCP (or TLS) socket to a broker, multiplexing
// per-channel traffic over it through an internal/wire.Worker. Spec section
// 3 "Connection".
type Connection struct {
	cfg  Config
	conn net.Conn
	work *wire.Worker

	state int32 // ConnectionState, accessed via atomic

	allocator *channelAllocator

	mu       sync.Mutex
	channels map[uint16]*Channel
	closes   []chan *Error
	blockCh  []chan Blocking
	blocked  bool
	noNotify bool

	// ch0 decouples the reader goroutine from channel-0 control processing
	// (and from routing frames for an already-closed channel): demux only
	// ever pushes here, never blocks, and pump0 is the sole consumer.
	ch0 *event.Queue[wire.Frame]

	rpcWaiter *event.Waiter[wire.Method]
	rpcMu     sync.Mutex // serializes channel-0 RPCs; one in flight at a time

	shutdownOnce sync.Once
	errors       chan *Error

	Major, Minor int
	Properties   wire.Table

	log *logrus.Entry
}

// Dial connects to the broker named by uri (amqp:// or amqps://) using the
// URI's own defaults for heartbeat, channel-max, frame-max and connection
// timeout.
func Dial(uri string) (*Connection, error) {
	return DialConfig(uri, Config{})
}

// DialTLS is Dial with an explicit TLS client configuration for amqps://.
func DialTLS(uri string, tlsCfg *tls.Config) (*Connection, error) {
	return DialConfig(uri, Config{TLSClientConfig: tlsCfg})
}

// DialConfig parses uri, dials TCP (optionally upgrading to TLS), and runs
// the protocol handshake described in spec section 4.2.
func DialConfig(rawURI string, cfg Config) (*Connection, error) {
	parsed, err := ParseURI(rawURI)
	if err != nil {
		return nil, err
	}

	if cfg.SASL == nil {
		cfg.SASL = []Authentication{parsed.PlainAuth()}
	}
	if cfg.Vhost == "" {
		cfg.Vhost = parsed.Vhost
	}
	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = parsed.Heartbeat
	}
	if cfg.ChannelMax == 0 {
		cfg.ChannelMax = parsed.ChannelMax
	}
	if cfg.FrameSize == 0 {
		cfg.FrameSize = parsed.FrameSize
	}
	if cfg.Locale == "" {
		cfg.Locale = parsed.Locale
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = parsed.ConnectionTimeout
	}

	addr := net.JoinHostPort(parsed.Host, strconv.Itoa(parsed.Port))

	rawConn, err := net.DialTimeout("tcp", addr, cfg.ConnectionTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "amqp: dialing broker")
	}

	var conn net.Conn = rawConn

	if parsed.Scheme == "amqps" {
		tlsCfg := cfg.TLSClientConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{}
		} else {
			c := *tlsCfg
			tlsCfg = &c
		}
		if tlsCfg.ServerName == "" {
			if parsed.ServerName != "" {
				tlsCfg.ServerName = parsed.ServerName
			} else {
				tlsCfg.ServerName = parsed.Host
			}
		}
		if parsed.VerifyNone {
			tlsCfg.InsecureSkipVerify = true
		}

		client := tls.Client(conn, tlsCfg)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectionTimeout)
		err := client.HandshakeContext(ctx)
		cancel()
		if err != nil {
			rawConn.Close()
			return nil, errors.Wrap(err, "amqp: TLS handshake")
		}
		conn = client
	}

	return Open(conn, cfg)
}

// Open runs the handshake over an already-established transport. Used
// directly when the caller wants a custom net.Conn (e.g. a test pipe).
func Open(conn net.Conn, cfg Config) (*Connection, error) {
	c := &Connection{
		cfg:       cfg,
		conn:      conn,
		channels:  make(map[uint16]*Channel),
		errors:    make(chan *Error, 1),
		allocator: newChannelAllocator(1), // replaced with the negotiated channel-max after tune
		ch0:       event.NewQueue[wire.Frame](),
	}
	c.log = cfg.logger()

	c.work = wire.NewWorker(conn, 0) // heartbeat interval finalized after tune
	c.work.Demux = c.demux
	c.work.Start()

	go c.pump0()
	go c.watchWorkerErrors()

	if err := c.handshake(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// watchWorkerErrors turns a fatal socket/codec failure into a connection
// shutdown, since nothing else observes wire.Worker.Errc.
func (c *Connection) watchWorkerErrors() {
	err, ok := <-c.work.Errc
	if !ok || err == nil {
		return
	}
	c.shutdown(&Error{Code: ReplyInternalError, Reason: (&ConnectionResetError{Cause: err}).Error()}, StateClosedByServer)
}

func (c *Connection) setState(s ConnectionState) {
	old := ConnectionState(atomic.SwapInt32(&c.state, int32(s)))
	c.log.WithFields(logrus.Fields{"from": old.String(), "to": s.String()}).Debug("connection state transition")
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	return ConnectionState(atomic.LoadInt32(&c.state))
}

func (c *Connection) handshake(cfg Config) error {
	c.setState(StateProtocolHeaderSent)
	c.work.Enqueue(wire.FrameGroup{wire.ProtocolHeaderFrame{}})

	start, err := c.call0(nil)
	if err != nil {
		return err
	}
	startMethod, ok := start.(wire.ConnectionStart)
	if !ok {
		return errors.New("amqp: unexpected method during handshake, expected connection.start")
	}
	c.setState(StateStartReceived)

	c.Major = int(startMethod.VersionMajor)
	c.Minor = int(startMethod.VersionMinor)
	c.Properties = startMethod.ServerProperties

	sasl := cfg.SASL
	if externalEligible(sasl, startMethod.ServerProperties) {
		sasl = append([]Authentication{&ExternalAuth{}}, sasl...)
	}

	auth, ok := pickSASLMechanism(sasl, startMethod.Mechanisms)
	if !ok {
		return errors.New("amqp: no SASL mechanism in common with broker")
	}

	props := clientProperties(cfg.Properties)

	tune, err := c.call0(wire.ConnectionStartOk{
		ClientProperties: props,
		Mechanism:        auth.Mechanism(),
		Response:         auth.Response(),
		Locale:           cfg.Locale,
	})
	if err != nil {
		var refused *AccessRefusedError
		if errors.As(err, &refused) {
			return &AuthFailureError{Reason: refused.Reason}
		}
		return err
	}
	tuneMethod, ok := tune.(wire.ConnectionTune)
	if !ok {
		return errors.New("amqp: unexpected method during handshake, expected connection.tune")
	}
	c.setState(StateTuneReceived)

	channelMax := pickTuning(cfg.ChannelMax, int(tuneMethod.ChannelMax))
	frameSize := pickTuning(cfg.FrameSize, int(tuneMethod.FrameMax))
	heartbeatSecs := pickTuning(int(cfg.Heartbeat/time.Second), int(tuneMethod.Heartbeat))
	heartbeat := time.Duration(heartbeatSecs) * time.Second

	c.cfg.ChannelMax = channelMax
	c.cfg.FrameSize = frameSize
	c.cfg.Heartbeat = heartbeat
	c.allocator = newChannelAllocator(channelMax)

	c.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: 0, Method: wire.ConnectionTuneOk{
		ChannelMax: uint16(channelMax),
		FrameMax:   uint32(frameSize),
		Heartbeat:  uint16(heartbeatSecs),
	}}})
	c.work.SetHeartbeat(heartbeat)
	c.setState(StateOpenSent)

	openOk, err := c.call0(wire.ConnectionOpen{VirtualHost: cfg.Vhost})
	if err != nil {
		var refused *AccessRefusedError
		if errors.As(err, &refused) {
			return &AuthFailureError{Reason: refused.Reason}
		}
		return err
	}
	if _, ok := openOk.(wire.ConnectionOpenOk); !ok {
		return errors.New("amqp: unexpected method during handshake, expected connection.open-ok")
	}

	c.setState(StateOpen)
	return nil
}

// clientProperties advertises the RabbitMQ extension capabilities this
// client implements, spec section 4.2.
func clientProperties(extra wire.Table) wire.Table {
	t := wire.Table{
		"product": "lucidmq",
		"version": "1.0",
		"capabilities": wire.Table{
			"publisher_confirms":           true,
			"consumer_cancel_notify":       true,
			"basic.nack":                   true,
			"connection.blocked":           true,
			"authentication_failure_close": true,
		},
		"connection_name": uuid.NewString(),
	}
	for k, v := range extra {
		t[k] = v
	}
	return t
}

// externalEligible reports whether SASL EXTERNAL should be offered ahead of
// the configured mechanisms, spec section 4.2: only when the configured
// credentials are blank (a URI with an empty userinfo, for TLS client-cert
// auth) and the broker's own capabilities table negotiates
// authentication_failure_close.
func externalEligible(sasl []Authentication, serverProps wire.Table) bool {
	if !hasBlankPlainAuth(sasl) {
		return false
	}
	caps, _ := serverProps["capabilities"].(wire.Table)
	negotiated, _ := caps["authentication_failure_close"].(bool)
	return negotiated
}

func hasBlankPlainAuth(sasl []Authentication) bool {
	for _, a := range sasl {
		if p, ok := a.(*PlainAuth); ok {
			return p.Username == "" && p.Password == ""
		}
	}
	return false
}

// pickTuning applies the AMQP tuning rule: 0 from either side means "no
// preference, take the other side's value"; otherwise the lower of the two
// wins.
func pickTuning(client, server int) int {
	if client == 0 || server == 0 {
		if client > server {
			return client
		}
		return server
	}
	if client > server {
		return server
	}
	return client
}

// call0 performs one synchronous channel-0 RPC: enqueue req (nil for the
// protocol header's implicit reply-wait), then block for the next method
// frame Connection demuxes to channel 0.
func (c *Connection) call0(req wire.Method) (wire.Method, error) {
	c.rpcMu.Lock()
	defer c.rpcMu.Unlock()

	w := event.NewWaiter[wire.Method]()

	c.mu.Lock()
	c.rpcWaiter = w
	c.mu.Unlock()

	if req != nil {
		c.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: 0, Method: req}})
	}

	deadline := c.cfg.ConnectionTimeout
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	m, err := w.Wait(ctx)

	c.mu.Lock()
	c.rpcWaiter = nil
	c.mu.Unlock()

	return m, err
}

// demux routes one inbound frame to channel 0's control queue or to the
// owning Channel's inbound queue, spec section 4.1. Called from the
// worker's reader goroutine; never blocks, so one stalled channel's
// consumer or Notify listener can never freeze frame processing for the
// rest of the connection -- spec sections 3-5.
func (c *Connection) demux(f wire.Frame) {
	if f.Channel() == 0 {
		c.ch0.Push(f)
		return
	}
	c.dispatchN(f)
}

// pump0 is channel 0's reassembly pump: the sole consumer of ch0, running
// on its own goroutine so that a stalled NotifyClose/NotifyBlocked
// listener only blocks further channel-0 processing, never the reader.
func (c *Connection) pump0() {
	for {
		f, ok := c.ch0.Pop()
		if !ok {
			return
		}
		if f.Channel() == 0 {
			c.dispatch0(f)
		} else {
			c.dispatchClosed(f)
		}
	}
}

func (c *Connection) dispatch0(f wire.Frame) {
	mf, ok := f.(*wire.MethodFrame)
	if !ok {
		c.closeWith(newError(ReplyUnexpectedFrame, "expected method frame on channel 0", 0, 0))
		return
	}

	switch m := mf.Method.(type) {
	case wire.ConnectionClose:
		c.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: 0, Method: wire.ConnectionCloseOk{}}})
		c.shutdown(newError(m.ReplyCode, m.ReplyText, m.ClassId_, m.MethodId_), StateClosedByServer)
	case wire.ConnectionCloseOk:
		c.resolveRPC(m)
	case wire.ConnectionBlocked:
		c.setBlocked(true, m.Reason)
	case wire.ConnectionUnblocked:
		c.setBlocked(false, "")
	default:
		c.resolveRPC(m)
	}
}

func (c *Connection) resolveRPC(m wire.Method) {
	c.mu.Lock()
	w := c.rpcWaiter
	c.mu.Unlock()
	if w != nil {
		w.Resolve(m)
	}
}

func (c *Connection) dispatchN(f wire.Frame) {
	c.mu.Lock()
	ch := c.channels[f.Channel()]
	c.mu.Unlock()

	if ch == nil {
		c.ch0.Push(f)
		return
	}
	ch.inbox.Push(f)
}

// dispatchClosed answers a stray channel.close with channel.close-ok (spec
// section 2.3.7's race between a channel exception and an
// application-issued close), drops a stray close-ok or content frame, and
// treats any other method as a protocol violation fatal to the connection.
func (c *Connection) dispatchClosed(f wire.Frame) {
	mf, ok := f.(*wire.MethodFrame)
	if !ok {
		return
	}
	switch mf.Method.(type) {
	case wire.ChannelClose:
		c.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: f.Channel(), Method: wire.ChannelCloseOk{}}})
	case wire.ChannelCloseOk:
		// already closed locally; nothing to do
	default:
		c.closeWith(newError(ReplyUnexpectedFrame, "frame for unknown channel", 0, 0))
	}
}

func (c *Connection) setBlocked(active bool, reason string) {
	c.mu.Lock()
	c.blocked = active
	listeners := append([]chan Blocking(nil), c.blockCh...)
	c.mu.Unlock()

	for _, ch := range listeners {
		ch <- Blocking{Active: active, Reason: reason}
	}
}

// IsBlocked reports whether the broker has asked the client to stop
// publishing via connection.blocked. Informational only -- spec section
// 4.2 promises no automatic throttling.
func (c *Connection) IsBlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked
}

// NotifyClose registers ch for close notifications. On a clean shutdown
// the channel is just closed; on an error-driven shutdown the error is
// sent once before the channel is closed.
func (c *Connection) NotifyClose(ch chan *Error) chan *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.noNotify {
		close(ch)
	} else {
		c.closes = append(c.closes, ch)
	}
	return ch
}

// NotifyBlocked registers ch for connection.blocked/unblocked notifications.
func (c *Connection) NotifyBlocked(ch chan Blocking) chan Blocking {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.noNotify {
		close(ch)
	} else {
		c.blockCh = append(c.blockCh, ch)
	}
	return ch
}

// Channel allocates the lowest free channel id and opens a Channel on it,
// spec section 4.2 "channel()".
func (c *Connection) Channel() (*Channel, error) {
	if c.State() != StateOpen {
		return nil, &ConnectionClosedError{}
	}

	id, err := c.allocator.Allocate()
	if err != nil {
		return nil, err
	}

	ch := newChannel(c, id)

	c.mu.Lock()
	c.channels[id] = ch
	c.mu.Unlock()

	if err := ch.open(); err != nil {
		c.allocator.Release(id)
		c.mu.Lock()
		delete(c.channels, id)
		c.mu.Unlock()
		return nil, err
	}

	return ch, nil
}

// removeChannel drops ch from the registry and frees its id; called when a
// channel fully closes, whatever the cause.
func (c *Connection) removeChannel(id uint16) {
	c.mu.Lock()
	delete(c.channels, id)
	c.mu.Unlock()
	c.allocator.Release(id)
}

// Close requests a graceful shutdown, spec section 4.2 "close()".
func (c *Connection) Close() error {
	return c.CloseWithCode(ReplySuccess, "normal shutdown")
}

// CloseWithCode lets the caller supply a non-default reply code/text.
func (c *Connection) CloseWithCode(code uint16, text string) error {
	if !atomic.CompareAndSwapInt32(&c.state, int32(StateOpen), int32(StateClosing)) {
		return nil // already closing or closed
	}

	c.mu.Lock()
	open := make([]*Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		open = append(open, ch)
	}
	c.mu.Unlock()

	for _, ch := range open {
		_ = ch.Close()
	}

	_, err := c.call0(wire.ConnectionClose{ReplyCode: code, ReplyText: text})

	c.shutdown(nil, StateClosedByClient)

	return err
}

// shutdown is the single terminal path for a Connection: it fans the final
// error out to every NotifyClose listener and every open Channel, then
// tells the worker to flush and close the socket. Guarded by sync.Once so
// it is safe to call re-entrantly from pump0's dispatch0/dispatchClosed,
// from watchWorkerErrors, and from Close.
func (c *Connection) shutdown(err *Error, finalState ConnectionState) {
	c.shutdownOnce.Do(func() {
		c.setState(finalState)

		c.mu.Lock()
		channels := make([]*Channel, 0, len(c.channels))
		for _, ch := range c.channels {
			channels = append(channels, ch)
		}
		c.channels = make(map[uint16]*Channel)
		closes := c.closes
		blocks := c.blockCh
		c.noNotify = true
		c.mu.Unlock()

		for _, ch := range channels {
			ch.connectionClosed(err)
		}

		if w := c.currentRPCWaiter(); w != nil && err != nil {
			w.Fail(err.Typed())
		}

		if err != nil {
			for _, nc := range closes {
				nc <- err
			}
			select {
			case c.errors <- err:
			default:
			}
		}

		c.work.Shutdown(nil)
		c.ch0.Close()

		for _, nc := range closes {
			close(nc)
		}
		for _, bc := range blocks {
			close(bc)
		}
	})
}

func (c *Connection) currentRPCWaiter() *event.Waiter[wire.Method] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rpcWaiter
}

func (c *Connection) closeWith(err *Error) {
	c.shutdown(err, StateClosedByClient)
}

// Scoped opens a block-scoped use of c: fn's error (or a panic) is always
// followed by Close, satisfying the "exactly once, on every exit path"
// property from spec section 8.
func (c *Connection) Scoped(fn func(*Connection) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.Close()
			panic(r)
		}
	}()
	if err = fn(c); err != nil {
		c.Close()
		return err
	}
	return c.Close()
}
