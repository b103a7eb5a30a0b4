// Copyright (c) 2012, Sean Treadway, SoundCloud Ltd.
// Use of this source code is governed by a BSD-style license; the frame
// dispatch and handshake structure here continues that lineage.

package amqp

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/lucidmq/amqp/internal/event"
	"github.com/lucidmq/amqp/internal/wire"
)

// ChannelState mirrors ConnectionState but scoped to one channel, spec
// section 3 "Channel".
type ChannelState int32

const (
	ChannelClosedState ChannelState = iota
	ChannelOpening
	ChannelOpen
	ChannelClosing
	ChannelRemoteClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelClosedState:
		return "CLOSED"
	case ChannelOpening:
		return "OPENING"
	case ChannelOpen:
		return "OPEN"
	case ChannelClosing:
		return "CLOSING"
	case ChannelRemoteClosed:
		return "REMOTE_CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Channel is one logical session multiplexed over a Connection's socket,
// spec section 3. Every RPC (and every Publish in confirm mode) blocks the
// calling goroutine until the broker replies, a broker-initiated close
// arrives, or the connection dies; Ack, Nack, Reject and a Publish outside
// confirm mode return as soon as their frames are enqueued. At most one RPC
// is ever in flight per Channel.
type Channel struct {
	conn *Connection
	id   uint16

	state int32 // ChannelState, accessed via atomic

	rpcMu     sync.Mutex
	rpcWaiter *event.Waiter[wire.Method]

	mu       sync.Mutex
	closes   []chan *Error
	flows    []chan bool
	cancels  []chan string
	returns  []chan Return
	confirms []chan Confirmation
	noNotify bool

	confirmsEnabled bool
	confirmSeq      uint64
	pendingAcks     map[uint64]bool // true once broker has acked/nacked

	// pubMu serializes publishes made while confirms are enabled: only one
	// outstanding confirm-publish waits at a time, so a basic.return (which
	// carries no delivery-tag) can be attributed to it unambiguously.
	pubMu     sync.Mutex
	pubWaiter *event.Waiter[confirmOutcome]
	pubTag    uint64

	txEnabled bool

	flowActive bool
	flowCond   *sync.Cond

	// inbox decouples the Connection's reader goroutine from this channel's
	// own frame processing: dispatchN only ever pushes here, never blocks,
	// and pump is the sole consumer. A consumer goroutine that doesn't
	// drain Consume's delivery channel (or a stalled Notify listener) only
	// stalls this channel's pump, never the reader or any other channel --
	// spec sections 3-5.
	inbox *event.Queue[wire.Frame]

	consumersMu sync.Mutex
	consumers   map[string]chan Delivery

	// assembly state for the single in-flight content sequence this
	// channel may be receiving at any moment (basic.deliver / basic.return
	// / basic.get-ok + header + body...), spec section 2.3.6.
	assembly contentAssembly

	log *logrus.Entry
}

// Return is a message bounced back by the broker from a mandatory or
// immediate basic.publish that could not be routed, spec section 3.1.2.
type Return struct {
	ReplyCode  uint16
	ReplyText  string
	Exchange   string
	RoutingKey string
	Properties Properties
	Body       []byte
}

// Confirmation is one publisher-confirm outcome, spec section 3.4.
type Confirmation struct {
	DeliveryTag uint64
	Ack         bool
}

// confirmOutcome is the internal resolution of one confirm-mode Publish
// call: either an ack/nack, or a MessageReturnedError when the broker
// bounced the message back via basic.return instead.
type confirmOutcome struct {
	ack bool
	err error
}

// contentAssembly reassembles one method+header+body... sequence into a
// single in-memory message, tracking which content method started it.
type contentAssembly struct {
	active   bool
	method   wire.ContentMethod
	class    uint16
	size     uint64
	received uint64
	props    wire.Properties
	body     []byte
}

func newChannel(conn *Connection, id uint16) *Channel {
	ch := &Channel{
		conn:        conn,
		id:          id,
		pendingAcks: make(map[uint64]bool),
		flowActive:  true,
		consumers:   make(map[string]chan Delivery),
		inbox:       event.NewQueue[wire.Frame](),
		log:         conn.log.WithField("channel", id),
	}
	ch.flowCond = sync.NewCond(&ch.mu)
	go ch.pump()
	return ch
}

// pump is this channel's reassembly pump, spec section 4.4/5: the sole
// consumer of inbox, running on its own goroutine so that recv's downstream
// work (content reassembly, delivery/Notify fan-out) never shares a call
// stack with the Connection's reader goroutine.
func (ch *Channel) pump() {
	for {
		f, ok := ch.inbox.Pop()
		if !ok {
			return
		}
		ch.recv(f)
	}
}

func (ch *Channel) setState(s ChannelState) {
	atomic.StoreInt32(&ch.state, int32(s))
}

// State returns the channel's current lifecycle state.
func (ch *Channel) State() ChannelState {
	return ChannelState(atomic.LoadInt32(&ch.state))
}

// Id returns the channel number allocated by Connection.Channel.
func (ch *Channel) Id() uint16 { return ch.id }

func (ch *Channel) open() error {
	ch.setState(ChannelOpening)
	_, err := ch.rpc(context.Background(), wire.ChannelOpen{})
	if err != nil {
		ch.setState(ChannelClosedState)
		return err
	}
	ch.setState(ChannelOpen)
	return nil
}

// rpc sends req (framed on this channel) and blocks for the matching
// synchronous reply. Only one rpc call may be in flight on a Channel at a
// time, enforced by rpcMu -- this is the single-in-flight-RPC discipline
// spec section 4 calls for.
func (ch *Channel) rpc(ctx context.Context, req wire.Method) (wire.Method, error) {
	ch.rpcMu.Lock()
	defer ch.rpcMu.Unlock()

	if ch.State() == ChannelClosedState || ch.State() == ChannelRemoteClosed {
		return nil, &ChannelClosedError{}
	}
	if _, isClose := req.(wire.ChannelClose); ch.State() == ChannelClosing && !isClose {
		return nil, &ChannelClosedError{}
	}

	w := event.NewWaiter[wire.Method]()
	ch.mu.Lock()
	ch.rpcWaiter = w
	ch.mu.Unlock()

	ch.conn.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: ch.id, Method: req}})

	m, err := w.Wait(ctx)

	ch.mu.Lock()
	ch.rpcWaiter = nil
	ch.mu.Unlock()

	return m, err
}

// recv handles one inbound frame demuxed to this channel. Called only from
// this channel's own pump goroutine -- it may block (e.g. completeAssembly
// delivering to a slow consumer) without affecting any other channel.
func (ch *Channel) recv(f wire.Frame) {
	switch v := f.(type) {
	case *wire.MethodFrame:
		ch.recvMethod(v.Method)
	case *wire.HeaderFrame:
		ch.recvHeader(v)
	case *wire.BodyFrame:
		ch.recvBody(v)
	}
}

func (ch *Channel) recvMethod(m wire.Method) {
	switch v := m.(type) {
	case wire.ChannelClose:
		ch.conn.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: ch.id, Method: wire.ChannelCloseOk{}}})
		ch.closeFromBroker(newError(v.ReplyCode, v.ReplyText, v.ClassId_, v.MethodId_))
		return
	case wire.ChannelCloseOk:
		ch.resolveRPC(v)
		return
	case wire.ChannelFlow:
		ch.conn.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: ch.id, Method: wire.ChannelFlowOk{Active: v.Active}}})
		ch.notifyFlow(v.Active)
		return
	case wire.BasicCancel:
		ch.notifyCancel(v.ConsumerTag)
		if !v.NoWait {
			ch.conn.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: ch.id, Method: wire.BasicCancelOk{ConsumerTag: v.ConsumerTag}}})
		}
		return
	case wire.BasicAck:
		ch.settleConfirms(v.DeliveryTag, v.Multiple, true)
		return
	case wire.BasicNack:
		ch.settleConfirms(v.DeliveryTag, v.Multiple, false)
		return
	case wire.BasicDeliver:
		ch.assembly = contentAssembly{active: true, method: v, class: wire.BasicDeliver{}.ClassId()}
		return
	case wire.BasicReturn:
		ch.assembly = contentAssembly{active: true, method: v, class: wire.BasicReturn{}.ClassId()}
		return
	case wire.BasicGetOk:
		ch.assembly = contentAssembly{active: true, method: v, class: wire.BasicGetOk{}.ClassId()}
		return
	case wire.BasicGetEmpty:
		ch.resolveRPC(v)
		return
	default:
		ch.resolveRPC(m)
	}
}

func (ch *Channel) recvHeader(h *wire.HeaderFrame) {
	if !ch.assembly.active {
		return
	}
	ch.assembly.props = h.Properties
	ch.assembly.size = h.BodySize
	ch.assembly.received = 0
	if h.BodySize == 0 {
		ch.completeAssembly()
	}
}

func (ch *Channel) recvBody(b *wire.BodyFrame) {
	if !ch.assembly.active {
		return
	}
	ch.assembly.body = append(ch.assembly.body, b.Payload...)
	ch.assembly.received += uint64(len(b.Payload))
	if ch.assembly.received >= ch.assembly.size {
		ch.completeAssembly()
	}
}

func (ch *Channel) completeAssembly() {
	a := ch.assembly
	ch.assembly = contentAssembly{}

	props := fromWireProperties(a.props)

	switch m := a.method.(type) {
	case wire.BasicDeliver:
		ch.consumersMu.Lock()
		c, ok := ch.consumers[m.ConsumerTag]
		ch.consumersMu.Unlock()
		if !ok {
			return
		}
		c <- Delivery{
			channel:     ch,
			ConsumerTag: m.ConsumerTag,
			DeliveryTag: m.DeliveryTag,
			Redelivered: m.Redelivered,
			Exchange:    m.Exchange,
			RoutingKey:  m.RoutingKey,
			Properties:  props,
			Body:        a.body,
		}
	case wire.BasicReturn:
		ch.mu.Lock()
		listeners := append([]chan Return(nil), ch.returns...)
		w := ch.pubWaiter
		ch.pubWaiter = nil
		ch.mu.Unlock()
		ret := Return{
			ReplyCode:  m.ReplyCode,
			ReplyText:  m.ReplyText,
			Exchange:   m.Exchange,
			RoutingKey: m.RoutingKey,
			Properties: props,
			Body:       a.body,
		}
		for _, l := range listeners {
			l <- ret
		}
		if w != nil {
			w.Resolve(confirmOutcome{err: &MessageReturnedError{
				ReplyCode:  m.ReplyCode,
				ReplyText:  m.ReplyText,
				Exchange:   m.Exchange,
				RoutingKey: m.RoutingKey,
			}})
		}
	case wire.BasicGetOk:
		ch.resolveRPC(getOkResult{
			DeliveryTag:  m.DeliveryTag,
			Redelivered:  m.Redelivered,
			Exchange:     m.Exchange,
			RoutingKey:   m.RoutingKey,
			MessageCount: m.MessageCount,
			Properties:   props,
			Body:         a.body,
		})
	}
}

// getOkResult is the channel-internal Method stand-in used so basic.get's
// two-frame-group reply (method + content, or just method for get-empty)
// can travel through the same rpc() waiter as any other RPC.
type getOkResult struct {
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount uint32
	Properties   Properties
	Body         []byte
}

func (getOkResult) ClassId() uint16  { return 60 }
func (getOkResult) MethodId() uint16 { return 71 }

func (ch *Channel) resolveRPC(m wire.Method) {
	ch.mu.Lock()
	w := ch.rpcWaiter
	ch.mu.Unlock()
	if w != nil {
		w.Resolve(m)
	}
}

func (ch *Channel) notifyFlow(active bool) {
	ch.mu.Lock()
	ch.flowActive = active
	listeners := append([]chan bool(nil), ch.flows...)
	if active {
		ch.flowCond.Broadcast()
	}
	ch.mu.Unlock()
	for _, l := range listeners {
		l <- active
	}
}

func (ch *Channel) notifyCancel(tag string) {
	ch.consumersMu.Lock()
	c, ok := ch.consumers[tag]
	if ok {
		delete(ch.consumers, tag)
	}
	ch.consumersMu.Unlock()
	if ok {
		close(c)
	}

	ch.mu.Lock()
	listeners := append([]chan string(nil), ch.cancels...)
	ch.mu.Unlock()
	for _, l := range listeners {
		l <- tag
	}
}

// settleConfirms resolves one or more pending publisher-confirm entries.
// multiple mirrors basic.ack/nack's cumulative-acknowledgement bit: every
// outstanding tag up to and including deliveryTag settles at once.
func (ch *Channel) settleConfirms(deliveryTag uint64, multiple, ack bool) {
	ch.mu.Lock()
	listeners := append([]chan Confirmation(nil), ch.confirms...)
	var settled []uint64
	if multiple {
		for tag := range ch.pendingAcks {
			if tag <= deliveryTag {
				settled = append(settled, tag)
			}
		}
	} else {
		settled = []uint64{deliveryTag}
	}
	for _, tag := range settled {
		delete(ch.pendingAcks, tag)
	}

	var w *event.Waiter[confirmOutcome]
	if ch.pubWaiter != nil {
		for _, tag := range settled {
			if tag == ch.pubTag {
				w = ch.pubWaiter
				ch.pubWaiter = nil
				break
			}
		}
	}
	ch.mu.Unlock()

	if w != nil {
		w.Resolve(confirmOutcome{ack: ack})
	}

	for _, tag := range settled {
		c := Confirmation{DeliveryTag: tag, Ack: ack}
		for _, l := range listeners {
			l <- c
		}
	}
}

// NotifyClose registers ch for close notifications, identically to
// Connection.NotifyClose but scoped to this channel.
func (ch *Channel) NotifyClose(c chan *Error) chan *Error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.noNotify {
		close(c)
	} else {
		ch.closes = append(ch.closes, c)
	}
	return c
}

// NotifyFlow registers c for channel.flow active/inactive notifications.
func (ch *Channel) NotifyFlow(c chan bool) chan bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.flows = append(ch.flows, c)
	return c
}

// NotifyCancel registers c for broker-initiated basic.cancel notifications
// (consumer tag of the cancelled consumer), spec section 3.3.
func (ch *Channel) NotifyCancel(c chan string) chan string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.cancels = append(ch.cancels, c)
	return c
}

// NotifyReturn registers c for mandatory/immediate basic.return messages.
func (ch *Channel) NotifyReturn(c chan Return) chan Return {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.returns = append(ch.returns, c)
	return c
}

// NotifyPublish registers c for publisher-confirm outcomes. Only
// meaningful after Confirm has been called.
func (ch *Channel) NotifyPublish(c chan Confirmation) chan Confirmation {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.confirms = append(ch.confirms, c)
	return c
}

// Confirm puts the channel into publisher-confirm mode (confirm.select),
// spec section 3.4. Mutually exclusive with Tx.
func (ch *Channel) Confirm(noWait bool) error {
	ch.mu.Lock()
	if ch.txEnabled {
		ch.mu.Unlock()
		return localNotAllowed("cannot enable confirms on a transactional channel")
	}
	ch.mu.Unlock()

	_, err := ch.rpc(context.Background(), wire.ConfirmSelect{NoWait: noWait})
	if err != nil {
		return err
	}
	ch.mu.Lock()
	ch.confirmsEnabled = true
	ch.mu.Unlock()
	return nil
}

// Close requests a graceful channel shutdown, spec section 4.2 "close()"
// scoped to a channel.
func (ch *Channel) Close() error {
	if !atomic.CompareAndSwapInt32(&ch.state, int32(ChannelOpen), int32(ChannelClosing)) {
		return nil
	}

	_, err := ch.rpc(context.Background(), wire.ChannelClose{ReplyCode: ReplySuccess, ReplyText: "normal shutdown"})

	ch.finalize(nil, ChannelClosedState)
	ch.conn.removeChannel(ch.id)

	return err
}

func (ch *Channel) closeFromBroker(err *Error) {
	ch.finalize(err, ChannelRemoteClosed)
	ch.conn.removeChannel(ch.id)
}

// connectionClosed is invoked by Connection.shutdown for every channel
// still registered when the connection itself dies.
func (ch *Channel) connectionClosed(err *Error) {
	ch.finalize(err, ChannelRemoteClosed)
}

func (ch *Channel) finalize(err *Error, state ChannelState) {
	ch.setState(state)

	ch.mu.Lock()
	closes := ch.closes
	ch.noNotify = true
	w := ch.rpcWaiter
	pw := ch.pubWaiter
	ch.pubWaiter = nil
	ch.flowActive = true
	ch.flowCond.Broadcast()
	ch.mu.Unlock()

	if w != nil && err != nil {
		w.Fail(err.Typed())
	}
	if pw != nil {
		if err != nil {
			pw.Fail(err.Typed())
		} else {
			pw.Fail(&ChannelClosedError{})
		}
	}

	ch.consumersMu.Lock()
	consumers := ch.consumers
	ch.consumers = make(map[string]chan Delivery)
	ch.consumersMu.Unlock()
	for _, c := range consumers {
		close(c)
	}

	if err != nil {
		for _, nc := range closes {
			nc <- err
		}
	}
	for _, nc := range closes {
		close(nc)
	}

	ch.inbox.Close()
}

// Scoped opens a block-scoped use of ch: fn's error (or a panic) is always
// followed by Close.
func (ch *Channel) Scoped(fn func(*Channel) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ch.Close()
			panic(r)
		}
	}()
	if err = fn(ch); err != nil {
		ch.Close()
		return err
	}
	return ch.Close()
}

// Qos sets the prefetch limits applied to consumers on this channel, spec
// section 3.3.
func (ch *Channel) Qos(prefetchCount int, prefetchSize int, global bool) error {
	_, err := ch.rpc(context.Background(), wire.BasicQos{
		PrefetchSize:  uint32(prefetchSize),
		PrefetchCount: uint16(prefetchCount),
		Global:        global,
	})
	return err
}

// Publish sends a message, spec section 3.2 / 4.4. If the channel is in
// confirm mode, Publish blocks after sending the content frames until the
// broker settles this delivery-tag: it returns (true, nil) on basic.ack,
// (false, nil) on basic.nack, or a *MessageReturnedError if a mandatory
// publish was bounced back via basic.return. Otherwise -- fire-and-forget,
// including inside a transaction -- it returns (true, nil) as soon as the
// frames are enqueued. While channel.flow has paused this channel
// (active=false), Publish blocks before sending anything.
func (ch *Channel) Publish(exchange, routingKey string, mandatory, immediate bool, msg Publishing) (bool, error) {
	if ch.State() != ChannelOpen {
		return false, &ChannelClosedError{}
	}

	ch.mu.Lock()
	for !ch.flowActive {
		ch.flowCond.Wait()
	}
	confirming := ch.confirmsEnabled
	ch.mu.Unlock()

	if confirming {
		ch.pubMu.Lock()
		defer ch.pubMu.Unlock()
	}

	ch.mu.Lock()
	var tag uint64
	var w *event.Waiter[confirmOutcome]
	if confirming {
		ch.confirmSeq++
		tag = ch.confirmSeq
		ch.pendingAcks[tag] = false
		w = event.NewWaiter[confirmOutcome]()
		ch.pubWaiter = w
		ch.pubTag = tag
	}
	ch.mu.Unlock()

	group := wire.FrameGroup{
		&wire.MethodFrame{ChannelId: ch.id, Method: wire.BasicPublish{
			Exchange:   exchange,
			RoutingKey: routingKey,
			Mandatory:  mandatory,
			Immediate:  immediate,
		}},
		&wire.HeaderFrame{
			ChannelId:  ch.id,
			ClassId:    wire.BasicPublish{}.ClassId(),
			BodySize:   uint64(len(msg.Body)),
			Properties: msg.toWire(),
		},
	}
	for _, chunk := range chunkBody(msg.Body, maxFrameBody(ch.conn.cfg.FrameSize)) {
		group = append(group, &wire.BodyFrame{ChannelId: ch.id, Payload: chunk})
	}

	ch.conn.work.Enqueue(group)

	if !confirming {
		return true, nil
	}

	outcome, err := w.Wait(context.Background())
	if err != nil {
		return false, err
	}
	if outcome.err != nil {
		return false, outcome.err
	}
	return outcome.ack, nil
}

func maxFrameBody(negotiated int) int {
	const defaultMax = 131072
	if negotiated <= 0 {
		return defaultMax
	}
	if negotiated <= 8 {
		return defaultMax
	}
	return negotiated - 8
}

func chunkBody(body []byte, size int) [][]byte {
	if len(body) == 0 {
		return nil
	}
	var chunks [][]byte
	for len(body) > 0 {
		n := size
		if n > len(body) {
			n = len(body)
		}
		chunks = append(chunks, body[:n])
		body = body[n:]
	}
	return chunks
}

// Get performs a synchronous basic.get against queue, spec section 3.1.4.
// ok is false when the queue was empty.
func (ch *Channel) Get(queue string, noAck bool) (Delivery, bool, error) {
	res, err := ch.rpc(context.Background(), wire.BasicGet{Queue: queue, NoAck: noAck})
	if err != nil {
		return Delivery{}, false, err
	}
	if _, empty := res.(wire.BasicGetEmpty); empty {
		return Delivery{}, false, nil
	}
	g := res.(getOkResult)
	return Delivery{
		channel:      ch,
		DeliveryTag:  g.DeliveryTag,
		Redelivered:  g.Redelivered,
		Exchange:     g.Exchange,
		RoutingKey:   g.RoutingKey,
		MessageCount: g.MessageCount,
		Properties:   g.Properties,
		Body:         g.Body,
	}, true, nil
}

// Ack acknowledges one or more deliveries, spec section 3.1.5.
func (ch *Channel) Ack(deliveryTag uint64, multiple bool) error {
	ch.conn.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: ch.id, Method: wire.BasicAck{DeliveryTag: deliveryTag, Multiple: multiple}}})
	return nil
}

// Nack negatively acknowledges one or more deliveries, spec section 3.1.5.
func (ch *Channel) Nack(deliveryTag uint64, multiple, requeue bool) error {
	ch.conn.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: ch.id, Method: wire.BasicNack{DeliveryTag: deliveryTag, Multiple: multiple, Requeue: requeue}}})
	return nil
}

// Reject refuses a single delivery, spec section 3.1.5.
func (ch *Channel) Reject(deliveryTag uint64, requeue bool) error {
	ch.conn.work.Enqueue(wire.FrameGroup{&wire.MethodFrame{ChannelId: ch.id, Method: wire.BasicReject{DeliveryTag: deliveryTag, Requeue: requeue}}})
	return nil
}

// Recover asks the broker to redeliver un-acked messages on this channel,
// spec section 3.1.6.
func (ch *Channel) Recover(requeue bool) error {
	_, err := ch.rpc(context.Background(), wire.BasicRecover{Requeue: requeue})
	return err
}

// Consume starts a consumer on queue and returns the channel carrying
// deliveries, spec section 3.3. The returned channel is closed when the
// consumer is cancelled, locally or by the broker.
func (ch *Channel) Consume(queue, consumerTag string, noLocal, noAck, exclusive, noWait bool, args wire.Table) (<-chan Delivery, error) {
	res, err := ch.rpc(context.Background(), wire.BasicConsume{
		Queue:       queue,
		ConsumerTag: consumerTag,
		NoLocal:     noLocal,
		NoAck:       noAck,
		Exclusive:   exclusive,
		NoWait:      noWait,
		Arguments:   args,
	})
	if err != nil {
		return nil, err
	}

	tag := consumerTag
	if ok, isOk := res.(wire.BasicConsumeOk); isOk {
		tag = ok.ConsumerTag
	}

	deliveries := make(chan Delivery)
	ch.consumersMu.Lock()
	ch.consumers[tag] = deliveries
	ch.consumersMu.Unlock()

	return deliveries, nil
}

// Cancel stops a consumer, spec section 3.3.
func (ch *Channel) Cancel(consumerTag string, noWait bool) error {
	_, err := ch.rpc(context.Background(), wire.BasicCancel{ConsumerTag: consumerTag, NoWait: noWait})

	ch.consumersMu.Lock()
	c, ok := ch.consumers[consumerTag]
	if ok {
		delete(ch.consumers, consumerTag)
	}
	ch.consumersMu.Unlock()
	if ok {
		close(c)
	}

	return err
}

// Flow asks the broker to pause or resume deliveries to this channel's
// consumers, spec section 3.3. While the broker holds the channel inactive,
// Publish blocks before sending; a publish already in flight when
// channel.flow(active=false) arrives is unaffected.
func (ch *Channel) Flow(active bool) error {
	_, err := ch.rpc(context.Background(), wire.ChannelFlow{Active: active})
	return err
}

// Tx puts the channel into transactional mode (tx.select), spec section
// 3.5. Mutually exclusive with Confirm.
func (ch *Channel) Tx() error {
	ch.mu.Lock()
	if ch.confirmsEnabled {
		ch.mu.Unlock()
		return localNotAllowed("cannot enable transactions on a confirm-mode channel")
	}
	ch.mu.Unlock()

	_, err := ch.rpc(context.Background(), wire.TxSelect{})
	if err != nil {
		return err
	}
	ch.mu.Lock()
	ch.txEnabled = true
	ch.mu.Unlock()
	return nil
}

// TxCommit commits the current transaction, spec section 3.5.
func (ch *Channel) TxCommit() error {
	_, err := ch.rpc(context.Background(), wire.TxCommit{})
	return err
}

// TxRollback rolls back the current transaction, spec section 3.5.
func (ch *Channel) TxRollback() error {
	_, err := ch.rpc(context.Background(), wire.TxRollback{})
	return err
}
