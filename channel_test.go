package amqp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucidmq/amqp/internal/wire"
	"github.com/lucidmq/amqp/internal/wiretest"
)

func openChannelPipe(t *testing.T) (*Connection, *Channel, *wiretest.Broker) {
	t.Helper()
	conn, broker := dialPipe(t, Config{})

	openErr := make(chan error, 1)
	go func() { openErr <- broker.OpenChannel(1) }()

	ch, err := conn.Channel()
	require.NoError(t, err)
	require.NoError(t, <-openErr)
	require.Equal(t, ChannelOpen, ch.State())

	return conn, ch, broker
}

func TestChannelOpenDeclaresQueue(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	declareOk := make(chan error, 1)
	go func() {
		_, err := broker.ExpectMethod(2*time.Second, 50, 10) // queue.declare
		if err != nil {
			declareOk <- err
			return
		}
		broker.Send(ch.Id(), wire.QueueDeclareOk{Queue: "q", MessageCount: 0, ConsumerCount: 0})
		declareOk <- nil
	}()

	q, err := ch.QueueDeclare("q", true, false, false, false, nil)
	require.NoError(t, err)
	require.NoError(t, <-declareOk)
	require.Equal(t, "q", q.Name)
}

func TestChannelConfirmPublishAck(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	confirmOk := make(chan error, 1)
	go func() {
		_, err := broker.ExpectMethod(2*time.Second, 85, 10) // confirm.select
		if err != nil {
			confirmOk <- err
			return
		}
		broker.Send(ch.Id(), wire.ConfirmSelectOk{})
		confirmOk <- nil
	}()
	require.NoError(t, ch.Confirm(false))
	require.NoError(t, <-confirmOk)

	ackSent := make(chan error, 1)
	go func() {
		_, err := broker.ExpectMethod(2*time.Second, 60, 40) // basic.publish
		if err != nil {
			ackSent <- err
			return
		}
		if _, err := broker.Next(2 * time.Second); err != nil { // header frame
			ackSent <- err
			return
		}
		if _, err := broker.Next(2 * time.Second); err != nil { // body frame
			ackSent <- err
			return
		}
		broker.Send(ch.Id(), wire.BasicAck{DeliveryTag: 1, Multiple: false})
		ackSent <- nil
	}()

	ok, err := ch.Publish("amq.direct", "k", false, false, Publishing{Body: []byte("hello")})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, <-ackSent)
}

func TestChannelConfirmPublishNack(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 85, 10)
		broker.Send(ch.Id(), wire.ConfirmSelectOk{})
	}()
	require.NoError(t, ch.Confirm(false))

	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 60, 40)
		_, _ = broker.Next(2 * time.Second)
		_, _ = broker.Next(2 * time.Second)
		broker.Send(ch.Id(), wire.BasicNack{DeliveryTag: 1, Multiple: false, Requeue: false})
	}()

	ok, err := ch.Publish("amq.direct", "k", false, false, Publishing{Body: []byte("hello")})
	require.NoError(t, err)
	require.False(t, ok)
}

// TestChannelMandatoryPublishReturned mirrors scenario S2: a mandatory
// publish with no matching binding comes back as basic.return instead of
// being acked, and Publish surfaces it as a typed error.
func TestChannelMandatoryPublishReturned(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 85, 10)
		broker.Send(ch.Id(), wire.ConfirmSelectOk{})
	}()
	require.NoError(t, ch.Confirm(false))

	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 60, 40)
		_, _ = broker.Next(2 * time.Second)
		_, _ = broker.Next(2 * time.Second)
		broker.SendContent(ch.Id(), wire.BasicReturn{
			ReplyCode:  ReplyNoRoute,
			ReplyText:  "NO_ROUTE",
			Exchange:   "amq.direct",
			RoutingKey: "nosuch",
		}, wire.Properties{}, nil)
	}()

	ok, err := ch.Publish("amq.direct", "nosuch", true, false, Publishing{Body: []byte("hello")})
	require.False(t, ok)
	require.Error(t, err)

	var returned *MessageReturnedError
	require.ErrorAs(t, err, &returned)
	require.Equal(t, uint16(ReplyNoRoute), returned.ReplyCode)
}

// TestChannelFlowBlocksPublish matches the spec's resolution of
// channel.flow interacting with Publish: while the broker holds the
// channel inactive, Publish blocks before sending anything, and resumes
// once channel.flow(active=true) arrives.
func TestChannelFlowBlocksPublish(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	flowOk := make(chan struct{})
	go func() {
		broker.Send(ch.Id(), wire.ChannelFlow{Active: false})
		_, _ = broker.ExpectMethod(2*time.Second, 20, 21) // channel.flow-ok
		close(flowOk)
	}()
	<-flowOk

	published := make(chan struct{})
	go func() {
		ok, err := ch.Publish("", "k", false, false, Publishing{Body: []byte("x")})
		require.NoError(t, err)
		require.True(t, ok)
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("publish returned while channel.flow was inactive")
	case <-time.After(100 * time.Millisecond):
	}

	resumeOk := make(chan struct{})
	go func() {
		broker.Send(ch.Id(), wire.ChannelFlow{Active: true})
		_, _ = broker.ExpectMethod(2*time.Second, 20, 21)
		_, _ = broker.ExpectMethod(2*time.Second, 60, 40) // basic.publish, now unblocked
		close(resumeOk)
	}()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publish did not unblock after channel.flow(active=true)")
	}
	<-resumeOk
}

// TestChannelConsumerCancelledByBroker matches scenario S6: the broker
// cancels an in-progress consumer and the delivery channel closes cleanly
// without the channel itself closing.
func TestChannelConsumerCancelledByBroker(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	consumeOk := make(chan error, 1)
	go func() {
		_, err := broker.ExpectMethod(2*time.Second, 60, 20) // basic.consume
		if err != nil {
			consumeOk <- err
			return
		}
		broker.Send(ch.Id(), wire.BasicConsumeOk{ConsumerTag: "ctag-1"})
		consumeOk <- nil
	}()

	deliveries, err := ch.Consume("q", "", false, false, false, false, nil)
	require.NoError(t, err)
	require.NoError(t, <-consumeOk)

	broker.Send(ch.Id(), wire.BasicCancel{ConsumerTag: "ctag-1", NoWait: true})

	select {
	case _, ok := <-deliveries:
		require.False(t, ok, "delivery channel should be closed, not yield a value")
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not terminate after broker-initiated cancel")
	}

	require.Equal(t, ChannelOpen, ch.State())
}

// TestChannelRemoteCloseOnPreconditionFailed mirrors scenario S3: a soft
// error closes only the channel, leaves the connection open, and a new
// channel can still be opened afterward.
func TestChannelRemoteCloseOnPreconditionFailed(t *testing.T) {
	conn, ch, broker := openChannelPipe(t)
	defer broker.Close()

	declareErr := make(chan error, 1)
	go func() {
		_, err := broker.ExpectMethod(2*time.Second, 50, 10)
		if err != nil {
			declareErr <- err
			return
		}
		broker.Send(ch.Id(), wire.ChannelClose{
			ReplyCode: ReplyPreconditionFail,
			ReplyText: "PRECONDITION_FAILED - inequivalent arg 'durable'",
			ClassId_:  50,
			MethodId_: 10,
		})
		_, err = broker.ExpectMethod(2*time.Second, 20, 41) // channel.close-ok
		declareErr <- err
	}()

	_, err := ch.QueueDeclare("q2", false, false, false, false, nil)
	require.Error(t, err)
	require.NoError(t, <-declareErr)

	var pf *PreconditionFailedError
	require.ErrorAs(t, err, &pf)
	require.Equal(t, ChannelRemoteClosed, ch.State())

	_, err = ch.QueueDeclare("q2", false, false, false, false, nil)
	require.Error(t, err)
	require.IsType(t, &ChannelClosedError{}, err)

	require.Equal(t, StateOpen, conn.State())

	// The freed id (1) is the lowest free slot, so the allocator hands it
	// straight back out to the next Channel() call.
	openErr := make(chan error, 1)
	go func() { openErr <- broker.OpenChannel(1) }()
	ch2, err := conn.Channel()
	require.NoError(t, err)
	require.NoError(t, <-openErr)
	require.Equal(t, ChannelOpen, ch2.State())
}

// TestChannelGetRoundTripsBodyAndProperties matches Testable Property 3:
// a message's body and properties survive the publish/consume round trip,
// excluding the broker-assigned envelope fields.
func TestChannelGetRoundTripsBodyAndProperties(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	sent := Properties{
		ContentType:   "text/plain",
		CorrelationId: "corr-1",
		Headers:       map[string]interface{}{"x-retry": int32(2)},
	}

	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 60, 70) // basic.get
		broker.SendContent(ch.Id(), wire.BasicGetOk{
			DeliveryTag:  7,
			Redelivered:  false,
			Exchange:     "amq.direct",
			RoutingKey:   "k",
			MessageCount: 0,
		}, sent.toWireProperties(), []byte("hello"))
	}()

	d, ok, err := ch.Get("q3", false)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), d.Body)
	require.Equal(t, sent.ContentType, d.Properties.ContentType)
	require.Equal(t, sent.CorrelationId, d.Properties.CorrelationId)
	require.Equal(t, sent.Headers, d.Properties.Headers)
}

// TestChannelRPCResponsesOrderedPerRequest matches Testable Property 1: a
// sequence of channel RPCs is answered in the same order it was issued.
func TestChannelRPCResponsesOrderedPerRequest(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	done := make(chan error, 1)
	go func() {
		for i, name := range []string{"q-a", "q-b", "q-c"} {
			_, err := broker.ExpectMethod(2*time.Second, 50, 10) // queue.declare
			if err != nil {
				done <- err
				return
			}
			broker.Send(ch.Id(), wire.QueueDeclareOk{Queue: name, MessageCount: uint32(i), ConsumerCount: 0})
		}
		done <- nil
	}()

	for i, name := range []string{"q-a", "q-b", "q-c"} {
		q, err := ch.QueueDeclare(name, true, false, false, false, nil)
		require.NoError(t, err)
		require.Equal(t, name, q.Name, "response %d out of order", i)
		require.Equal(t, i, q.Messages)
	}
	require.NoError(t, <-done)
}

// TestChannelConcurrentRPCsAreSerializedNotCorrupted matches Testable
// Property 6: two goroutines racing to issue RPCs on the same channel are
// serialized by rpcMu rather than having their replies cross.
func TestChannelConcurrentRPCsAreSerializedNotCorrupted(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	const n = 10
	go func() {
		for i := 0; i < n; i++ {
			_, err := broker.ExpectMethod(2*time.Second, 50, 10)
			if err != nil {
				return
			}
			broker.Send(ch.Id(), wire.QueueDeclareOk{Queue: "q", MessageCount: 0, ConsumerCount: 0})
		}
	}()

	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := ch.QueueDeclare("q", true, false, false, false, nil)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
}

// TestChannelTxRollbackDiscardsPublish mirrors scenario S5: a publish made
// inside a transaction that is rolled back never lands on the destination
// queue, so a get loop afterward sees nothing to consume.
func TestChannelTxRollbackDiscardsPublish(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 90, 10) // tx.select
		broker.Send(ch.Id(), wire.TxSelectOk{})
	}()
	require.NoError(t, ch.Tx())

	published := make(chan struct{})
	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 60, 40) // basic.publish
		_, _ = broker.Next(2 * time.Second)                // header
		_, _ = broker.Next(2 * time.Second)                // body
		close(published)
	}()
	ok, err := ch.Publish("", "q5", false, false, Publishing{Body: []byte("discarded")})
	require.NoError(t, err)
	require.True(t, ok) // no confirms enabled: Publish doesn't wait for a broker ack
	<-published

	rollbackOk := make(chan struct{})
	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 90, 30) // tx.rollback
		broker.Send(ch.Id(), wire.TxRollbackOk{})
		close(rollbackOk)
	}()
	require.NoError(t, ch.TxRollback())
	<-rollbackOk

	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 60, 70) // basic.get
		broker.Send(ch.Id(), wire.BasicGetEmpty{})
	}()
	_, ok, err = ch.Get("q5", false)
	require.NoError(t, err)
	require.False(t, ok, "rolled-back publish must not appear in the queue")
}

// TestChannelGetLoopDrainsQueueInOrder mirrors scenario S4: three messages
// published to q3 are fetched in publish order and each is acked, every
// get-ok reports one fewer message left in the queue, and the fourth get
// returns empty.
func TestChannelGetLoopDrainsQueueInOrder(t *testing.T) {
	_, ch, broker := openChannelPipe(t)
	defer broker.Close()

	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 50, 10) // queue.declare (passive)
		broker.Send(ch.Id(), wire.QueueDeclareOk{Queue: "q3", MessageCount: 3, ConsumerCount: 0})
	}()
	q, err := ch.QueueDeclarePassive("q3", false, false, false, false, nil)
	require.NoError(t, err)
	require.Equal(t, 3, q.Messages)

	bodies := []string{"one", "two", "three"}
	for i, body := range bodies {
		go func(i int, body string) {
			_, _ = broker.ExpectMethod(2*time.Second, 60, 70) // basic.get
			broker.SendContent(ch.Id(), wire.BasicGetOk{
				DeliveryTag:  uint64(i + 1),
				Exchange:     "",
				RoutingKey:   "q3",
				MessageCount: uint32(len(bodies) - i - 1),
			}, wire.Properties{}, []byte(body))
		}(i, body)

		d, ok, err := ch.Get("q3", false)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, body, string(d.Body), "get %d returned out of publish order", i)
		require.Equal(t, uint64(i+1), d.DeliveryTag)
		require.Equal(t, uint32(len(bodies)-i-1), d.MessageCount)

		go func() {
			_, _ = broker.ExpectMethod(2*time.Second, 60, 80) // basic.ack
		}()
		require.NoError(t, ch.Ack(d.DeliveryTag, false))
	}

	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 60, 70)
		broker.Send(ch.Id(), wire.BasicGetEmpty{})
	}()
	_, ok, err := ch.Get("q3", false)
	require.NoError(t, err)
	require.False(t, ok, "fourth get should find the queue drained")
}

// TestStalledConsumerDoesNotBlockOtherChannels guards against the
// head-of-line blocking every Notify/delivery fan-out would otherwise cause:
// channel 1's consumer never drains its deliveries, so its own pump stalls
// inside completeAssembly, but channel 2's RPC on the same connection must
// still complete -- each channel's inbox and pump are independent, spec
// sections 3-5.
func TestStalledConsumerDoesNotBlockOtherChannels(t *testing.T) {
	conn, ch1, broker := openChannelPipe(t)
	defer broker.Close()

	openErr := make(chan error, 1)
	go func() { openErr <- broker.OpenChannel(2) }()
	ch2, err := conn.Channel()
	require.NoError(t, err)
	require.NoError(t, <-openErr)

	consumeOk := make(chan error, 1)
	go func() {
		if _, err := broker.ExpectMethod(2*time.Second, 60, 20); err != nil { // basic.consume
			consumeOk <- err
			return
		}
		broker.Send(ch1.Id(), wire.BasicConsumeOk{ConsumerTag: "ctag"})
		consumeOk <- nil
	}()
	deliveries, err := ch1.Consume("q", "ctag", false, false, false, false, nil)
	require.NoError(t, err)
	require.NoError(t, <-consumeOk)
	_ = deliveries // deliberately never read from -- the stalled consumer

	broker.SendContent(ch1.Id(), wire.BasicDeliver{
		ConsumerTag: "ctag", DeliveryTag: 1, RoutingKey: "q",
	}, wire.Properties{}, []byte("payload"))

	// Give channel 1's pump time to reach completeAssembly and block trying
	// to deliver to the undrained channel.
	time.Sleep(100 * time.Millisecond)

	qosOk := make(chan error, 1)
	go func() {
		if _, err := broker.ExpectMethod(2*time.Second, 60, 10); err != nil { // basic.qos
			qosOk <- err
			return
		}
		broker.Send(ch2.Id(), wire.BasicQosOk{})
		qosOk <- nil
	}()

	done := make(chan error, 1)
	go func() { done <- ch2.Qos(10, 0, false) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("channel 2's RPC blocked behind channel 1's stalled consumer")
	}
	require.NoError(t, <-qosOk)
}
