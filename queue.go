package amqp

import (
	"context"

	"github.com/lucidmq/amqp/internal/wire"
)

// Queue describes the broker's response to a queue.declare, spec section
// 3.1.1. Messages/Consumers are a snapshot taken at declare time; call Len
// for a fresh count rather than trusting a stale field.
type Queue struct {
	Name      string
	Messages  int
	Consumers int

	ch *Channel
}

// Len re-declares the queue passively and returns the broker's current
// message count. Never cached -- each call is a fresh RPC.
func (q Queue) Len() (int, error) {
	fresh, err := q.ch.QueueDeclarePassive(q.Name, false, false, false, false, nil)
	if err != nil {
		return 0, err
	}
	return fresh.Messages, nil
}

// QueueDeclare declares a queue, spec section 3.1.1.
func (ch *Channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args wire.Table) (Queue, error) {
	res, err := ch.rpc(context.Background(), wire.QueueDeclare{
		Queue:      name,
		Durable:    durable,
		Exclusive:  exclusive,
		AutoDelete: autoDelete,
		NoWait:     noWait,
		Arguments:  args,
	})
	if err != nil {
		return Queue{}, err
	}
	return ch.queueFromDeclareOk(res), nil
}

// QueueDeclarePassive asserts that a queue exists and returns its current
// counts without creating or modifying it.
func (ch *Channel) QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args wire.Table) (Queue, error) {
	res, err := ch.rpc(context.Background(), wire.QueueDeclare{
		Queue:      name,
		Passive:    true,
		Durable:    durable,
		Exclusive:  exclusive,
		AutoDelete: autoDelete,
		NoWait:     noWait,
		Arguments:  args,
	})
	if err != nil {
		return Queue{}, err
	}
	return ch.queueFromDeclareOk(res), nil
}

func (ch *Channel) queueFromDeclareOk(res wire.Method) Queue {
	ok, _ := res.(wire.QueueDeclareOk)
	return Queue{Name: ok.Queue, Messages: int(ok.MessageCount), Consumers: int(ok.ConsumerCount), ch: ch}
}

// QueueBind binds a queue to an exchange, spec section 3.1.3.
func (ch *Channel) QueueBind(name, routingKey, exchange string, noWait bool, args wire.Table) error {
	_, err := ch.rpc(context.Background(), wire.QueueBind{
		Queue:      name,
		Exchange:   exchange,
		RoutingKey: routingKey,
		NoWait:     noWait,
		Arguments:  args,
	})
	return err
}

// QueueUnbind removes a queue-to-exchange binding, spec section 3.1.3.
func (ch *Channel) QueueUnbind(name, routingKey, exchange string, args wire.Table) error {
	_, err := ch.rpc(context.Background(), wire.QueueUnbind{
		Queue:      name,
		Exchange:   exchange,
		RoutingKey: routingKey,
		Arguments:  args,
	})
	return err
}

// QueuePurge removes all ready messages from a queue, spec section 3.1.7,
// returning the count removed.
func (ch *Channel) QueuePurge(name string, noWait bool) (int, error) {
	res, err := ch.rpc(context.Background(), wire.QueuePurge{Queue: name, NoWait: noWait})
	if err != nil {
		return 0, err
	}
	ok, _ := res.(wire.QueuePurgeOk)
	return int(ok.MessageCount), nil
}

// QueueDelete removes a queue, spec section 3.1.8, returning the count of
// messages it held.
func (ch *Channel) QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error) {
	res, err := ch.rpc(context.Background(), wire.QueueDelete{
		Queue:    name,
		IfUnused: ifUnused,
		IfEmpty:  ifEmpty,
		NoWait:   noWait,
	})
	if err != nil {
		return 0, err
	}
	ok, _ := res.(wire.QueueDeleteOk)
	return int(ok.MessageCount), nil
}
