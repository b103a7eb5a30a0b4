package amqp

import (
	"context"

	"github.com/lucidmq/amqp/internal/wire"
)

// ExchangeDeclare declares an exchange, spec section 3.6.
func (ch *Channel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args wire.Table) error {
	_, err := ch.rpc(context.Background(), wire.ExchangeDeclare{
		Exchange:   name,
		Type:       kind,
		Durable:    durable,
		AutoDelete: autoDelete,
		Internal:   internal,
		NoWait:     noWait,
		Arguments:  args,
	})
	return err
}

// ExchangeDeclarePassive asserts that an exchange exists without creating
// it, spec section 3.6.
func (ch *Channel) ExchangeDeclarePassive(name, kind string, durable, autoDelete, internal, noWait bool, args wire.Table) error {
	_, err := ch.rpc(context.Background(), wire.ExchangeDeclare{
		Exchange:   name,
		Type:       kind,
		Passive:    true,
		Durable:    durable,
		AutoDelete: autoDelete,
		Internal:   internal,
		NoWait:     noWait,
		Arguments:  args,
	})
	return err
}

// ExchangeDelete removes an exchange, spec section 3.6.
func (ch *Channel) ExchangeDelete(name string, ifUnused, noWait bool) error {
	_, err := ch.rpc(context.Background(), wire.ExchangeDelete{Exchange: name, IfUnused: ifUnused, NoWait: noWait})
	return err
}

// ExchangeBind binds one exchange to another, spec section 3.6 (RabbitMQ
// extension).
func (ch *Channel) ExchangeBind(destination, routingKey, source string, noWait bool, args wire.Table) error {
	_, err := ch.rpc(context.Background(), wire.ExchangeBind{
		Destination: destination,
		Source:      source,
		RoutingKey:  routingKey,
		NoWait:      noWait,
		Arguments:   args,
	})
	return err
}

// ExchangeUnbind removes an exchange-to-exchange binding.
func (ch *Channel) ExchangeUnbind(destination, routingKey, source string, noWait bool, args wire.Table) error {
	_, err := ch.rpc(context.Background(), wire.ExchangeUnbind{
		Destination: destination,
		Source:      source,
		RoutingKey:  routingKey,
		NoWait:      noWait,
		Arguments:   args,
	})
	return err
}
