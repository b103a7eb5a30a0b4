package amqp

// Delivery is an inbound message, whether from a consumer (basic.deliver)
// or a synchronous Get (basic.get-ok), spec section 3.1 / 3.3.
type Delivery struct {
	channel *Channel

	ConsumerTag string
	DeliveryTag uint64
	Redelivered bool
	Exchange    string
	RoutingKey  string

	// MessageCount is only meaningful on a Delivery returned by Channel.Get:
	// the broker's estimate of messages left in the queue after this one.
	MessageCount uint32

	Properties
	Body []byte
}

// Ack acknowledges this delivery, spec section 3.1.5.
func (d Delivery) Ack(multiple bool) error {
	return d.channel.Ack(d.DeliveryTag, multiple)
}

// Nack negatively acknowledges this delivery, spec section 3.1.5.
func (d Delivery) Nack(multiple, requeue bool) error {
	return d.channel.Nack(d.DeliveryTag, multiple, requeue)
}

// Reject refuses this delivery, spec section 3.1.5.
func (d Delivery) Reject(requeue bool) error {
	return d.channel.Reject(d.DeliveryTag, requeue)
}
