package amqp

import "github.com/lucidmq/amqp/internal/wire"

// Publishing is an outbound message, spec section 3.2.
type Publishing struct {
	Properties
	Body []byte
}

func (p Publishing) toWire() wire.Properties {
	return p.Properties.toWireProperties()
}
