package amqp

import (
	"time"

	"github.com/lucidmq/amqp/internal/wire"
)

// Properties are the basic-class message envelope metadata, spec section
// 3.2. The application-facing Headers map may hold the same value types
// internal/wire.Table accepts: nil, bool, int8, byte, int16, int32, int,
// int64, float32, float64, wire.Decimal, string, []byte, time.Time, nested
// wire.Table values and []interface{} slices. Unsigned kinds wider than a
// byte and plain map[string]interface{} values are rejected.
type Properties struct {
	ContentType     string
	ContentEncoding string
	Headers         map[string]interface{}
	DeliveryMode    byte
	Priority        byte
	CorrelationId   string
	ReplyTo         string
	Expiration      string
	MessageId       string
	Timestamp       time.Time
	Type            string
	UserId          string
	AppId           string
	ClusterId       string
}

// Delivery modes, spec section 3.2.
const (
	Transient  byte = 1
	Persistent byte = 2
)

func (p Properties) toWireProperties() wire.Properties {
	return wire.Properties{
		ContentType:     p.ContentType,
		ContentEncoding: p.ContentEncoding,
		Headers:         wire.Table(p.Headers),
		DeliveryMode:    p.DeliveryMode,
		Priority:        p.Priority,
		CorrelationId:   p.CorrelationId,
		ReplyTo:         p.ReplyTo,
		Expiration:      p.Expiration,
		MessageId:       p.MessageId,
		Timestamp:       p.Timestamp,
		Type:            p.Type,
		UserId:          p.UserId,
		AppId:           p.AppId,
		ClusterId:       p.ClusterId,
	}
}

func fromWireProperties(w wire.Properties) Properties {
	return Properties{
		ContentType:     w.ContentType,
		ContentEncoding: w.ContentEncoding,
		Headers:         map[string]interface{}(w.Headers),
		DeliveryMode:    w.DeliveryMode,
		Priority:        w.Priority,
		CorrelationId:   w.CorrelationId,
		ReplyTo:         w.ReplyTo,
		Expiration:      w.Expiration,
		MessageId:       w.MessageId,
		Timestamp:       w.Timestamp,
		Type:            w.Type,
		UserId:          w.UserId,
		AppId:           w.AppId,
		ClusterId:       w.ClusterId,
	}
}
