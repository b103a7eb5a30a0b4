package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// FrameWriter serializes Frame values to an underlying writer, one frame at
// a time. It holds no notion of frame groups or atomicity across frames --
// that discipline belongs to the caller (internal/wire.Worker), whose single
// writer goroutine writes every frame of a group before taking the next.
type FrameWriter struct {
	w *bufio.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: bufio.NewWriterSize(w, frameMinSize)}
}

// WriteFrame encodes and flushes one frame.
func (fw *FrameWriter) WriteFrame(f Frame) error {
	switch v := f.(type) {
	case *MethodFrame:
		return fw.writeMethodFrame(v)
	case *HeaderFrame:
		return fw.writeHeaderFrame(v)
	case *BodyFrame:
		return fw.writeRawFrame(FrameBody, v.ChannelId, v.Payload)
	case *HeartbeatFrame:
		return fw.writeRawFrame(FrameHeartbeat, 0, nil)
	case ProtocolHeaderFrame:
		if _, err := fw.w.Write(ProtocolHeader); err != nil {
			return err
		}
		return fw.w.Flush()
	default:
		return fmt.Errorf("wire: cannot write unknown frame type %T", f)
	}
}

func (fw *FrameWriter) writeRawFrame(typ byte, channel uint16, payload []byte) error {
	var header [7]byte
	header[0] = typ
	binary.BigEndian.PutUint16(header[1:3], channel)
	binary.BigEndian.PutUint32(header[3:7], uint32(len(payload)))

	if _, err := fw.w.Write(header[:]); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := fw.w.Write(payload); err != nil {
			return err
		}
	}
	if err := fw.w.WriteByte(frameEnd); err != nil {
		return err
	}
	return fw.w.Flush()
}

func (fw *FrameWriter) writeMethodFrame(f *MethodFrame) error {
	args, err := encodeMethod(f.Method)
	if err != nil {
		return err
	}

	buf := make([]byte, 4+len(args))
	binary.BigEndian.PutUint16(buf[0:2], f.Method.ClassId())
	binary.BigEndian.PutUint16(buf[2:4], f.Method.MethodId())
	copy(buf[4:], args)

	return fw.writeRawFrame(FrameMethod, f.ChannelId, buf)
}

func (fw *FrameWriter) writeHeaderFrame(f *HeaderFrame) error {
	props, err := encodeProperties(f.Properties)
	if err != nil {
		return err
	}

	buf := make([]byte, 12+len(props))
	binary.BigEndian.PutUint16(buf[0:2], f.ClassId)
	binary.BigEndian.PutUint16(buf[2:4], f.Weight)
	binary.BigEndian.PutUint64(buf[4:12], f.BodySize)
	copy(buf[12:], props)

	return fw.writeRawFrame(FrameHeader, f.ChannelId, buf)
}

// --- low level value encoding ---

type byteWriter struct {
	b []byte
}

func (w *byteWriter) octet(v byte) { w.b = append(w.b, v) }

func (w *byteWriter) short(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	w.b = append(w.b, buf[:]...)
}

func (w *byteWriter) long(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.b = append(w.b, buf[:]...)
}

func (w *byteWriter) longlong(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w.b = append(w.b, buf[:]...)
}

func (w *byteWriter) shortstr(s string) error {
	if len(s) > 255 {
		return fmt.Errorf("wire: short string %q exceeds 255 bytes", s)
	}
	w.octet(byte(len(s)))
	w.b = append(w.b, s...)
	return nil
}

func (w *byteWriter) longstr(s string) {
	w.long(uint32(len(s)))
	w.b = append(w.b, s...)
}

func (w *byteWriter) table(t Table) error {
	if err := validateField(t); err != nil {
		return err
	}
	sub := &byteWriter{}
	for name, val := range t {
		if err := sub.shortstr(name); err != nil {
			return err
		}
		if err := sub.field(val); err != nil {
			return err
		}
	}
	w.long(uint32(len(sub.b)))
	w.b = append(w.b, sub.b...)
	return nil
}

func (w *byteWriter) array(a []interface{}) error {
	sub := &byteWriter{}
	for _, val := range a {
		if err := sub.field(val); err != nil {
			return err
		}
	}
	w.long(uint32(len(sub.b)))
	w.b = append(w.b, sub.b...)
	return nil
}

func (w *byteWriter) field(f interface{}) error {
	switch v := f.(type) {
	case nil:
		w.octet('V')
	case bool:
		w.octet('t')
		if v {
			w.octet(1)
		} else {
			w.octet(0)
		}
	case int8:
		w.octet('b')
		w.octet(byte(v))
	case byte:
		w.octet('B')
		w.octet(v)
	case int16:
		w.octet('U')
		w.short(uint16(v))
	case int32:
		w.octet('I')
		w.long(uint32(v))
	case int:
		w.octet('I')
		w.long(uint32(v))
	case int64:
		w.octet('L')
		w.longlong(uint64(v))
	case float32:
		w.octet('f')
		w.long(math.Float32bits(v))
	case float64:
		w.octet('d')
		w.longlong(math.Float64bits(v))
	case Decimal:
		w.octet('D')
		w.octet(v.Scale)
		w.long(uint32(v.Value))
	case string:
		w.octet('S')
		w.longstr(v)
	case []byte:
		w.octet('x')
		w.long(uint32(len(v)))
		w.b = append(w.b, v...)
	case time.Time:
		w.octet('T')
		w.longlong(uint64(v.Unix()))
	case Table:
		w.octet('F')
		return w.table(v)
	case []interface{}:
		w.octet('A')
		return w.array(v)
	default:
		return fmt.Errorf("wire: unsupported field-table value type %T", v)
	}
	return nil
}

func encodeProperties(p Properties) ([]byte, error) {
	var flags uint16
	body := &byteWriter{}

	if p.ContentType != "" {
		flags |= flagContentType
	}
	if p.ContentEncoding != "" {
		flags |= flagContentEncoding
	}
	if len(p.Headers) > 0 {
		flags |= flagHeaders
	}
	if p.DeliveryMode != 0 {
		flags |= flagDeliveryMode
	}
	if p.Priority != 0 {
		flags |= flagPriority
	}
	if p.CorrelationId != "" {
		flags |= flagCorrelationId
	}
	if p.ReplyTo != "" {
		flags |= flagReplyTo
	}
	if p.Expiration != "" {
		flags |= flagExpiration
	}
	if p.MessageId != "" {
		flags |= flagMessageId
	}
	if !p.Timestamp.IsZero() {
		flags |= flagTimestamp
	}
	if p.Type != "" {
		flags |= flagType
	}
	if p.UserId != "" {
		flags |= flagUserId
	}
	if p.AppId != "" {
		flags |= flagAppId
	}
	if p.ClusterId != "" {
		flags |= flagClusterId
	}

	if flags&flagContentType != 0 {
		if err := body.shortstr(p.ContentType); err != nil {
			return nil, err
		}
	}
	if flags&flagContentEncoding != 0 {
		if err := body.shortstr(p.ContentEncoding); err != nil {
			return nil, err
		}
	}
	if flags&flagHeaders != 0 {
		if err := body.table(p.Headers); err != nil {
			return nil, err
		}
	}
	if flags&flagDeliveryMode != 0 {
		body.octet(p.DeliveryMode)
	}
	if flags&flagPriority != 0 {
		body.octet(p.Priority)
	}
	if flags&flagCorrelationId != 0 {
		if err := body.shortstr(p.CorrelationId); err != nil {
			return nil, err
		}
	}
	if flags&flagReplyTo != 0 {
		if err := body.shortstr(p.ReplyTo); err != nil {
			return nil, err
		}
	}
	if flags&flagExpiration != 0 {
		if err := body.shortstr(p.Expiration); err != nil {
			return nil, err
		}
	}
	if flags&flagMessageId != 0 {
		if err := body.shortstr(p.MessageId); err != nil {
			return nil, err
		}
	}
	if flags&flagTimestamp != 0 {
		body.longlong(uint64(p.Timestamp.Unix()))
	}
	if flags&flagType != 0 {
		if err := body.shortstr(p.Type); err != nil {
			return nil, err
		}
	}
	if flags&flagUserId != 0 {
		if err := body.shortstr(p.UserId); err != nil {
			return nil, err
		}
	}
	if flags&flagAppId != 0 {
		if err := body.shortstr(p.AppId); err != nil {
			return nil, err
		}
	}
	if flags&flagClusterId != 0 {
		if err := body.shortstr(p.ClusterId); err != nil {
			return nil, err
		}
	}

	out := &byteWriter{}
	out.short(flags)
	out.b = append(out.b, body.b...)
	return out.b, nil
}

// encodeMethod marshals a Method's argument list, dispatching on concrete
// type. Methods the client sends are required for Dial/Channel operation.
// The first group of cases below holds the broker-originated methods
// (connection.start, most *-ok replies, basic.deliver, basic.return, ...),
// which only internal/wiretest's fake broker encodes; channel.flow and
// basic.cancel-ok in that group are also sent by the client.
func encodeMethod(m Method) ([]byte, error) {
	w := &byteWriter{}

	switch v := m.(type) {
	case ConnectionStart:
		w.octet(v.VersionMajor)
		w.octet(v.VersionMinor)
		if err := w.table(v.ServerProperties); err != nil {
			return nil, err
		}
		w.longstr(v.Mechanisms)
		w.longstr(v.Locales)
	case ConnectionTune:
		w.short(v.ChannelMax)
		w.long(v.FrameMax)
		w.short(v.Heartbeat)
	case ConnectionOpenOk:
	case ConnectionBlocked:
		if err := w.shortstr(v.Reason); err != nil {
			return nil, err
		}
	case ConnectionUnblocked:
	case ChannelOpenOk:
	case ChannelFlow:
		w.octet(boolBits(v.Active))
	case ExchangeDeclareOk:
	case ExchangeDeleteOk:
	case ExchangeBindOk:
	case ExchangeUnbindOk:
	case QueueDeclareOk:
		if err := w.shortstr(v.Queue); err != nil {
			return nil, err
		}
		w.long(v.MessageCount)
		w.long(v.ConsumerCount)
	case QueueBindOk:
	case QueuePurgeOk:
		w.long(v.MessageCount)
	case QueueDeleteOk:
		w.long(v.MessageCount)
	case QueueUnbindOk:
	case BasicQosOk:
	case BasicConsumeOk:
		if err := w.shortstr(v.ConsumerTag); err != nil {
			return nil, err
		}
	case BasicCancelOk:
		if err := w.shortstr(v.ConsumerTag); err != nil {
			return nil, err
		}
	case BasicReturn:
		w.short(v.ReplyCode)
		if err := w.shortstr(v.ReplyText); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.Exchange); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.RoutingKey); err != nil {
			return nil, err
		}
	case BasicDeliver:
		if err := w.shortstr(v.ConsumerTag); err != nil {
			return nil, err
		}
		w.longlong(v.DeliveryTag)
		w.octet(boolBits(v.Redelivered))
		if err := w.shortstr(v.Exchange); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.RoutingKey); err != nil {
			return nil, err
		}
	case BasicGetOk:
		w.longlong(v.DeliveryTag)
		w.octet(boolBits(v.Redelivered))
		if err := w.shortstr(v.Exchange); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.RoutingKey); err != nil {
			return nil, err
		}
		w.long(v.MessageCount)
	case BasicGetEmpty:
	case BasicRecoverOk:
	case ConfirmSelectOk:
	case TxSelectOk, TxCommitOk, TxRollbackOk:
		// no arguments
	case ConnectionStartOk:
		if err := w.table(v.ClientProperties); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.Mechanism); err != nil {
			return nil, err
		}
		w.longstr(v.Response)
		if err := w.shortstr(v.Locale); err != nil {
			return nil, err
		}
	case ConnectionSecureOk:
		w.longstr(v.Response)
	case ConnectionTuneOk:
		w.short(v.ChannelMax)
		w.long(v.FrameMax)
		w.short(v.Heartbeat)
	case ConnectionOpen:
		if err := w.shortstr(v.VirtualHost); err != nil {
			return nil, err
		}
		_ = w.shortstr("") // reserved capabilities
		w.octet(0)         // reserved insist
	case ConnectionClose:
		w.short(v.ReplyCode)
		if err := w.shortstr(v.ReplyText); err != nil {
			return nil, err
		}
		w.short(v.ClassId_)
		w.short(v.MethodId_)
	case ConnectionCloseOk:
	case ChannelOpen:
		_ = w.shortstr("") // reserved
	case ChannelFlowOk:
		if v.Active {
			w.octet(1)
		} else {
			w.octet(0)
		}
	case ChannelClose:
		w.short(v.ReplyCode)
		if err := w.shortstr(v.ReplyText); err != nil {
			return nil, err
		}
		w.short(v.ClassId_)
		w.short(v.MethodId_)
	case ChannelCloseOk:
	case ExchangeDeclare:
		w.short(0)
		if err := w.shortstr(v.Exchange); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.Type); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.Passive, v.Durable, v.AutoDelete, v.Internal, v.NoWait))
		if err := w.table(v.Arguments); err != nil {
			return nil, err
		}
	case ExchangeDelete:
		w.short(0)
		if err := w.shortstr(v.Exchange); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.IfUnused, v.NoWait))
	case ExchangeBind:
		w.short(0)
		if err := w.shortstr(v.Destination); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.Source); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.RoutingKey); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.NoWait))
		if err := w.table(v.Arguments); err != nil {
			return nil, err
		}
	case ExchangeUnbind:
		w.short(0)
		if err := w.shortstr(v.Destination); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.Source); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.RoutingKey); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.NoWait))
		if err := w.table(v.Arguments); err != nil {
			return nil, err
		}
	case QueueDeclare:
		w.short(0)
		if err := w.shortstr(v.Queue); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.Passive, v.Durable, v.Exclusive, v.AutoDelete, v.NoWait))
		if err := w.table(v.Arguments); err != nil {
			return nil, err
		}
	case QueueBind:
		w.short(0)
		if err := w.shortstr(v.Queue); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.Exchange); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.RoutingKey); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.NoWait))
		if err := w.table(v.Arguments); err != nil {
			return nil, err
		}
	case QueueUnbind:
		w.short(0)
		if err := w.shortstr(v.Queue); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.Exchange); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.RoutingKey); err != nil {
			return nil, err
		}
		if err := w.table(v.Arguments); err != nil {
			return nil, err
		}
	case QueuePurge:
		w.short(0)
		if err := w.shortstr(v.Queue); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.NoWait))
	case QueueDelete:
		w.short(0)
		if err := w.shortstr(v.Queue); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.IfUnused, v.IfEmpty, v.NoWait))
	case BasicQos:
		w.long(v.PrefetchSize)
		w.short(v.PrefetchCount)
		w.octet(boolBits(v.Global))
	case BasicConsume:
		w.short(0)
		if err := w.shortstr(v.Queue); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.ConsumerTag); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.NoLocal, v.NoAck, v.Exclusive, v.NoWait))
		if err := w.table(v.Arguments); err != nil {
			return nil, err
		}
	case BasicCancel:
		if err := w.shortstr(v.ConsumerTag); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.NoWait))
	case BasicPublish:
		w.short(0)
		if err := w.shortstr(v.Exchange); err != nil {
			return nil, err
		}
		if err := w.shortstr(v.RoutingKey); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.Mandatory, v.Immediate))
	case BasicGet:
		w.short(0)
		if err := w.shortstr(v.Queue); err != nil {
			return nil, err
		}
		w.octet(boolBits(v.NoAck))
	case BasicAck:
		w.longlong(v.DeliveryTag)
		w.octet(boolBits(v.Multiple))
	case BasicNack:
		w.longlong(v.DeliveryTag)
		w.octet(boolBits(v.Multiple, v.Requeue))
	case BasicReject:
		w.longlong(v.DeliveryTag)
		w.octet(boolBits(v.Requeue))
	case BasicRecover:
		w.octet(boolBits(v.Requeue))
	case BasicRecoverAsync:
		w.octet(boolBits(v.Requeue))
	case ConfirmSelect:
		w.octet(boolBits(v.NoWait))
	case TxSelect, TxCommit, TxRollback:
		// no arguments
	default:
		return nil, fmt.Errorf("wire: cannot encode unknown method type %T", m)
	}

	return w.b, nil
}

// boolBits packs up to 8 booleans into one bit-flag octet, least-significant
// bit first, matching the AMQP 0-9-1 "bit" argument packing rule.
func boolBits(bits ...bool) byte {
	var b byte
	for i, v := range bits {
		if v {
			b |= 1 << uint(i)
		}
	}
	return b
}
