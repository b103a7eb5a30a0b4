package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// reader decodes AMQP frames off a buffered byte stream. It holds no
// connection state of its own; Worker owns the socket, reader only turns
// bytes into Frame values.
type reader struct {
	r *bufio.Reader
}

func newReader(r io.Reader) *reader {
	return &reader{r: bufio.NewReaderSize(r, frameMinSize)}
}

// ReadFrame decodes exactly one frame, including its trailing frame-end
// octet, from the underlying reader.
func (r *reader) ReadFrame() (Frame, error) {
	var scratch [7]byte
	if _, err := io.ReadFull(r.r, scratch[:]); err != nil {
		return nil, err
	}

	typ := scratch[0]
	channel := binary.BigEndian.Uint16(scratch[1:3])
	size := binary.BigEndian.Uint32(scratch[3:7])

	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, err
	}

	var end [1]byte
	if _, err := io.ReadFull(r.r, end[:]); err != nil {
		return nil, err
	}
	if end[0] != frameEnd {
		return nil, fmt.Errorf("wire: malformed frame: expected frame-end 0x%02x, got 0x%02x", frameEnd, end[0])
	}

	switch typ {
	case FrameMethod:
		return decodeMethodFrame(channel, payload)
	case FrameHeader:
		return decodeHeaderFrame(channel, payload)
	case FrameBody:
		return &BodyFrame{ChannelId: channel, Payload: payload}, nil
	case FrameHeartbeat:
		return &HeartbeatFrame{}, nil
	default:
		return nil, fmt.Errorf("wire: unknown frame type %d", typ)
	}
}

func decodeMethodFrame(channel uint16, payload []byte) (Frame, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("wire: method frame too short")
	}
	classId := binary.BigEndian.Uint16(payload[0:2])
	methodId := binary.BigEndian.Uint16(payload[2:4])

	m, err := decodeMethod(classId, methodId, payload[4:])
	if err != nil {
		return nil, err
	}
	return &MethodFrame{ChannelId: channel, Method: m}, nil
}

func decodeHeaderFrame(channel uint16, payload []byte) (Frame, error) {
	if len(payload) < 12 {
		return nil, fmt.Errorf("wire: header frame too short")
	}
	classId := binary.BigEndian.Uint16(payload[0:2])
	weight := binary.BigEndian.Uint16(payload[2:4])
	bodySize := binary.BigEndian.Uint64(payload[4:12])

	props, err := decodeProperties(payload[12:])
	if err != nil {
		return nil, err
	}

	return &HeaderFrame{
		ChannelId:  channel,
		ClassId:    classId,
		Weight:     weight,
		BodySize:   bodySize,
		Properties: props,
	}, nil
}

// --- field-table / property decoding ---

type byteReader struct {
	b []byte
}

func (r *byteReader) octet() (byte, error) {
	if len(r.b) < 1 {
		return 0, io.ErrUnexpectedEOF
	}
	v := r.b[0]
	r.b = r.b[1:]
	return v, nil
}

func (r *byteReader) short() (uint16, error) {
	if len(r.b) < 2 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(r.b[:2])
	r.b = r.b[2:]
	return v, nil
}

func (r *byteReader) long() (uint32, error) {
	if len(r.b) < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(r.b[:4])
	r.b = r.b[4:]
	return v, nil
}

func (r *byteReader) longlong() (uint64, error) {
	if len(r.b) < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint64(r.b[:8])
	r.b = r.b[8:]
	return v, nil
}

func (r *byteReader) shortstr() (string, error) {
	n, err := r.octet()
	if err != nil {
		return "", err
	}
	if len(r.b) < int(n) {
		return "", io.ErrUnexpectedEOF
	}
	s := string(r.b[:n])
	r.b = r.b[n:]
	return s, nil
}

func (r *byteReader) longstr() (string, error) {
	n, err := r.long()
	if err != nil {
		return "", err
	}
	if uint32(len(r.b)) < n {
		return "", io.ErrUnexpectedEOF
	}
	s := string(r.b[:n])
	r.b = r.b[n:]
	return s, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if len(r.b) < n {
		return nil, io.ErrUnexpectedEOF
	}
	v := r.b[:n]
	r.b = r.b[n:]
	return v, nil
}

func (r *byteReader) table() (Table, error) {
	size, err := r.long()
	if err != nil {
		return nil, err
	}
	body, err := r.bytes(int(size))
	if err != nil {
		return nil, err
	}
	sub := &byteReader{b: body}
	out := Table{}
	for len(sub.b) > 0 {
		name, err := sub.shortstr()
		if err != nil {
			return nil, err
		}
		val, err := sub.field()
		if err != nil {
			return nil, err
		}
		out[name] = val
	}
	return out, nil
}

func (r *byteReader) field() (interface{}, error) {
	tag, err := r.octet()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 't':
		v, err := r.octet()
		return v != 0, err
	case 'b':
		v, err := r.octet()
		return int8(v), err
	case 'B':
		v, err := r.octet()
		return v, err
	case 'U':
		v, err := r.short()
		return int16(v), err
	case 'u':
		v, err := r.short()
		return v, err
	case 'I':
		v, err := r.long()
		return int32(v), err
	case 'i':
		v, err := r.long()
		return v, err
	case 'L', 'l':
		v, err := r.longlong()
		return int64(v), err
	case 'f':
		v, err := r.long()
		return math.Float32frombits(v), err
	case 'd':
		v, err := r.longlong()
		return math.Float64frombits(v), err
	case 'D':
		scale, err := r.octet()
		if err != nil {
			return nil, err
		}
		val, err := r.long()
		return Decimal{Scale: scale, Value: int32(val)}, err
	case 's':
		return r.shortstr()
	case 'S':
		return r.longstr()
	case 'x':
		n, err := r.long()
		if err != nil {
			return nil, err
		}
		return r.bytes(int(n))
	case 'A':
		return r.array()
	case 'T':
		secs, err := r.longlong()
		return time.Unix(int64(secs), 0), err
	case 'F':
		return r.table()
	case 'V':
		return nil, nil
	default:
		return nil, fmt.Errorf("wire: unknown field type tag %q", tag)
	}
}

func (r *byteReader) array() ([]interface{}, error) {
	size, err := r.long()
	if err != nil {
		return nil, err
	}
	body, err := r.bytes(int(size))
	if err != nil {
		return nil, err
	}
	sub := &byteReader{b: body}
	var out []interface{}
	for len(sub.b) > 0 {
		v, err := sub.field()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeProperties(payload []byte) (Properties, error) {
	r := &byteReader{b: payload}
	flags, err := r.short()
	if err != nil {
		return Properties{}, err
	}

	var p Properties
	var readErr error
	must := func(v string, err error) string {
		if readErr == nil {
			readErr = err
		}
		return v
	}

	if flags&flagContentType != 0 {
		p.ContentType = must(r.shortstr())
	}
	if flags&flagContentEncoding != 0 {
		p.ContentEncoding = must(r.shortstr())
	}
	if flags&flagHeaders != 0 {
		t, err := r.table()
		if readErr == nil {
			readErr = err
		}
		p.Headers = t
	}
	if flags&flagDeliveryMode != 0 {
		v, err := r.octet()
		if readErr == nil {
			readErr = err
		}
		p.DeliveryMode = v
	}
	if flags&flagPriority != 0 {
		v, err := r.octet()
		if readErr == nil {
			readErr = err
		}
		p.Priority = v
	}
	if flags&flagCorrelationId != 0 {
		p.CorrelationId = must(r.shortstr())
	}
	if flags&flagReplyTo != 0 {
		p.ReplyTo = must(r.shortstr())
	}
	if flags&flagExpiration != 0 {
		p.Expiration = must(r.shortstr())
	}
	if flags&flagMessageId != 0 {
		p.MessageId = must(r.shortstr())
	}
	if flags&flagTimestamp != 0 {
		secs, err := r.longlong()
		if readErr == nil {
			readErr = err
		}
		p.Timestamp = time.Unix(int64(secs), 0)
	}
	if flags&flagType != 0 {
		p.Type = must(r.shortstr())
	}
	if flags&flagUserId != 0 {
		p.UserId = must(r.shortstr())
	}
	if flags&flagAppId != 0 {
		p.AppId = must(r.shortstr())
	}
	if flags&flagClusterId != 0 {
		p.ClusterId = must(r.shortstr())
	}

	return p, readErr
}
