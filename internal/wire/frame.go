package wire

// Frame type octets, section 2.3.
const (
	FrameMethod    = 1
	FrameHeader    = 2
	FrameBody      = 3
	FrameHeartbeat = 8
	frameEnd       = 206
	frameMinSize   = 4096
)

// ProtocolHeader is the literal byte sequence that opens every AMQP 0-9-1
// connection, before any framing begins.
var ProtocolHeader = []byte{'A', 'M', 'Q', 'P', 0, 0, 9, 1}

// Frame is any of the five AMQP frame kinds. Every frame (including
// Heartbeat) carries a channel id; 0 means connection-level or heartbeat.
type Frame interface {
	Channel() uint16
}

// MethodFrame carries one Method and its decoded arguments.
type MethodFrame struct {
	ChannelId uint16
	Method    Method
}

func (f *MethodFrame) Channel() uint16 { return f.ChannelId }

// HeaderFrame announces the size and properties of the content body that
// follows, split across zero or more BodyFrames.
type HeaderFrame struct {
	ChannelId  uint16
	ClassId    uint16
	Weight     uint16
	BodySize   uint64
	Properties Properties
}

func (f *HeaderFrame) Channel() uint16 { return f.ChannelId }

// BodyFrame carries one contiguous chunk of a content body.
type BodyFrame struct {
	ChannelId uint16
	Payload   []byte
}

func (f *BodyFrame) Channel() uint16 { return f.ChannelId }

// HeartbeatFrame is the empty keep-alive frame exchanged on channel 0.
type HeartbeatFrame struct{}

func (f *HeartbeatFrame) Channel() uint16 { return 0 }

// ProtocolHeaderFrame is the literal 8-byte preamble, not a framed payload
// at all. It exists so Connection can push it through the same
// Worker.Enqueue path as every other outbound frame instead of writing to
// the socket directly.
type ProtocolHeaderFrame struct{}

func (f ProtocolHeaderFrame) Channel() uint16 { return 0 }

// Method is any AMQP method payload: a class-id/method-id tagged RPC
// argument list that can marshal itself to and from an argument buffer.
type Method interface {
	ClassId() uint16
	MethodId() uint16
}

// ContentMethod is implemented by methods that are followed by a content
// header and zero or more content bodies (basic.publish, basic.deliver,
// basic.return, basic.get-ok).
type ContentMethod interface {
	Method
	isContentMethod()
}
