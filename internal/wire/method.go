package wire

import "fmt"

// Class ids, section 1.8.2 / the AMQP 0-9-1 method table.
const (
	classConnection = 10
	classChannel    = 20
	classExchange   = 40
	classQueue      = 50
	classBasic      = 60
	classTx         = 90
	classConfirm    = 85
)

// --- connection class ---

type ConnectionStart struct {
	VersionMajor     byte
	VersionMinor     byte
	ServerProperties Table
	Mechanisms       string
	Locales          string
}

func (ConnectionStart) ClassId() uint16  { return classConnection }
func (ConnectionStart) MethodId() uint16 { return 10 }

type ConnectionStartOk struct {
	ClientProperties Table
	Mechanism        string
	Response         string
	Locale           string
}

func (ConnectionStartOk) ClassId() uint16  { return classConnection }
func (ConnectionStartOk) MethodId() uint16 { return 11 }

type ConnectionSecure struct{ Challenge string }

func (ConnectionSecure) ClassId() uint16  { return classConnection }
func (ConnectionSecure) MethodId() uint16 { return 20 }

type ConnectionSecureOk struct{ Response string }

func (ConnectionSecureOk) ClassId() uint16  { return classConnection }
func (ConnectionSecureOk) MethodId() uint16 { return 21 }

type ConnectionTune struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func (ConnectionTune) ClassId() uint16  { return classConnection }
func (ConnectionTune) MethodId() uint16 { return 30 }

type ConnectionTuneOk struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func (ConnectionTuneOk) ClassId() uint16  { return classConnection }
func (ConnectionTuneOk) MethodId() uint16 { return 31 }

type ConnectionOpen struct {
	VirtualHost string
}

func (ConnectionOpen) ClassId() uint16  { return classConnection }
func (ConnectionOpen) MethodId() uint16 { return 40 }

type ConnectionOpenOk struct{}

func (ConnectionOpenOk) ClassId() uint16  { return classConnection }
func (ConnectionOpenOk) MethodId() uint16 { return 41 }

type ConnectionClose struct {
	ReplyCode uint16
	ReplyText string
	ClassId_  uint16
	MethodId_ uint16
}

func (ConnectionClose) ClassId() uint16  { return classConnection }
func (ConnectionClose) MethodId() uint16 { return 50 }

type ConnectionCloseOk struct{}

func (ConnectionCloseOk) ClassId() uint16  { return classConnection }
func (ConnectionCloseOk) MethodId() uint16 { return 51 }

type ConnectionBlocked struct{ Reason string }

func (ConnectionBlocked) ClassId() uint16  { return classConnection }
func (ConnectionBlocked) MethodId() uint16 { return 60 }

type ConnectionUnblocked struct{}

func (ConnectionUnblocked) ClassId() uint16  { return classConnection }
func (ConnectionUnblocked) MethodId() uint16 { return 61 }

// --- channel class ---

type ChannelOpen struct{}

func (ChannelOpen) ClassId() uint16  { return classChannel }
func (ChannelOpen) MethodId() uint16 { return 10 }

type ChannelOpenOk struct{}

func (ChannelOpenOk) ClassId() uint16  { return classChannel }
func (ChannelOpenOk) MethodId() uint16 { return 11 }

type ChannelFlow struct{ Active bool }

func (ChannelFlow) ClassId() uint16  { return classChannel }
func (ChannelFlow) MethodId() uint16 { return 20 }

type ChannelFlowOk struct{ Active bool }

func (ChannelFlowOk) ClassId() uint16  { return classChannel }
func (ChannelFlowOk) MethodId() uint16 { return 21 }

type ChannelClose struct {
	ReplyCode uint16
	ReplyText string
	ClassId_  uint16
	MethodId_ uint16
}

func (ChannelClose) ClassId() uint16  { return classChannel }
func (ChannelClose) MethodId() uint16 { return 40 }

type ChannelCloseOk struct{}

func (ChannelCloseOk) ClassId() uint16  { return classChannel }
func (ChannelCloseOk) MethodId() uint16 { return 41 }

// --- exchange class ---

type ExchangeDeclare struct {
	Exchange   string
	Type       string
	Passive    bool
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Arguments  Table
}

func (ExchangeDeclare) ClassId() uint16  { return classExchange }
func (ExchangeDeclare) MethodId() uint16 { return 10 }

type ExchangeDeclareOk struct{}

func (ExchangeDeclareOk) ClassId() uint16  { return classExchange }
func (ExchangeDeclareOk) MethodId() uint16 { return 11 }

type ExchangeDelete struct {
	Exchange string
	IfUnused bool
	NoWait   bool
}

func (ExchangeDelete) ClassId() uint16  { return classExchange }
func (ExchangeDelete) MethodId() uint16 { return 20 }

type ExchangeDeleteOk struct{}

func (ExchangeDeleteOk) ClassId() uint16  { return classExchange }
func (ExchangeDeleteOk) MethodId() uint16 { return 21 }

type ExchangeBind struct {
	Destination string
	Source      string
	RoutingKey  string
	NoWait      bool
	Arguments   Table
}

func (ExchangeBind) ClassId() uint16  { return classExchange }
func (ExchangeBind) MethodId() uint16 { return 30 }

type ExchangeBindOk struct{}

func (ExchangeBindOk) ClassId() uint16  { return classExchange }
func (ExchangeBindOk) MethodId() uint16 { return 31 }

type ExchangeUnbind struct {
	Destination string
	Source      string
	RoutingKey  string
	NoWait      bool
	Arguments   Table
}

func (ExchangeUnbind) ClassId() uint16  { return classExchange }
func (ExchangeUnbind) MethodId() uint16 { return 40 }

type ExchangeUnbindOk struct{}

func (ExchangeUnbindOk) ClassId() uint16  { return classExchange }
func (ExchangeUnbindOk) MethodId() uint16 { return 51 }

// --- queue class ---

type QueueDeclare struct {
	Queue      string
	Passive    bool
	Durable    bool
	Exclusive  bool
	AutoDelete bool
	NoWait     bool
	Arguments  Table
}

func (QueueDeclare) ClassId() uint16  { return classQueue }
func (QueueDeclare) MethodId() uint16 { return 10 }

type QueueDeclareOk struct {
	Queue         string
	MessageCount  uint32
	ConsumerCount uint32
}

func (QueueDeclareOk) ClassId() uint16  { return classQueue }
func (QueueDeclareOk) MethodId() uint16 { return 11 }

type QueueBind struct {
	Queue      string
	Exchange   string
	RoutingKey string
	NoWait     bool
	Arguments  Table
}

func (QueueBind) ClassId() uint16  { return classQueue }
func (QueueBind) MethodId() uint16 { return 20 }

type QueueBindOk struct{}

func (QueueBindOk) ClassId() uint16  { return classQueue }
func (QueueBindOk) MethodId() uint16 { return 21 }

type QueuePurge struct {
	Queue  string
	NoWait bool
}

func (QueuePurge) ClassId() uint16  { return classQueue }
func (QueuePurge) MethodId() uint16 { return 30 }

type QueuePurgeOk struct{ MessageCount uint32 }

func (QueuePurgeOk) ClassId() uint16  { return classQueue }
func (QueuePurgeOk) MethodId() uint16 { return 31 }

type QueueDelete struct {
	Queue    string
	IfUnused bool
	IfEmpty  bool
	NoWait   bool
}

func (QueueDelete) ClassId() uint16  { return classQueue }
func (QueueDelete) MethodId() uint16 { return 40 }

type QueueDeleteOk struct{ MessageCount uint32 }

func (QueueDeleteOk) ClassId() uint16  { return classQueue }
func (QueueDeleteOk) MethodId() uint16 { return 41 }

type QueueUnbind struct {
	Queue      string
	Exchange   string
	RoutingKey string
	Arguments  Table
}

func (QueueUnbind) ClassId() uint16  { return classQueue }
func (QueueUnbind) MethodId() uint16 { return 50 }

type QueueUnbindOk struct{}

func (QueueUnbindOk) ClassId() uint16  { return classQueue }
func (QueueUnbindOk) MethodId() uint16 { return 51 }

// --- basic class ---

type BasicQos struct {
	PrefetchSize  uint32
	PrefetchCount uint16
	Global        bool
}

func (BasicQos) ClassId() uint16  { return classBasic }
func (BasicQos) MethodId() uint16 { return 10 }

type BasicQosOk struct{}

func (BasicQosOk) ClassId() uint16  { return classBasic }
func (BasicQosOk) MethodId() uint16 { return 11 }

type BasicConsume struct {
	Queue       string
	ConsumerTag string
	NoLocal     bool
	NoAck       bool
	Exclusive   bool
	NoWait      bool
	Arguments   Table
}

func (BasicConsume) ClassId() uint16  { return classBasic }
func (BasicConsume) MethodId() uint16 { return 20 }

type BasicConsumeOk struct{ ConsumerTag string }

func (BasicConsumeOk) ClassId() uint16  { return classBasic }
func (BasicConsumeOk) MethodId() uint16 { return 21 }

type BasicCancel struct {
	ConsumerTag string
	NoWait      bool
}

func (BasicCancel) ClassId() uint16  { return classBasic }
func (BasicCancel) MethodId() uint16 { return 30 }

type BasicCancelOk struct{ ConsumerTag string }

func (BasicCancelOk) ClassId() uint16  { return classBasic }
func (BasicCancelOk) MethodId() uint16 { return 31 }

type BasicPublish struct {
	Exchange   string
	RoutingKey string
	Mandatory  bool
	Immediate  bool
}

func (BasicPublish) ClassId() uint16  { return classBasic }
func (BasicPublish) MethodId() uint16 { return 40 }
func (BasicPublish) isContentMethod() {}

type BasicReturn struct {
	ReplyCode  uint16
	ReplyText  string
	Exchange   string
	RoutingKey string
}

func (BasicReturn) ClassId() uint16  { return classBasic }
func (BasicReturn) MethodId() uint16 { return 50 }
func (BasicReturn) isContentMethod() {}

type BasicDeliver struct {
	ConsumerTag string
	DeliveryTag uint64
	Redelivered bool
	Exchange    string
	RoutingKey  string
}

func (BasicDeliver) ClassId() uint16  { return classBasic }
func (BasicDeliver) MethodId() uint16 { return 60 }
func (BasicDeliver) isContentMethod() {}

type BasicGet struct {
	Queue  string
	NoAck  bool
}

func (BasicGet) ClassId() uint16  { return classBasic }
func (BasicGet) MethodId() uint16 { return 70 }

type BasicGetOk struct {
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount uint32
}

func (BasicGetOk) ClassId() uint16  { return classBasic }
func (BasicGetOk) MethodId() uint16 { return 71 }
func (BasicGetOk) isContentMethod() {}

type BasicGetEmpty struct{}

func (BasicGetEmpty) ClassId() uint16  { return classBasic }
func (BasicGetEmpty) MethodId() uint16 { return 72 }

type BasicAck struct {
	DeliveryTag uint64
	Multiple    bool
}

func (BasicAck) ClassId() uint16  { return classBasic }
func (BasicAck) MethodId() uint16 { return 80 }

type BasicReject struct {
	DeliveryTag uint64
	Requeue     bool
}

func (BasicReject) ClassId() uint16  { return classBasic }
func (BasicReject) MethodId() uint16 { return 90 }

type BasicRecoverAsync struct{ Requeue bool }

func (BasicRecoverAsync) ClassId() uint16  { return classBasic }
func (BasicRecoverAsync) MethodId() uint16 { return 100 }

type BasicRecover struct{ Requeue bool }

func (BasicRecover) ClassId() uint16  { return classBasic }
func (BasicRecover) MethodId() uint16 { return 110 }

type BasicRecoverOk struct{}

func (BasicRecoverOk) ClassId() uint16  { return classBasic }
func (BasicRecoverOk) MethodId() uint16 { return 111 }

type BasicNack struct {
	DeliveryTag uint64
	Multiple    bool
	Requeue     bool
}

func (BasicNack) ClassId() uint16  { return classBasic }
func (BasicNack) MethodId() uint16 { return 120 }

// --- confirm class (RabbitMQ extension) ---

type ConfirmSelect struct{ NoWait bool }

func (ConfirmSelect) ClassId() uint16  { return classConfirm }
func (ConfirmSelect) MethodId() uint16 { return 10 }

type ConfirmSelectOk struct{}

func (ConfirmSelectOk) ClassId() uint16  { return classConfirm }
func (ConfirmSelectOk) MethodId() uint16 { return 11 }

// --- tx class ---

type TxSelect struct{}

func (TxSelect) ClassId() uint16  { return classTx }
func (TxSelect) MethodId() uint16 { return 10 }

type TxSelectOk struct{}

func (TxSelectOk) ClassId() uint16  { return classTx }
func (TxSelectOk) MethodId() uint16 { return 11 }

type TxCommit struct{}

func (TxCommit) ClassId() uint16  { return classTx }
func (TxCommit) MethodId() uint16 { return 20 }

type TxCommitOk struct{}

func (TxCommitOk) ClassId() uint16  { return classTx }
func (TxCommitOk) MethodId() uint16 { return 21 }

type TxRollback struct{}

func (TxRollback) ClassId() uint16  { return classTx }
func (TxRollback) MethodId() uint16 { return 30 }

type TxRollbackOk struct{}

func (TxRollbackOk) ClassId() uint16  { return classTx }
func (TxRollbackOk) MethodId() uint16 { return 31 }

// decodeMethod dispatches on (classId, methodId) and decodes the argument
// buffer into the matching Method value.
func decodeMethod(classId, methodId uint16, args []byte) (Method, error) {
	r := &byteReader{b: args}

	switch {
	case classId == classConnection && methodId == 10:
		var m ConnectionStart
		m.VersionMajor, _ = r.octet()
		m.VersionMinor, _ = r.octet()
		m.ServerProperties, _ = r.table()
		m.Mechanisms, _ = r.longstr()
		m.Locales, _ = r.longstr()
		return m, nil
	case classId == classConnection && methodId == 11:
		var m ConnectionStartOk
		m.ClientProperties, _ = r.table()
		m.Mechanism, _ = r.shortstr()
		m.Response, _ = r.longstr()
		m.Locale, _ = r.shortstr()
		return m, nil
	case classId == classConnection && methodId == 20:
		var m ConnectionSecure
		m.Challenge, _ = r.longstr()
		return m, nil
	case classId == classConnection && methodId == 21:
		var m ConnectionSecureOk
		m.Response, _ = r.longstr()
		return m, nil
	case classId == classConnection && methodId == 30:
		var m ConnectionTune
		m.ChannelMax, _ = r.short()
		m.FrameMax, _ = r.long()
		hb, _ := r.short()
		m.Heartbeat = hb
		return m, nil
	case classId == classConnection && methodId == 31:
		var m ConnectionTuneOk
		m.ChannelMax, _ = r.short()
		m.FrameMax, _ = r.long()
		hb, _ := r.short()
		m.Heartbeat = hb
		return m, nil
	case classId == classConnection && methodId == 40:
		var m ConnectionOpen
		m.VirtualHost, _ = r.shortstr()
		return m, nil
	case classId == classConnection && methodId == 41:
		return ConnectionOpenOk{}, nil
	case classId == classConnection && methodId == 50:
		var m ConnectionClose
		m.ReplyCode, _ = r.short()
		m.ReplyText, _ = r.shortstr()
		m.ClassId_, _ = r.short()
		m.MethodId_, _ = r.short()
		return m, nil
	case classId == classConnection && methodId == 51:
		return ConnectionCloseOk{}, nil
	case classId == classConnection && methodId == 60:
		var m ConnectionBlocked
		m.Reason, _ = r.shortstr()
		return m, nil
	case classId == classConnection && methodId == 61:
		return ConnectionUnblocked{}, nil

	case classId == classChannel && methodId == 10:
		return ChannelOpen{}, nil
	case classId == classChannel && methodId == 11:
		return ChannelOpenOk{}, nil
	case classId == classChannel && methodId == 20:
		active, _ := r.octet()
		return ChannelFlow{Active: active != 0}, nil
	case classId == classChannel && methodId == 21:
		active, _ := r.octet()
		return ChannelFlowOk{Active: active != 0}, nil
	case classId == classChannel && methodId == 40:
		var m ChannelClose
		m.ReplyCode, _ = r.short()
		m.ReplyText, _ = r.shortstr()
		m.ClassId_, _ = r.short()
		m.MethodId_, _ = r.short()
		return m, nil
	case classId == classChannel && methodId == 41:
		return ChannelCloseOk{}, nil

	case classId == classExchange && methodId == 10:
		var m ExchangeDeclare
		_, _ = r.short() // reserved deprecated ticket field
		m.Exchange, _ = r.shortstr()
		m.Type, _ = r.shortstr()
		flags, _ := r.octet()
		m.Passive = flags&0x1 != 0
		m.Durable = flags&0x2 != 0
		m.AutoDelete = flags&0x4 != 0
		m.Internal = flags&0x8 != 0
		m.NoWait = flags&0x10 != 0
		m.Arguments, _ = r.table()
		return m, nil
	case classId == classExchange && methodId == 11:
		return ExchangeDeclareOk{}, nil
	case classId == classExchange && methodId == 20:
		var m ExchangeDelete
		_, _ = r.short()
		m.Exchange, _ = r.shortstr()
		flags, _ := r.octet()
		m.IfUnused = flags&0x1 != 0
		m.NoWait = flags&0x2 != 0
		return m, nil
	case classId == classExchange && methodId == 21:
		return ExchangeDeleteOk{}, nil
	case classId == classExchange && methodId == 30:
		var m ExchangeBind
		_, _ = r.short()
		m.Destination, _ = r.shortstr()
		m.Source, _ = r.shortstr()
		m.RoutingKey, _ = r.shortstr()
		nw, _ := r.octet()
		m.NoWait = nw != 0
		m.Arguments, _ = r.table()
		return m, nil
	case classId == classExchange && methodId == 31:
		return ExchangeBindOk{}, nil
	case classId == classExchange && methodId == 40:
		var m ExchangeUnbind
		_, _ = r.short()
		m.Destination, _ = r.shortstr()
		m.Source, _ = r.shortstr()
		m.RoutingKey, _ = r.shortstr()
		nw, _ := r.octet()
		m.NoWait = nw != 0
		m.Arguments, _ = r.table()
		return m, nil
	case classId == classExchange && methodId == 51:
		return ExchangeUnbindOk{}, nil

	case classId == classQueue && methodId == 10:
		var m QueueDeclare
		_, _ = r.short()
		m.Queue, _ = r.shortstr()
		flags, _ := r.octet()
		m.Passive = flags&0x1 != 0
		m.Durable = flags&0x2 != 0
		m.Exclusive = flags&0x4 != 0
		m.AutoDelete = flags&0x8 != 0
		m.NoWait = flags&0x10 != 0
		m.Arguments, _ = r.table()
		return m, nil
	case classId == classQueue && methodId == 11:
		var m QueueDeclareOk
		m.Queue, _ = r.shortstr()
		m.MessageCount, _ = r.long()
		m.ConsumerCount, _ = r.long()
		return m, nil
	case classId == classQueue && methodId == 20:
		var m QueueBind
		_, _ = r.short()
		m.Queue, _ = r.shortstr()
		m.Exchange, _ = r.shortstr()
		m.RoutingKey, _ = r.shortstr()
		nw, _ := r.octet()
		m.NoWait = nw != 0
		m.Arguments, _ = r.table()
		return m, nil
	case classId == classQueue && methodId == 21:
		return QueueBindOk{}, nil
	case classId == classQueue && methodId == 30:
		var m QueuePurge
		_, _ = r.short()
		m.Queue, _ = r.shortstr()
		nw, _ := r.octet()
		m.NoWait = nw != 0
		return m, nil
	case classId == classQueue && methodId == 31:
		var m QueuePurgeOk
		m.MessageCount, _ = r.long()
		return m, nil
	case classId == classQueue && methodId == 40:
		var m QueueDelete
		_, _ = r.short()
		m.Queue, _ = r.shortstr()
		flags, _ := r.octet()
		m.IfUnused = flags&0x1 != 0
		m.IfEmpty = flags&0x2 != 0
		m.NoWait = flags&0x4 != 0
		return m, nil
	case classId == classQueue && methodId == 41:
		var m QueueDeleteOk
		m.MessageCount, _ = r.long()
		return m, nil
	case classId == classQueue && methodId == 50:
		var m QueueUnbind
		_, _ = r.short()
		m.Queue, _ = r.shortstr()
		m.Exchange, _ = r.shortstr()
		m.RoutingKey, _ = r.shortstr()
		m.Arguments, _ = r.table()
		return m, nil
	case classId == classQueue && methodId == 51:
		return QueueUnbindOk{}, nil

	case classId == classBasic && methodId == 10:
		var m BasicQos
		m.PrefetchSize, _ = r.long()
		m.PrefetchCount, _ = r.short()
		global, _ := r.octet()
		m.Global = global != 0
		return m, nil
	case classId == classBasic && methodId == 11:
		return BasicQosOk{}, nil
	case classId == classBasic && methodId == 20:
		var m BasicConsume
		_, _ = r.short()
		m.Queue, _ = r.shortstr()
		m.ConsumerTag, _ = r.shortstr()
		flags, _ := r.octet()
		m.NoLocal = flags&0x1 != 0
		m.NoAck = flags&0x2 != 0
		m.Exclusive = flags&0x4 != 0
		m.NoWait = flags&0x8 != 0
		m.Arguments, _ = r.table()
		return m, nil
	case classId == classBasic && methodId == 21:
		var m BasicConsumeOk
		m.ConsumerTag, _ = r.shortstr()
		return m, nil
	case classId == classBasic && methodId == 31:
		var m BasicCancelOk
		m.ConsumerTag, _ = r.shortstr()
		return m, nil
	case classId == classBasic && methodId == 30:
		var m BasicCancel
		m.ConsumerTag, _ = r.shortstr()
		nw, _ := r.octet()
		m.NoWait = nw != 0
		return m, nil
	case classId == classBasic && methodId == 40:
		var m BasicPublish
		_, _ = r.short()
		m.Exchange, _ = r.shortstr()
		m.RoutingKey, _ = r.shortstr()
		flags, _ := r.octet()
		m.Mandatory = flags&0x1 != 0
		m.Immediate = flags&0x2 != 0
		return m, nil
	case classId == classBasic && methodId == 70:
		var m BasicGet
		_, _ = r.short()
		m.Queue, _ = r.shortstr()
		noAck, _ := r.octet()
		m.NoAck = noAck != 0
		return m, nil
	case classId == classBasic && methodId == 90:
		var m BasicReject
		m.DeliveryTag, _ = r.longlong()
		requeue, _ := r.octet()
		m.Requeue = requeue != 0
		return m, nil
	case classId == classBasic && methodId == 50:
		var m BasicReturn
		m.ReplyCode, _ = r.short()
		m.ReplyText, _ = r.shortstr()
		m.Exchange, _ = r.shortstr()
		m.RoutingKey, _ = r.shortstr()
		return m, nil
	case classId == classBasic && methodId == 60:
		var m BasicDeliver
		m.ConsumerTag, _ = r.shortstr()
		m.DeliveryTag, _ = r.longlong()
		redelivered, _ := r.octet()
		m.Redelivered = redelivered != 0
		m.Exchange, _ = r.shortstr()
		m.RoutingKey, _ = r.shortstr()
		return m, nil
	case classId == classBasic && methodId == 71:
		var m BasicGetOk
		m.DeliveryTag, _ = r.longlong()
		redelivered, _ := r.octet()
		m.Redelivered = redelivered != 0
		m.Exchange, _ = r.shortstr()
		m.RoutingKey, _ = r.shortstr()
		m.MessageCount, _ = r.long()
		return m, nil
	case classId == classBasic && methodId == 72:
		return BasicGetEmpty{}, nil
	case classId == classBasic && methodId == 80:
		var m BasicAck
		m.DeliveryTag, _ = r.longlong()
		mult, _ := r.octet()
		m.Multiple = mult != 0
		return m, nil
	case classId == classBasic && methodId == 120:
		var m BasicNack
		m.DeliveryTag, _ = r.longlong()
		flags, _ := r.octet()
		m.Multiple = flags&0x1 != 0
		m.Requeue = flags&0x2 != 0
		return m, nil
	case classId == classBasic && methodId == 111:
		return BasicRecoverOk{}, nil

	case classId == classConfirm && methodId == 10:
		nw, _ := r.octet()
		return ConfirmSelect{NoWait: nw != 0}, nil
	case classId == classConfirm && methodId == 11:
		return ConfirmSelectOk{}, nil

	case classId == classTx && methodId == 10:
		return TxSelect{}, nil
	case classId == classTx && methodId == 11:
		return TxSelectOk{}, nil
	case classId == classTx && methodId == 20:
		return TxCommit{}, nil
	case classId == classTx && methodId == 21:
		return TxCommitOk{}, nil
	case classId == classTx && methodId == 30:
		return TxRollback{}, nil
	case classId == classTx && methodId == 31:
		return TxRollbackOk{}, nil

	default:
		return nil, fmt.Errorf("wire: unknown method class=%d method=%d", classId, methodId)
	}
}
