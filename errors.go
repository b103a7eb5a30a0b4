package amqp

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reply codes from the AMQP 0-9-1 spec's constant table, section 1.8.2.3,
// plus the NO-ROUTE/NO-CONSUMERS basic.return codes from section 3.1.2.
const (
	ReplySuccess          = 200
	ReplyContentTooLarge  = 311
	ReplyNoRoute          = 312
	ReplyNoConsumers      = 313
	ReplyConnectionForced = 320
	ReplyInvalidPath      = 402
	ReplyAccessRefused    = 403
	ReplyNotFound         = 404
	ReplyResourceLocked   = 405
	ReplyPreconditionFail = 406
	ReplyFrameError       = 501
	ReplySyntaxError      = 502
	ReplyCommandInvalid   = 503
	ReplyChannelError     = 504
	ReplyUnexpectedFrame  = 505
	ReplyResourceError    = 506
	ReplyNotAllowed       = 530
	ReplyNotImplemented   = 540
	ReplyInternalError    = 541
)

// hardReplyCodes are the reply-codes the AMQP spec classifies as
// connection-fatal; every other reply-code is channel-scoped only.
var hardReplyCodes = map[uint16]bool{
	ReplyConnectionForced: true,
	ReplyInvalidPath:      true,
	ReplyFrameError:       true,
	ReplySyntaxError:      true,
	ReplyCommandInvalid:   true,
	ReplyChannelError:     true,
	ReplyUnexpectedFrame:  true,
	ReplyResourceError:    true,
	ReplyNotAllowed:       true,
	ReplyNotImplemented:   true,
	ReplyInternalError:    true,
}

// IsHardError reports whether a reply-code closes the whole connection
// (true) or only the issuing channel (false), per spec section 7.
func IsHardError(code uint16) bool {
	return hardReplyCodes[code]
}

// Error is a broker-initiated close: connection.close or channel.close
// carrying a reply-code, reply-text and the class/method that provoked it.
type Error struct {
	Code     uint16
	Reason   string
	ClassId  uint16
	MethodId uint16
	Recover  bool // true when the error is channel-scoped and a new channel can be opened
}

func (e *Error) Error() string {
	return fmt.Sprintf("amqp: reply code %d (%s) on class %d method %d", e.Code, e.Reason, e.ClassId, e.MethodId)
}

// newError builds the *Error record carried verbatim to NotifyClose
// listeners; Recover is derived straight from the hard/soft reply-code
// split, never passed in by the caller.
func newError(code uint16, reason string, classId, methodId uint16) *Error {
	return &Error{Code: code, Reason: reason, ClassId: classId, MethodId: methodId, Recover: !IsHardError(code)}
}

// Typed wraps e in the sentinel type matching its reply code (errors.As
// target) with a stack trace attached at the point the close is first
// observed -- the value handed to a failed RPC waiter or returned from
// Dial, as opposed to the raw *Error fanned out over NotifyClose.
func (e *Error) Typed() error {
	return errors.WithStack(typedReplyError(e))
}

// ReplyCodeError constructs the typed error for a given reply-code, the
// same value Typed() would produce for a broker-initiated close carrying
// that code.
func ReplyCodeError(code uint16, reason string, classId, methodId uint16) error {
	return newError(code, reason, classId, methodId).Typed()
}

// typedReplyError wraps base in the sentinel type matching its reply code,
// so callers can errors.As against a specific kind (PreconditionFailed,
// NotFound, AccessRefused, ...) as spec section 7 calls for.
func typedReplyError(base *Error) error {
	switch base.Code {
	case ReplyAccessRefused:
		return &AccessRefusedError{base}
	case ReplyNotFound:
		return &NotFoundError{base}
	case ReplyResourceLocked:
		return &ResourceLockedError{base}
	case ReplyPreconditionFail:
		return &PreconditionFailedError{base}
	case ReplyChannelError:
		return &ChannelErrorError{base}
	case ReplyResourceError:
		return &ResourceErrorError{base}
	case ReplyNotAllowed:
		return &NotAllowedError{base}
	case ReplyNotImplemented:
		return &NotImplementedError{base}
	case ReplyInternalError:
		return &InternalErrorError{base}
	case ReplyFrameError:
		return &FrameErrorError{base}
	case ReplySyntaxError:
		return &SyntaxErrorError{base}
	case ReplyCommandInvalid:
		return &CommandInvalidError{base}
	case ReplyUnexpectedFrame:
		return &UnexpectedFrameError{base}
	default:
		return base
	}
}

// Each typed subkind embeds *Error so errors.As(err, &target) works while
// still exposing Code/Reason/ClassId/MethodId.
type (
	AccessRefusedError      struct{ *Error }
	NotFoundError           struct{ *Error }
	ResourceLockedError     struct{ *Error }
	PreconditionFailedError struct{ *Error }
	ChannelErrorError       struct{ *Error }
	ResourceErrorError      struct{ *Error }
	NotAllowedError         struct{ *Error }
	NotImplementedError     struct{ *Error }
	InternalErrorError      struct{ *Error }
	FrameErrorError         struct{ *Error }
	SyntaxErrorError        struct{ *Error }
	CommandInvalidError     struct{ *Error }
	UnexpectedFrameError    struct{ *Error }
)

// ConnectionResetError wraps a socket failure or heartbeat timeout (spec
// section 7 "ConnectionReset").
type ConnectionResetError struct{ Cause error }

func (e *ConnectionResetError) Error() string { return "amqp: connection reset: " + e.Cause.Error() }
func (e *ConnectionResetError) Unwrap() error  { return e.Cause }

// AuthFailureError is raised when the broker closes with 403 during the
// handshake, before connection.open-ok.
type AuthFailureError struct{ Reason string }

func (e *AuthFailureError) Error() string { return "amqp: authentication failure: " + e.Reason }

// MessageReturnedError is raised when a mandatory/immediate publish is
// returned by the broker instead of routed.
type MessageReturnedError struct {
	ReplyCode  uint16
	ReplyText  string
	Exchange   string
	RoutingKey string
}

func (e *MessageReturnedError) Error() string {
	return fmt.Sprintf("amqp: message returned: %d %s (exchange=%q routing-key=%q)", e.ReplyCode, e.ReplyText, e.Exchange, e.RoutingKey)
}

// localNotAllowed builds a *NotAllowedError for a precondition the client
// rejects before ever sending a frame (e.g. confirms+tx on one channel),
// matching the typed error a broker-initiated 530 would produce.
func localNotAllowed(reason string) error {
	return &NotAllowedError{&Error{Code: ReplyNotAllowed, Reason: reason, Recover: true}}
}

// RpcTimeoutError reports an RPC deadline that expired before the broker
// responded. Channel RPCs in this package run without a deadline and take no
// per-call timeout, so none of them returns this error.
type RpcTimeoutError struct{}

func (e *RpcTimeoutError) Error() string { return "amqp: rpc timeout" }

// NoFreeChannelsError is raised when the channel-max id space is exhausted.
type NoFreeChannelsError struct{}

func (e *NoFreeChannelsError) Error() string { return "amqp: no free channel ids" }

// ChannelClosedError is returned for any RPC or Publish attempted on a
// channel that is CLOSING, CLOSED or REMOTE_CLOSED. Ack, Nack and Reject do
// not check the channel state.
type ChannelClosedError struct{ Cause error }

func (e *ChannelClosedError) Error() string {
	if e.Cause != nil {
		return "amqp: channel closed: " + e.Cause.Error()
	}
	return "amqp: channel closed"
}
func (e *ChannelClosedError) Unwrap() error { return e.Cause }

// ConnectionClosedError is returned for any operation attempted on a
// connection that is CLOSING, CLOSED_BY_SERVER or CLOSED_BY_CLIENT.
type ConnectionClosedError struct{ Cause error }

func (e *ConnectionClosedError) Error() string {
	if e.Cause != nil {
		return "amqp: connection closed: " + e.Cause.Error()
	}
	return "amqp: connection closed"
}
func (e *ConnectionClosedError) Unwrap() error { return e.Cause }
