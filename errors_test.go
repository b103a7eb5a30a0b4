package amqp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsHardErrorClassification(t *testing.T) {
	require.True(t, IsHardError(ReplyChannelError))
	require.True(t, IsHardError(ReplyFrameError))
	require.False(t, IsHardError(ReplyNotFound))
	require.False(t, IsHardError(ReplyPreconditionFail))
	require.False(t, IsHardError(ReplyAccessRefused))
}

func TestNewErrorDerivesRecoverFromReplyCode(t *testing.T) {
	soft := newError(ReplyPreconditionFail, "precondition failed", 50, 10)
	require.True(t, soft.Recover)

	hard := newError(ReplyChannelError, "unexpected frame", 60, 40)
	require.False(t, hard.Recover)
}

func TestReplyCodeErrorMatchesTypedSubkind(t *testing.T) {
	err := ReplyCodeError(ReplyPreconditionFail, "inequivalent arg", 50, 10)

	var pf *PreconditionFailedError
	require.True(t, errors.As(err, &pf))
	require.Equal(t, uint16(ReplyPreconditionFail), pf.Code)
	require.Equal(t, "inequivalent arg", pf.Reason)
}

func TestErrorTypedWrapsEveryReplyCodeAsASentinel(t *testing.T) {
	cases := []struct {
		code uint16
		as   interface{}
	}{
		{ReplyAccessRefused, new(*AccessRefusedError)},
		{ReplyNotFound, new(*NotFoundError)},
		{ReplyResourceLocked, new(*ResourceLockedError)},
		{ReplyPreconditionFail, new(*PreconditionFailedError)},
		{ReplyChannelError, new(*ChannelErrorError)},
		{ReplyResourceError, new(*ResourceErrorError)},
		{ReplyNotAllowed, new(*NotAllowedError)},
		{ReplyNotImplemented, new(*NotImplementedError)},
		{ReplyInternalError, new(*InternalErrorError)},
		{ReplyFrameError, new(*FrameErrorError)},
		{ReplySyntaxError, new(*SyntaxErrorError)},
		{ReplyCommandInvalid, new(*CommandInvalidError)},
		{ReplyUnexpectedFrame, new(*UnexpectedFrameError)},
	}

	for _, tc := range cases {
		base := newError(tc.code, "boom", 0, 0)
		err := base.Typed()
		require.True(t, errors.As(err, tc.as), "code %d should unwrap to %T", tc.code, tc.as)
	}
}

func TestLocalNotAllowedIsTypedAsNotAllowed(t *testing.T) {
	err := localNotAllowed("cannot enable confirms on a transactional channel")

	var na *NotAllowedError
	require.True(t, errors.As(err, &na))
	require.Equal(t, uint16(ReplyNotAllowed), na.Code)
}

func TestChannelClosedErrorUnwrapsCause(t *testing.T) {
	cause := &ConnectionResetError{Cause: errors.New("EOF")}
	err := &ChannelClosedError{Cause: cause}

	require.True(t, errors.Is(err, err))
	require.Equal(t, cause, errors.Unwrap(err))
}
