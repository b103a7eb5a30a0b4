package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucidmq/amqp/internal/wire"
	"github.com/lucidmq/amqp/internal/wiretest"
)

func dialPipe(t *testing.T, cfg Config) (*Connection, *wiretest.Broker) {
	t.Helper()
	client, broker := wiretest.NewPipe()
	require.NoError(t, broker.Start())

	handshakeErr := make(chan error, 1)
	go func() { handshakeErr <- broker.Handshake(wiretest.HandshakeOpts{}) }()

	if cfg.SASL == nil {
		cfg.SASL = []Authentication{&PlainAuth{Username: "guest", Password: "guest"}}
	}
	if cfg.Vhost == "" {
		cfg.Vhost = "/"
	}

	conn, err := Open(client, cfg)
	require.NoError(t, err)
	require.NoError(t, <-handshakeErr)

	return conn, broker
}

func TestOpenCompletesHandshake(t *testing.T) {
	conn, broker := dialPipe(t, Config{})
	defer broker.Close()

	require.Equal(t, StateOpen, conn.State())
	require.Equal(t, 0, conn.Major)
	require.Equal(t, 9, conn.Minor)
}

func TestOpenAuthFailureDuringHandshake(t *testing.T) {
	client, broker := wiretest.NewPipe()
	require.NoError(t, broker.Start())
	defer broker.Close()

	go func() {
		broker.Send(0, wire.ConnectionStart{
			VersionMajor: 0, VersionMinor: 9,
			ServerProperties: wire.Table{},
			Mechanisms:       "PLAIN",
			Locales:          "en_US",
		})
		_, _ = broker.ExpectMethod(2*time.Second, 10, 11) // connection.start-ok
		broker.Send(0, wire.ConnectionClose{ReplyCode: 403, ReplyText: "ACCESS_REFUSED"})
	}()

	_, err := Open(client, Config{
		SASL:  []Authentication{&PlainAuth{Username: "guest", Password: "wrong"}},
		Vhost: "/",
	})

	require.Error(t, err)
	var authErr *AuthFailureError
	require.True(t, errors.As(err, &authErr))
}

// TestOpenOffersExternalSASLWhenEligible covers the EXTERNAL fallback: blank
// credentials plus a broker capabilities table negotiating
// authentication_failure_close must make connection.start-ok offer EXTERNAL
// ahead of the configured PLAIN mechanism, spec section 4.2.
func TestOpenOffersExternalSASLWhenEligible(t *testing.T) {
	client, broker := wiretest.NewPipe()
	require.NoError(t, broker.Start())
	defer broker.Close()

	handshakeErr := make(chan error, 1)
	go func() {
		broker.Send(0, wire.ConnectionStart{
			VersionMajor: 0, VersionMinor: 9,
			ServerProperties: wire.Table{
				"capabilities": wire.Table{"authentication_failure_close": true},
			},
			Mechanisms: "PLAIN EXTERNAL",
			Locales:    "en_US",
		})

		startOk, err := broker.ExpectMethod(2*time.Second, 10, 11) // connection.start-ok
		if err != nil {
			handshakeErr <- err
			return
		}
		so, ok := startOk.(wire.ConnectionStartOk)
		if !ok {
			handshakeErr <- fmt.Errorf("expected connection.start-ok, got %T", startOk)
			return
		}
		if so.Mechanism != "EXTERNAL" {
			handshakeErr <- fmt.Errorf("expected EXTERNAL mechanism, got %q", so.Mechanism)
			return
		}

		broker.Send(0, wire.ConnectionTune{ChannelMax: 2047, FrameMax: 131072, Heartbeat: 0})
		if _, err := broker.ExpectMethod(2*time.Second, 10, 31); err != nil { // connection.tune-ok
			handshakeErr <- err
			return
		}
		if _, err := broker.ExpectMethod(2*time.Second, 10, 40); err != nil { // connection.open
			handshakeErr <- err
			return
		}
		broker.Send(0, wire.ConnectionOpenOk{})
		handshakeErr <- nil
	}()

	conn, err := Open(client, Config{
		SASL:  []Authentication{&PlainAuth{}}, // blank credentials
		Vhost: "/",
	})
	require.NoError(t, err)
	require.NoError(t, <-handshakeErr)
	require.Equal(t, StateOpen, conn.State())
}

func TestConnectionCloseIsGraceful(t *testing.T) {
	conn, broker := dialPipe(t, Config{})
	defer broker.Close()

	closeOk := make(chan struct{})
	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 10, 50) // connection.close
		broker.Send(0, wire.ConnectionCloseOk{})
		close(closeOk)
	}()

	require.NoError(t, conn.Close())
	<-closeOk
	require.Equal(t, StateClosedByClient, conn.State())

	// A second Close is a no-op, not an error.
	require.NoError(t, conn.Close())
}

func TestConnectionNotifyCloseOnBrokerInitiatedClose(t *testing.T) {
	conn, broker := dialPipe(t, Config{})
	defer broker.Close()

	notify := conn.NotifyClose(make(chan *Error, 1))

	broker.Send(0, wire.ConnectionClose{ReplyCode: ReplyConnectionForced, ReplyText: "forced"})

	select {
	case err := <-notify:
		require.NotNil(t, err)
		require.Equal(t, uint16(ReplyConnectionForced), err.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for NotifyClose")
	}

	require.Equal(t, StateClosedByServer, conn.State())
}

func TestConnectionScopedClosesExactlyOnce(t *testing.T) {
	conn, broker := dialPipe(t, Config{})
	defer broker.Close()

	closeOk := make(chan struct{})
	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 10, 50)
		broker.Send(0, wire.ConnectionCloseOk{})
		close(closeOk)
	}()

	err := conn.Scoped(func(c *Connection) error {
		require.Equal(t, StateOpen, c.State())
		return nil
	})
	require.NoError(t, err)
	<-closeOk
	require.Equal(t, StateClosedByClient, conn.State())
}

func TestConnectionScopedClosesOnErrorPath(t *testing.T) {
	conn, broker := dialPipe(t, Config{})
	defer broker.Close()

	closeOk := make(chan struct{})
	go func() {
		_, _ = broker.ExpectMethod(2*time.Second, 10, 50)
		broker.Send(0, wire.ConnectionCloseOk{})
		close(closeOk)
	}()

	sentinel := errors.New("boom")
	err := conn.Scoped(func(c *Connection) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	<-closeOk
	require.Equal(t, StateClosedByClient, conn.State())
}
