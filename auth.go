package amqp

import "strings"

// Authentication is a SASL mechanism: a name and the initial response bytes
// sent in connection.start-ok.
type Authentication interface {
	Mechanism() string
	Response() string
}

// PlainAuth implements the SASL PLAIN mechanism (RFC 4616): the default for
// AMQP URIs carrying a username and password.
type PlainAuth struct {
	Username string
	Password string
}

func (a *PlainAuth) Mechanism() string { return "PLAIN" }
func (a *PlainAuth) Response() string {
	return "\x00" + a.Username + "\x00" + a.Password
}

// ExternalAuth implements the SASL EXTERNAL mechanism: used when the
// transport itself (TLS client certificates) carries the identity, and the
// broker advertises the authentication_failure_close capability.
type ExternalAuth struct{}

func (a *ExternalAuth) Mechanism() string { return "EXTERNAL" }
func (a *ExternalAuth) Response() string  { return "" }

// pickSASLMechanism chooses the first mechanism in offered that the server
// advertised in serverMechanisms (a space-separated list per connection.start).
func pickSASLMechanism(offered []Authentication, serverMechanisms string) (Authentication, bool) {
	supported := make(map[string]bool)
	for _, m := range strings.Split(serverMechanisms, " ") {
		supported[m] = true
	}
	for _, a := range offered {
		if supported[a.Mechanism()] {
			return a, true
		}
	}
	return nil, false
}
