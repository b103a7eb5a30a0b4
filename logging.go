package amqp

import "github.com/sirupsen/logrus"

// logger returns cfg's logger, defaulting to a fresh logrus logger at Warn
// level so a library consumer who never sets one doesn't get flooded with
// debug-level frame tracing. Mirrors the nil-checked-logger idiom this
// package's domain wrappers use (inject-or-default), rather than a package
// level global.
func (cfg *Config) logger() *logrus.Entry {
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		cfg.Logger = l
	}
	return cfg.Logger.WithField("component", "amqp")
}
