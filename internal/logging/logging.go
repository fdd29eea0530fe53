// Package logging provides the structured logger every package in this
// module logs through: one shared entry point, callers attach fields rather
// than format strings.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Entry is a structured log entry pre-populated with a session or invoke id.
type Entry = logrus.Entry

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the package-wide log level, e.g. from a CLI flag.
func SetLevel(level string) error {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lv)
	return nil
}

// WithSession returns an Entry scoped to sessionID.
func WithSession(sessionID string) *Entry {
	return base.WithField("sessionid", sessionID)
}

// WithInvoke returns an Entry scoped to invokeID.
func WithInvoke(invokeID string) *Entry {
	return base.WithField("invokeid", invokeID)
}

// Base returns the underlying logger for callers that need to configure
// output/hooks directly (e.g. the CLI entry point).
func Base() *logrus.Logger { return base }
