package arq

import "github.com/sirupsen/logrus"

// discardLogger is a fully silenced logrus.Entry, used so call sites
// never need a nil check before logging.
func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// SetLogger overrides the logger used for this control block's
// diagnostic output. Passing nil silences logging entirely.
func (cb *ControlBlock) SetLogger(log *logrus.Entry) {
	if log == nil {
		log = discardLogger()
	}
	cb.log = log
}
