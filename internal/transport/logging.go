// SPDX-License-Identifier: MIT
package transport

import (
	"soundlab/internal/log"
)

// LoggingTransport implements the Transport interface by logging events as
// structured fields.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data. Progress lands at debug level, results and
// completion notices at info, errors at warn.
func (lt *LoggingTransport) Send(data any) error {
	e, ok := data.(Event)
	if !ok {
		log.WithFields(log.Fields{"data": data}).Debugf("Transport: received %T", data)
		return nil
	}

	entry := log.WithFields(log.Fields{
		"type": e.Type,
		"mode": e.Mode,
		"file": e.File,
	})
	if e.ID != "" {
		entry = entry.WithField("id", e.ID)
	}

	switch e.Type {
	case EventProgress:
		entry.WithField("stage", e.Stage).Debugf("Transport: %s %.0f%%", e.Stage, e.Fraction*100)
	case EventError:
		entry.WithField("code", e.Code).Warnf("Transport: analysis failed: %s", e.Error)
	case EventComplete:
		entry.Infof("Transport: analysis %s", e.Stage)
	default:
		entry.Infof("Transport: %s", e.Type)
	}
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
