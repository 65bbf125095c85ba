// SPDX-License-Identifier: MIT

// Package transport publishes analysis events (progress, results, errors
// and completion notices) to loggers, UDP listeners and websocket clients.
package transport

import (
	"errors"
	"time"

	"soundlab/internal/analysis"
)

// Transport defines a generic interface for sending analysis events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// EventType discriminates Event payloads.
type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
)

// Event is the message sent for one step of one analysis request. ID is the
// caller's correlation id (empty for command line runs).
type Event struct {
	Type     EventType     `json:"type"`
	ID       string        `json:"id,omitempty"`
	File     string        `json:"file,omitempty"`
	Mode     analysis.Mode `json:"mode,omitempty"`
	Stage    string        `json:"stage,omitempty"`
	Fraction float64       `json:"fraction,omitempty"`
	Result   any           `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Code     string        `json:"code,omitempty"`
	Time     time.Time     `json:"time"`
}

// ProgressEvent wraps an engine progress report.
func ProgressEvent(id, file string, p analysis.Progress) Event {
	return Event{Type: EventProgress, ID: id, File: file, Mode: p.Mode, Stage: p.Stage, Fraction: p.Fraction, Time: time.Now()}
}

// ResultEvent carries a finished analysis result.
func ResultEvent(id, file string, mode analysis.Mode, result any) Event {
	return Event{Type: EventResult, ID: id, File: file, Mode: mode, Result: result, Time: time.Now()}
}

// ErrorEvent reports a failed request. Code is the engine error code when
// err is an *analysis.Error.
func ErrorEvent(id, file string, mode analysis.Mode, err error) Event {
	return Event{Type: EventError, ID: id, File: file, Mode: mode, Error: err.Error(), Code: analysis.ErrorCode(err), Time: time.Now()}
}

// CompleteEvent announces that a request finished, successfully or not.
func CompleteEvent(id, file string, mode analysis.Mode, failed bool) Event {
	e := Event{Type: EventComplete, ID: id, File: file, Mode: mode, Time: time.Now()}
	if failed {
		e.Stage = "failed"
	} else {
		e.Stage = "done"
	}
	return e
}

// ProgressTo returns an engine progress callback that forwards every
// report to t. Send errors are dropped; progress is advisory.
func ProgressTo(t Transport, id, file string) analysis.ProgressFunc {
	return func(p analysis.Progress) {
		_ = t.Send(ProgressEvent(id, file, p))
	}
}

// Multi fans every Send out to each transport in order.
type Multi []Transport

// Send delivers data to every transport and joins their errors.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
