// SPDX-License-Identifier: MIT
//
// Package transport publishes analysis events to interested listeners:
// websocket clients, the log and UDP receivers.
package transport

import (
	"errors"
	"time"
)

// Transport defines a generic interface for sending events.
// Implementations must be safe for concurrent use and must not block the
// caller for long; slow consumers drop events instead.
type Transport interface {
	Send(data any) error
	Close() error
}

// EventAnalysis is the Type of an AnalysisEvent.
const EventAnalysis = "analysis"

// AnalysisEvent is published once per completed analysis.
type AnalysisEvent struct {
	Type          string      `json:"type"`
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Key           string      `json:"key"`
	KeyConfidence float64     `json:"key_confidence"`
	BPM           float64     `json:"bpm"`
	BPMConfidence float64     `json:"bpm_confidence"`
	Chroma        [12]float64 `json:"chroma"`
	Status        string      `json:"status"`
	Title         string      `json:"title,omitempty"`
	Artist        string      `json:"artist,omitempty"`
}

// Multi sends every event to each transport in turn.
type Multi []Transport

// Send implements Transport. Every transport is tried; their errors are
// joined.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Transport.
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
