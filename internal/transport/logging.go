// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"sessionkey/internal/log"
)

// LoggingTransport implements the Transport interface by logging events at
// debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Debug("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the event as JSON, or with %+v when it cannot be marshaled.
func (lt *LoggingTransport) Send(data any) error {
	if ev, ok := data.(AnalysisEvent); ok {
		log.WithFields(log.Fields{
			"id":     ev.ID,
			"key":    ev.Key,
			"bpm":    ev.BPM,
			"status": ev.Status,
		}).Debug("Transport: analysis event")
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Debugf("Transport: event (%T): %+v", data, data)
		return nil
	}
	log.Debugf("Transport: event (%T): %s", data, jsonData)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
