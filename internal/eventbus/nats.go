/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus mirrors engine events onto NATS.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/events"
)

// DefaultSubjectPrefix prefixes every mirrored event subject.
const DefaultSubjectPrefix = "godspeed.events"

// Publisher is the subset of *nats.Conn the bus needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSConfig contains mirroring configuration.
type NATSConfig struct {
	SubjectPrefix string
	// MirrorProgress also mirrors the high-rate progress events.
	MirrorProgress bool
}

// NATSBus delivers events to local subscribers and republishes them on
// "<prefix>.<event type>".
type NATSBus struct {
	*events.Bus

	conn   Publisher
	cfg    NATSConfig
	logger zerolog.Logger
	nodeID string
}

// NewNATSBus wraps local. A nil conn leaves the bus local-only.
func NewNATSBus(local *events.Bus, conn Publisher, cfg NATSConfig, logger zerolog.Logger) *NATSBus {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if local == nil {
		local = events.NewBus()
	}
	return &NATSBus{
		Bus:    local,
		conn:   conn,
		cfg:    cfg,
		logger: logger.With().Str("component", "eventbus").Logger(),
		nodeID: generateNodeID(),
	}
}

// Subject returns the NATS subject for an event type.
func (nb *NATSBus) Subject(eventType events.EventType) string {
	return nb.cfg.SubjectPrefix + "." + string(eventType)
}

// Publish delivers locally, then mirrors to NATS. Mirror failures are logged
// and never reach the caller.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.Bus.Publish(eventType, payload)

	if nb.conn == nil {
		return
	}
	if eventType == events.EventProgress && !nb.cfg.MirrorProgress {
		return
	}

	data, err := marshalNATSMessage(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Debug().Err(err).Str("event", string(eventType)).Msg("failed to marshal event")
		return
	}
	if err := nb.conn.Publish(nb.Subject(eventType), data); err != nil {
		nb.logger.Debug().Err(err).Str("event", string(eventType)).Msg("failed to mirror event")
	}
}

// natsMessage represents a message published to NATS.
type natsMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func marshalNATSMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := natsMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	}
	return json.Marshal(msg)
}

func unmarshalNATSMessage(data []byte) (*natsMessage, error) {
	var msg natsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal nats message: %w", err)
	}
	return &msg, nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "godspeed"
	}
	return host + "-" + uuid.NewString()[:8]
}
