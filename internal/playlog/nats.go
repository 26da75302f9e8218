/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/friendsincode/godspeed/internal/models"
)

// DefaultSubject is the subject plays are published on.
const DefaultSubject = "godspeed.plays"

// Publisher is the subset of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes plays as JSON messages.
type NATSSink struct {
	conn    Publisher
	subject string
}

// NewNATSSink creates a sink publishing on subject.
func NewNATSSink(conn Publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{conn: conn, subject: subject}
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "nats" }

// natsPlay is the message body published for one play.
type natsPlay struct {
	TrackID   string `json:"track_id"`
	SessionID string `json:"sessionId"`
	Source    string `json:"source"`
	PlayedAt  string `json:"played_at"`
}

func encodePlay(record models.PlayRecord) ([]byte, error) {
	return json.Marshal(natsPlay{
		TrackID:   record.TrackID,
		SessionID: record.SessionID,
		Source:    string(record.Source),
		PlayedAt:  record.At.UTC().Format(time.RFC3339),
	})
}

// Deliver implements Sink.
func (s *NATSSink) Deliver(_ context.Context, record models.PlayRecord) error {
	data, err := encodePlay(record)
	if err != nil {
		return fmt.Errorf("marshal play: %w", err)
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publish play: %w", err)
	}
	return nil
}

// Connect dials NATS with reconnects enabled.
func Connect(url string, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}
