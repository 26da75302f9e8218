/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupWithWriter(t *testing.T) {
	tests := []struct {
		env   string
		level zerolog.Level
		json  bool
	}{
		{"development", zerolog.DebugLevel, false},
		{"production", zerolog.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var out, capture bytes.Buffer
			logger := SetupWithWriter(tt.env, &out, &capture)
			if logger.GetLevel() != tt.level {
				t.Errorf("level = %v, want %v", logger.GetLevel(), tt.level)
			}
			logger.Info().Str("component", "test").Msg("hello")

			if !strings.Contains(out.String(), "hello") {
				t.Fatalf("missing message in %q", out.String())
			}
			if got := json.Valid(bytes.TrimSpace(out.Bytes())); got != tt.json {
				t.Errorf("json output = %v, want %v", got, tt.json)
			}
			if !json.Valid(bytes.TrimSpace(capture.Bytes())) {
				t.Errorf("capture should always be JSON: %q", capture.String())
			}
		})
	}
}
