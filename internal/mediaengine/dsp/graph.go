/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dsp compiles the routing matrix into filter chain descriptions
// understood by external audio backends.
package dsp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/routing"
)

// Graph is a compiled filter chain.
type Graph struct {
	ID     string
	Filter string
	Matrix routing.Matrix
	Silent bool
}

// Builder constructs lavfi filter chains from routing matrices.
type Builder struct {
	logger zerolog.Logger
}

// NewBuilder creates a new DSP graph builder
func NewBuilder(logger zerolog.Logger) *Builder {
	return &Builder{
		logger: logger.With().Str("component", "dsp").Logger(),
	}
}

// Build converts a matrix into a pan filter. Output channel c0 is left and
// c1 is right; each is a weighted sum of the input channels.
func (b *Builder) Build(id string, m routing.Matrix) (*Graph, error) {
	if err := validateMatrix(m); err != nil {
		return nil, fmt.Errorf("invalid matrix: %w", err)
	}

	graph := &Graph{
		ID:     id,
		Matrix: m,
		Silent: m == routing.Matrix{},
		Filter: fmt.Sprintf("lavfi=[pan=stereo|c0=%s|c1=%s]", channel(m[0]), channel(m[1])),
	}

	b.logger.Debug().Str("graph", id).Str("filter", graph.Filter).Msg("dsp graph built")
	return graph, nil
}

func validateMatrix(m routing.Matrix) error {
	for i := range m {
		for j := range m[i] {
			v := m[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("coefficient [%d][%d] is not finite", i, j)
			}
			if v < 0 {
				return fmt.Errorf("coefficient [%d][%d] is negative", i, j)
			}
		}
	}
	return nil
}

func channel(row [2]float64) string {
	terms := make([]string, 0, 2)
	for in, coeff := range row {
		terms = append(terms, formatCoeff(coeff)+"*c"+strconv.Itoa(in))
	}
	return strings.Join(terms, "+")
}

func formatCoeff(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
