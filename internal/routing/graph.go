/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package routing owns the splitter, gain stage and merger graph that sits
// between the decoder and the output device.
package routing

import (
	"errors"
	"fmt"
)

// NodeID names one of the fixed routing nodes.
type NodeID string

const (
	Source      NodeID = "source"
	Splitter    NodeID = "splitter"
	GainLL      NodeID = "gain_ll"
	GainRR      NodeID = "gain_rr"
	GainLR      NodeID = "gain_lr"
	GainRL      NodeID = "gain_rl"
	MonoSum     NodeID = "mono_sum"
	MonoL       NodeID = "mono_l"
	MonoR       NodeID = "mono_r"
	Merger      NodeID = "merger"
	Destination NodeID = "destination"
)

// Nodes lists every node in wiring order.
var Nodes = []NodeID{Source, Splitter, GainLL, GainRR, GainLR, GainRL, MonoSum, MonoL, MonoR, Merger, Destination}

// GainStages lists the nodes that carry a weight.
var GainStages = []NodeID{GainLL, GainRR, GainLR, GainRL, MonoSum, MonoL, MonoR}

var (
	// ErrInvalidTopology is returned when a topology fails validation.
	ErrInvalidTopology = errors.New("invalid routing topology")

	// ErrInvalidConnection is returned by fabrics for edges they cannot wire.
	ErrInvalidConnection = errors.New("invalid routing connection")
)

// Connection is a directed edge between two node ports.
type Connection struct {
	From   NodeID `json:"from"`
	To     NodeID `json:"to"`
	Output int    `json:"output"`
	Input  int    `json:"input"`
}

func (c Connection) String() string {
	return fmt.Sprintf("%s.%d->%s.%d", c.From, c.Output, c.To, c.Input)
}

// OutputLink joins the merger to the output device. It is always wired last.
var OutputLink = Connection{From: Merger, To: Destination}

// Topology is a named set of connections excluding the output link.
type Topology struct {
	Name        string
	Connections []Connection
}

// StereoTopology feeds the four cross-feed stages from the splitter.
func StereoTopology() Topology {
	return Topology{
		Name: "stereo",
		Connections: []Connection{
			{From: Source, To: Splitter},
			{From: Splitter, To: GainLL, Output: 0},
			{From: Splitter, To: GainLR, Output: 0},
			{From: Splitter, To: GainRR, Output: 1},
			{From: Splitter, To: GainRL, Output: 1},
			{From: GainLL, To: Merger, Input: 0},
			{From: GainRL, To: Merger, Input: 0},
			{From: GainRR, To: Merger, Input: 1},
			{From: GainLR, To: Merger, Input: 1},
		},
	}
}

// MonoTopology sums both channels into the mono bus and fans it back out.
func MonoTopology() Topology {
	return Topology{
		Name: "mono",
		Connections: []Connection{
			{From: Source, To: Splitter},
			{From: Splitter, To: MonoSum, Output: 0},
			{From: Splitter, To: MonoSum, Output: 1},
			{From: MonoSum, To: MonoL},
			{From: MonoSum, To: MonoR},
			{From: MonoL, To: Merger, Input: 0},
			{From: MonoR, To: Merger, Input: 1},
		},
	}
}

// TopologyFor returns the mono or stereo topology.
func TopologyFor(mono bool) Topology {
	if mono {
		return MonoTopology()
	}
	return StereoTopology()
}

// Validate checks that every edge references known nodes and valid ports.
func (t Topology) Validate() error {
	if len(t.Connections) == 0 {
		return fmt.Errorf("%w: %s has no connections", ErrInvalidTopology, t.Name)
	}

	seen := make(map[Connection]bool, len(t.Connections))
	for _, conn := range t.Connections {
		if err := ValidateConnection(conn); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidTopology, t.Name, err)
		}
		if conn == OutputLink {
			return fmt.Errorf("%w: %s must not include the output link", ErrInvalidTopology, t.Name)
		}
		if seen[conn] {
			return fmt.Errorf("%w: duplicate connection %s", ErrInvalidTopology, conn)
		}
		seen[conn] = true
	}
	return nil
}

// ValidateConnection checks a single edge against the fixed node set.
func ValidateConnection(conn Connection) error {
	if !knownNode(conn.From) {
		return fmt.Errorf("%w: unknown node %s", ErrInvalidConnection, conn.From)
	}
	if !knownNode(conn.To) {
		return fmt.Errorf("%w: unknown node %s", ErrInvalidConnection, conn.To)
	}
	if conn.From == conn.To {
		return fmt.Errorf("%w: self loop on %s", ErrInvalidConnection, conn.From)
	}
	if conn.From == Destination || conn.To == Source {
		return fmt.Errorf("%w: %s", ErrInvalidConnection, conn)
	}
	if conn.Output < 0 || conn.Output >= outputs(conn.From) {
		return fmt.Errorf("%w: %s has no output %d", ErrInvalidConnection, conn.From, conn.Output)
	}
	if conn.Input < 0 || conn.Input >= inputs(conn.To) {
		return fmt.Errorf("%w: %s has no input %d", ErrInvalidConnection, conn.To, conn.Input)
	}
	return nil
}

func knownNode(id NodeID) bool {
	for _, n := range Nodes {
		if n == id {
			return true
		}
	}
	return false
}

func outputs(id NodeID) int {
	if id == Splitter {
		return 2
	}
	return 1
}

func inputs(id NodeID) int {
	if id == Merger {
		return 2
	}
	return 1
}
