/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package routing

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Fabric is the backend that physically wires routing nodes.
type Fabric interface {
	// Connect adds an edge. Connecting an existing edge is a no-op.
	Connect(conn Connection) error
	// Disconnect removes every outgoing edge of node. Disconnecting an
	// unconnected node is a no-op.
	Disconnect(node NodeID) error
	// SetGains sets the weights of several gain stages as one update. An
	// unknown stage rejects the whole batch.
	SetGains(gains map[NodeID]float64) error
}

// Matrix maps input channels to output channels: out[i] = sum(m[i][j] * in[j]).
type Matrix [2][2]float64

// Mixer is an in-process Fabric. It folds the current graph into a 2x2 matrix
// that the audio callback applies to each stereo frame.
type Mixer struct {
	mu     sync.Mutex
	edges  map[Connection]struct{}
	gains  map[NodeID]float64
	matrix atomic.Pointer[Matrix]

	onChange func(Matrix)
}

// NewMixer creates a mixer with no edges and unity gains.
func NewMixer() *Mixer {
	m := &Mixer{
		edges: make(map[Connection]struct{}),
		gains: make(map[NodeID]float64, len(GainStages)),
	}
	for _, id := range GainStages {
		m.gains[id] = 1
	}
	m.matrix.Store(&Matrix{})
	return m
}

// OnChange registers a callback invoked with every recomputed matrix.
func (m *Mixer) OnChange(fn func(Matrix)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Connect implements Fabric.
func (m *Mixer) Connect(conn Connection) error {
	if err := ValidateConnection(conn); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[conn] = struct{}{}
	m.rebuildLocked()
	return nil
}

// Disconnect implements Fabric.
func (m *Mixer) Disconnect(node NodeID) error {
	if !knownNode(node) {
		return fmt.Errorf("%w: unknown node %s", ErrInvalidConnection, node)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.edges {
		if conn.From == node {
			delete(m.edges, conn)
		}
	}
	m.rebuildLocked()
	return nil
}

// SetGains implements Fabric. The matrix is recomputed once per batch.
func (m *Mixer) SetGains(gains map[NodeID]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for node := range gains {
		if _, ok := m.gains[node]; !ok {
			return fmt.Errorf("%w: %s is not a gain stage", ErrInvalidConnection, node)
		}
	}
	for node, value := range gains {
		m.gains[node] = value
	}
	m.rebuildLocked()
	return nil
}

// Connected reports whether conn is currently wired.
func (m *Mixer) Connected(conn Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.edges[conn]
	return ok
}

// Edges returns the number of wired connections.
func (m *Mixer) Edges() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edges)
}

// Matrix returns the effective channel matrix.
func (m *Mixer) Matrix() Matrix {
	return *m.matrix.Load()
}

// Process applies the effective matrix to interleaved stereo frames in place.
// It is safe to call from an audio callback while the graph is rewired.
func (m *Mixer) Process(frames [][2]float64) {
	mat := m.matrix.Load()
	for i := range frames {
		l, r := frames[i][0], frames[i][1]
		frames[i][0] = mat[0][0]*l + mat[0][1]*r
		frames[i][1] = mat[1][0]*l + mat[1][1]*r
	}
}

func (m *Mixer) rebuildLocked() {
	var mat Matrix
	if _, ok := m.edges[OutputLink]; ok {
		for in := 0; in < 2; in++ {
			for out := 0; out < 2; out++ {
				mat[out][in] = m.mergerInput(out, in)
			}
		}
	}
	m.matrix.Store(&mat)
	if m.onChange != nil {
		m.onChange(mat)
	}
}

// mergerInput is the gain from input channel ch to merger input port.
func (m *Mixer) mergerInput(port, ch int) float64 {
	var sum float64
	for conn := range m.edges {
		if conn.To == Merger && conn.Input == port {
			sum += m.nodeOutput(conn.From, conn.Output, ch, 0)
		}
	}
	return sum
}

// nodeOutput is the gain from input channel ch to the given node output.
func (m *Mixer) nodeOutput(node NodeID, port, ch, depth int) float64 {
	if depth > len(Nodes) {
		return 0
	}
	switch node {
	case Source:
		return 1
	case Splitter:
		if port != ch {
			return 0
		}
		if _, ok := m.edges[Connection{From: Source, To: Splitter}]; !ok {
			return 0
		}
		return 1
	case Merger, Destination:
		return 0
	}

	var in float64
	for conn := range m.edges {
		if conn.To == node {
			in += m.nodeOutput(conn.From, conn.Output, ch, depth+1)
		}
	}
	return in * m.gains[node]
}
