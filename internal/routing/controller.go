/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package routing

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/gain"
	"github.com/friendsincode/godspeed/internal/models"
)

// Controller switches the fabric between the stereo and mono topologies and
// pushes gain weights into the stages.
type Controller struct {
	mu      sync.Mutex
	fabric  Fabric
	logger  zerolog.Logger
	mono    bool
	wired   bool
	weights gain.Weights
}

// NewController creates a controller for fabric. Call Init before use.
func NewController(fabric Fabric, logger zerolog.Logger) *Controller {
	return &Controller{
		fabric: fabric,
		logger: logger.With().Str("component", "routing").Logger(),
	}
}

// Init wires the topology selected by mix and applies its weights.
func (c *Controller) Init(mix models.MixState) (gain.Weights, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.wireLocked(TopologyFor(mix.Mono)); err != nil {
		if !mix.Mono {
			return gain.Weights{}, err
		}
		c.logger.Warn().Err(err).Msg("mono wiring failed at init, falling back to stereo")
		mix.Mono = false
		if err := c.wireLocked(StereoTopology()); err != nil {
			return gain.Weights{}, err
		}
	}
	c.mono = mix.Mono
	return c.applyLocked(mix)
}

// SetMono rewires the graph for mix.Mono and applies the matching weights.
// On failure the previous topology is restored, falling back to stereo, and
// the error is returned.
func (c *Controller) SetMono(mix models.MixState) (gain.Weights, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.mono
	if err := c.wireLocked(TopologyFor(mix.Mono)); err != nil {
		c.logger.Error().Err(err).Bool("mono", mix.Mono).Msg("topology switch failed, restoring previous")

		if rerr := c.wireLocked(TopologyFor(prev)); rerr != nil {
			prev = false
			if serr := c.wireLocked(StereoTopology()); serr != nil {
				c.logger.Error().Err(serr).Msg("stereo fallback failed")
				return gain.Weights{}, fmt.Errorf("set mono: %w", err)
			}
		}
		c.mono = prev
		mix.Mono = prev
		if _, aerr := c.applyLocked(mix); aerr != nil {
			c.logger.Error().Err(aerr).Msg("reapply weights failed")
		}
		return c.weights, fmt.Errorf("set mono: %w", err)
	}

	c.mono = mix.Mono
	c.logger.Debug().Bool("mono", c.mono).Msg("topology switched")
	return c.applyLocked(mix)
}

// Apply updates gain weights in place without touching the topology. The
// mono flag of mix is overridden by the wired topology.
func (c *Controller) Apply(mix models.MixState) (gain.Weights, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mix.Mono = c.mono
	return c.applyLocked(mix)
}

// Mono reports whether the mono topology is wired.
func (c *Controller) Mono() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mono
}

// Wired reports whether a complete topology is connected to the output.
func (c *Controller) Wired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wired
}

// Weights returns the last applied weights.
func (c *Controller) Weights() gain.Weights {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weights
}

// Dispose disconnects every node.
func (c *Controller) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wired = false
	return c.disconnectAllLocked()
}

// wireLocked tears the graph down and connects topo followed by the output
// link. The output link is only connected after topo succeeded.
func (c *Controller) wireLocked(topo Topology) error {
	if err := topo.Validate(); err != nil {
		return err
	}
	if err := c.disconnectAllLocked(); err != nil {
		return err
	}
	c.wired = false
	for _, conn := range topo.Connections {
		if err := c.fabric.Connect(conn); err != nil {
			if derr := c.disconnectAllLocked(); derr != nil {
				c.logger.Error().Err(derr).Msg("teardown after failed connect")
			}
			return fmt.Errorf("connect %s: %w", conn, err)
		}
	}
	if err := c.fabric.Connect(OutputLink); err != nil {
		if derr := c.disconnectAllLocked(); derr != nil {
			c.logger.Error().Err(derr).Msg("teardown after failed output connect")
		}
		return fmt.Errorf("connect output: %w", err)
	}
	c.wired = true
	return nil
}

func (c *Controller) disconnectAllLocked() error {
	for _, node := range Nodes {
		if err := c.fabric.Disconnect(node); err != nil {
			return fmt.Errorf("disconnect %s: %w", node, err)
		}
	}
	return nil
}

func (c *Controller) applyLocked(mix models.MixState) (gain.Weights, error) {
	w := gain.Compute(mix)
	stages := map[NodeID]float64{
		GainLL:  w.LL,
		GainRR:  w.RR,
		GainLR:  w.LR,
		GainRL:  w.RL,
		MonoSum: w.MonoSum,
		MonoL:   w.MonoL,
		MonoR:   w.MonoR,
	}
	if err := c.fabric.SetGains(stages); err != nil {
		return c.weights, fmt.Errorf("set gains: %w", err)
	}
	c.weights = w
	return w, nil
}
