/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/friendsincode/godspeed/internal/events"
	"github.com/friendsincode/godspeed/internal/mediaengine"
	"github.com/friendsincode/godspeed/internal/models"
	"github.com/friendsincode/godspeed/internal/playback"
)

var (
	playMono       bool
	playPan        float64
	playVolume     float64
	playReplayGain bool
	playBackend    string
)

var playCmd = &cobra.Command{
	Use:   "play <file-or-url>...",
	Short: "Play files or URLs headlessly",
	Long: `Queue the given sources and play them through the configured media backend.
The command exits when the queue runs out.

Examples:
  # Play an album directory's tracks in order
  godspeed play ~/music/album/*.flac

  # Mono output at half volume, panned left
  godspeed play --mono --volume 0.5 --pan -0.3 track.mp3
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&playMono, "mono", false, "Downmix to mono")
	playCmd.Flags().Float64Var(&playPan, "pan", 0, "Stereo balance in [-1, 1]")
	playCmd.Flags().Float64Var(&playVolume, "volume", 1, "Master volume in [0, 1]")
	playCmd.Flags().BoolVar(&playReplayGain, "replaygain", false, "Enable replay gain")
	playCmd.Flags().StringVar(&playBackend, "backend", "", "Media backend (null, beep, mpv); defaults to GODSPEED_MEDIA_BACKEND")
	rootCmd.AddCommand(playCmd)
}

// sourceDescriptors turns command line sources into queue descriptors.
// Local paths are made absolute; URLs pass through.
func sourceDescriptors(sources []string) []*models.TrackDescriptor {
	out := make([]*models.TrackDescriptor, 0, len(sources))
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		title := src
		if !strings.Contains(src, "://") {
			if abs, err := filepath.Abs(src); err == nil {
				src = abs
			}
			title = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		}
		out = append(out, &models.TrackDescriptor{ID: src, Title: title, AudioSrc: src})
	}
	return out
}

func runPlay(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	backend := cfg.MediaBackend
	if playBackend != "" {
		backend = strings.ToLower(playBackend)
	}

	mix := cfg.Mix
	mix.Mono = playMono || mix.Mono
	mix.ReplayGainEnabled = playReplayGain || mix.ReplayGainEnabled
	if cmd.Flags().Changed("pan") {
		mix.Pan = playPan
	}
	if cmd.Flags().Changed("volume") {
		mix.MasterVolume = playVolume
	}

	element, fabric, err := mediaengine.New(mediaengine.Config{
		Backend:          mediaengine.Backend(backend),
		PositionInterval: cfg.PositionInterval,
	}, logger)
	if err != nil {
		return fmt.Errorf("media engine: %w", err)
	}

	bus := events.NewBus()
	engine := playback.New(playback.Options{
		Element:   element,
		Fabric:    fabric,
		Publisher: bus,
		Logger:    logger,
		Mix:       mix,
	})
	if err := engine.Init(cmd.Context()); err != nil {
		_ = element.Close()
		return fmt.Errorf("init playback engine: %w", err)
	}
	defer func() {
		if err := engine.Dispose(); err != nil {
			logger.Error().Err(err).Msg("dispose engine")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	states := bus.Subscribe(events.EventPlaybackState)
	loaded := bus.Subscribe(events.EventTrackLoaded)
	failed := bus.Subscribe(events.EventLoadFailed)

	go func() {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("notification loop stopped")
		}
	}()

	descriptors := sourceDescriptors(args)
	if err := engine.PlayQueue(ctx, descriptors, 0, ""); err != nil {
		var loadErr *playback.LoadError
		if !errors.As(err, &loadErr) {
			return err
		}
		logger.Warn().Err(err).Msg("first source failed")
		if err := engine.Skip(ctx); errors.Is(err, playback.ErrEmptyQueue) {
			return errors.New("no playable sources")
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("interrupted")
			return nil
		case p := <-loaded:
			logger.Info().Str("title", fmt.Sprint(p["title"])).Msg("now playing")
		case p := <-failed:
			logger.Warn().Str("error", fmt.Sprint(p["error"])).Msg("skipping unplayable source")
			if err := engine.Skip(ctx); errors.Is(err, playback.ErrEmptyQueue) {
				return nil
			}
		case p := <-states:
			if p["to"] == string(models.PlaybackIdle) && len(engine.Snapshot().Queue) == 0 {
				logger.Info().Msg("queue finished")
				return nil
			}
		}
	}
}
