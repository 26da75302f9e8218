/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build !((linux && cgo) || windows || darwin)

package mediaengine

import (
	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/routing"
)

// BeepAvailable indicates whether the beep backend is compiled in.
// Audio output requires cgo for the native sound libraries.
const BeepAvailable = false

// BeepElement is not available in this build.
type BeepElement struct {
	NullElement
}

// NewBeepElement always fails in builds without cgo.
func NewBeepElement(Config, *routing.Mixer, zerolog.Logger) (*BeepElement, error) {
	return nil, ErrUnavailable
}
