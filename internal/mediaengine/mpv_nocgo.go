/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build !cgo

package mediaengine

import (
	"github.com/rs/zerolog"

	"github.com/friendsincode/godspeed/internal/routing"
)

// MPVAvailable indicates whether the libmpv backend is compiled in.
const MPVAvailable = false

// MPVElement is not available in this build.
type MPVElement struct {
	NullElement
}

// NewMPVElement always fails in builds without cgo.
func NewMPVElement(Config, *routing.Mixer, zerolog.Logger) (*MPVElement, error) {
	return nil, ErrUnavailable
}
