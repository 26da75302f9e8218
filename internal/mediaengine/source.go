/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mediaengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
)

// Format is a container or codec the beep backend can decode.
type Format string

const (
	FormatMP3    Format = "mp3"
	FormatWAV    Format = "wav"
	FormatFLAC   Format = "flac"
	FormatVorbis Format = "vorbis"
)

// ErrUnsupportedFormat is returned for sources no decoder accepts.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

var extFormats = map[string]Format{
	".mp3":  FormatMP3,
	".wav":  FormatWAV,
	".wave": FormatWAV,
	".flac": FormatFLAC,
	".ogg":  FormatVorbis,
	".oga":  FormatVorbis,
}

var mimeFormats = map[string]Format{
	"audio/mpeg":   FormatMP3,
	"audio/mp3":    FormatMP3,
	"audio/wav":    FormatWAV,
	"audio/x-wav":  FormatWAV,
	"audio/wave":   FormatWAV,
	"audio/flac":   FormatFLAC,
	"audio/x-flac": FormatFLAC,
	"audio/ogg":    FormatVorbis,
	"audio/vorbis": FormatVorbis,
}

// DetectFormat picks a decoder from the locator extension, falling back to
// the content type.
func DetectFormat(locator, contentType string) (Format, error) {
	p := locator
	if u, err := url.Parse(locator); err == nil && u.Path != "" {
		p = u.Path
	}
	if f, ok := extFormats[strings.ToLower(path.Ext(p))]; ok {
		return f, nil
	}
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if f, ok := mimeFormats[mt]; ok {
				return f, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, locator)
}

// memSource is a fully buffered source. Decoders that seek need a
// ReadSeekCloser.
type memSource struct {
	*bytes.Reader
}

func (memSource) Close() error { return nil }

// openSource reads src into memory. Remote sources are fetched with client;
// anything else is treated as a local path.
func openSource(ctx context.Context, client *http.Client, src string) (memSource, Format, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return fetchSource(ctx, client, src)
	}

	p := strings.TrimPrefix(src, "file://")
	format, err := DetectFormat(p, "")
	if err != nil {
		return memSource{}, "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return memSource{}, "", fmt.Errorf("read source: %w", err)
	}
	return memSource{bytes.NewReader(data)}, format, nil
}

func fetchSource(ctx context.Context, client *http.Client, src string) (memSource, Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return memSource{}, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return memSource{}, "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return memSource{}, "", fmt.Errorf("fetch source: unexpected status %d", resp.StatusCode)
	}
	format, err := DetectFormat(src, resp.Header.Get("Content-Type"))
	if err != nil {
		return memSource{}, "", err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return memSource{}, "", fmt.Errorf("read source: %w", err)
	}
	return memSource{bytes.NewReader(data)}, format, nil
}
