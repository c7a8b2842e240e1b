// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/creachadair/taskgroup"

	"memeforge/internal/fonts"
)

// frameDelay is the per-frame delay in hundredths of a second for
// synthesized animations (GIF sources keep their own timing).
const frameDelay = 10

// renderGIF renders the animated path: the frame set comes from the
// source GIF when the background is one, otherwise it is synthesized so
// box time windows have frames to play across. Frames render in parallel;
// the deterministic per-frame pipeline keeps output byte-identical for
// identical requests.
func (e *Engine) renderGIF(req Request, lines []string, font *fonts.Font, width, height int) ([]byte, error) {
	frameCount := req.MaxFrames
	if frameCount <= 0 || frameCount > e.cfg.MaxFrames {
		frameCount = e.cfg.MaxFrames
	}

	delays := make([]int, 0, frameCount)
	if strings.EqualFold(filepath.Ext(req.Resolution.Background), ".gif") {
		if f, err := openGIFTiming(req.Resolution.Background); err == nil {
			if len(f) < frameCount {
				frameCount = len(f)
			}
			delays = append(delays, f[:frameCount]...)
		}
	}
	for len(delays) < frameCount {
		delays = append(delays, frameDelay)
	}

	out := &gif.GIF{
		Image:    make([]*image.Paletted, frameCount),
		Delay:    delays,
		Config:   image.Config{Width: width, Height: height},
		Disposal: nil,
	}

	g, run := taskgroup.New(nil).Limit(runtime.NumCPU())
	for i := 0; i < frameCount; i++ {
		i := i
		run(taskgroup.NoError(func() {
			frame := e.renderFrame(req, lines, font, width, height, i, frameCount)
			bounds := image.Rect(0, 0, width, height)
			dst := image.NewPaletted(bounds, palette.Plan9)
			draw.FloydSteinberg.Draw(dst, bounds, frame, bounds.Min)
			out.Image[i] = dst
		}))
	}
	g.Wait()

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return nil, fmt.Errorf("render: encode gif: %w", err)
	}
	return buf.Bytes(), nil
}

// openGIFTiming reads only the per-frame delays of a GIF source.
func openGIFTiming(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, err
	}
	return g.Delay, nil
}
