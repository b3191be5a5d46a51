// Package export turns a card into a single PNG holding both faces side by
// side.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/vukan322/gitcard/internal/card"
	"github.com/vukan322/gitcard/internal/core"
	"github.com/vukan322/gitcard/internal/logging"
)

const (
	DefaultScale     = 2
	DefaultFlipDelay = 500 * time.Millisecond
)

// Surface is the card being exported. *card.Session satisfies it.
// SetFaceAt must ignore a generation that is no longer current.
type Surface interface {
	Snapshot() card.State
	SetFaceAt(gen uint64, face card.Face) bool
}

// Capturer rasterizes the face currently shown on the surface.
type Capturer interface {
	Capture(ctx context.Context, s Surface, scale int) (image.Image, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func timerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Artifact struct {
	Name   string
	Width  int
	Height int
	PNG    []byte
}

type Options struct {
	Scale     int
	FlipDelay time.Duration
	Sleep     Sleeper
	Logger    logging.Logger
}

type Exporter struct {
	capturer  Capturer
	scale     int
	flipDelay time.Duration
	sleep     Sleeper
	logger    logging.Logger
}

func NewExporter(capturer Capturer, opts Options) *Exporter {
	e := &Exporter{
		capturer:  capturer,
		scale:     opts.Scale,
		flipDelay: opts.FlipDelay,
		sleep:     opts.Sleep,
		logger:    opts.Logger,
	}
	if e.scale < 1 {
		e.scale = DefaultScale
	}
	if e.flipDelay <= 0 {
		e.flipDelay = DefaultFlipDelay
	}
	if e.sleep == nil {
		e.sleep = timerSleep
	}
	if e.logger == nil {
		e.logger = logging.Nop{}
	}
	return e
}

// FileName is the download name for a card of login.
func FileName(login string) string {
	return login + "_github_card.png"
}

// Export captures the front, flips to the back, waits for the flip to
// settle, captures the back and composites both. The face shown before the
// call is restored on every path. Without a loaded profile it does nothing
// and returns core.ErrNoProfile.
func (e *Exporter) Export(ctx context.Context, s Surface) (art Artifact, err error) {
	start := s.Snapshot()
	if start.Profile == nil {
		return Artifact{}, core.ErrNoProfile
	}
	login := start.Profile.Login

	defer s.SetFaceAt(start.Generation, start.Face)

	if start.Face != card.Front {
		s.SetFaceAt(start.Generation, card.Front)
		if err := e.sleep(ctx, e.flipDelay); err != nil {
			return Artifact{}, fmt.Errorf("export: %w: %v", core.ErrExport, err)
		}
	}

	front, err := e.capture(ctx, s, start.Generation, card.Front)
	if err != nil {
		return Artifact{}, err
	}

	s.SetFaceAt(start.Generation, card.Back)
	// capturing mid-flip yields a half-rotated card
	if err := e.sleep(ctx, e.flipDelay); err != nil {
		return Artifact{}, fmt.Errorf("export: %w: %v", core.ErrExport, err)
	}

	back, err := e.capture(ctx, s, start.Generation, card.Back)
	if err != nil {
		return Artifact{}, err
	}

	canvas := Compose(front, back)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return Artifact{}, fmt.Errorf("export: %w: encode png: %v", core.ErrExport, err)
	}

	art = Artifact{
		Name:   FileName(login),
		Width:  canvas.Bounds().Dx(),
		Height: canvas.Bounds().Dy(),
		PNG:    buf.Bytes(),
	}
	e.logger.Info(ctx, "card exported", "login", login, "width", art.Width, "height", art.Height, "bytes", len(art.PNG))
	return art, nil
}

// ExportTo exports and hands the artifact to sink.
func (e *Exporter) ExportTo(ctx context.Context, s Surface, sink Sink) (Artifact, error) {
	art, err := e.Export(ctx, s)
	if err != nil {
		return Artifact{}, err
	}
	if err := sink.Save(ctx, art); err != nil {
		return Artifact{}, fmt.Errorf("export: %w: save %s: %v", core.ErrExport, art.Name, err)
	}
	return art, nil
}

func (e *Exporter) capture(ctx context.Context, s Surface, gen uint64, want card.Face) (image.Image, error) {
	st := s.Snapshot()
	if st.Generation != gen || st.Profile == nil {
		return nil, fmt.Errorf("export: %w: card changed during export", core.ErrExport)
	}
	if st.Face != want {
		return nil, fmt.Errorf("export: %w: expected %s face, card shows %s", core.ErrExport, want, st.Face)
	}

	img, err := e.capturer.Capture(ctx, s, e.scale)
	if err != nil {
		return nil, fmt.Errorf("export: %w: capture %s: %v", core.ErrExport, want, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("export: %w: capture %s: empty image", core.ErrExport, want)
	}
	return img, nil
}
