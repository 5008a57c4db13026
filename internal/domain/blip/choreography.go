package blip

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/kolarena/internal/domain/model"
)

// Phase is one timed layer of a choreography.
type Phase struct {
	Name     string
	Offset   time.Duration
	Duration time.Duration
}

// Choreography is a named, stateless presentation of a transient event.
type Choreography struct {
	Name      string
	Duration  time.Duration
	GainGlyph string
	LossGlyph string
	GainColor string
	LossColor string
	Phases    []Phase
}

// Frame is what a renderer draws at a point in time.
type Frame struct {
	Glyph    string
	Color    string
	Phases   []string // names of phases running at this instant
	Progress float64  // 0..1 over the whole choreography
	Done     bool
}

var presets = map[string]Choreography{
	"graceful": {
		Name:      "graceful",
		Duration:  1500 * time.Millisecond,
		GainGlyph: "+1",
		LossGlyph: "-1",
		GainColor: "#22c55e",
		LossColor: "#ef4444",
		Phases: []Phase{
			{Name: "glow", Duration: 1500 * time.Millisecond},
			{Name: "border-pulse", Duration: 1200 * time.Millisecond},
			{Name: "float", Duration: 1500 * time.Millisecond},
			{Name: "shimmer", Duration: 1000 * time.Millisecond},
		},
	},
	"ring": {
		Name:      "ring",
		Duration:  1000 * time.Millisecond,
		GainGlyph: "+1",
		LossGlyph: "-1",
		GainColor: "#22c55e",
		LossColor: "#ef4444",
		Phases: []Phase{
			{Name: "ring", Duration: 1000 * time.Millisecond},
			{Name: "flash", Duration: 600 * time.Millisecond},
			{Name: "float", Duration: 1000 * time.Millisecond},
		},
	},
}

// Names lists the available presets.
func Names() []string {
	out := make([]string, 0, len(presets))
	for name := range presets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the preset called name.
func Lookup(name string) (Choreography, error) {
	c, ok := presets[name]
	if !ok {
		return Choreography{}, fmt.Errorf("%w: choreography %q (have %v)", model.ErrInvalidArgument, name, Names())
	}
	return c, nil
}

// Select returns the preset called name after checking that it finishes
// before the tracker removes the event.
func Select(name string, display time.Duration) (Choreography, error) {
	c, err := Lookup(name)
	if err != nil {
		return Choreography{}, err
	}
	if c.Duration > display {
		return Choreography{}, fmt.Errorf("%w: choreography %q runs %s, longer than display %s",
			model.ErrInvalidArgument, name, c.Duration, display)
	}
	return c, nil
}

// Frame computes the presentation of kind at elapsed time since creation.
func (c Choreography) Frame(kind model.EventKind, elapsed time.Duration) Frame {
	f := Frame{Glyph: c.LossGlyph, Color: c.LossColor}
	if kind == model.KindGain {
		f.Glyph, f.Color = c.GainGlyph, c.GainColor
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= c.Duration {
		f.Progress, f.Done = 1, true
		return f
	}
	f.Progress = float64(elapsed) / float64(c.Duration)
	for _, p := range c.Phases {
		if elapsed >= p.Offset && elapsed < p.Offset+p.Duration {
			f.Phases = append(f.Phases, p.Name)
		}
	}
	return f
}
