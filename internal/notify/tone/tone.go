// Package tone plays chat cues as short sine tones on the local speaker.
// It links the audio backend, so only the host entry point imports it.
package tone

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// cueFrequencies approximates the sixteen chat sound effects with pure tones.
var cueFrequencies = [...]float64{
	523.25, 587.33, 659.25, 698.46, 783.99, 880.00, 987.77, 1046.50,
	1174.66, 1318.51, 1396.91, 1567.98, 1760.00, 1975.53, 2093.00, 2349.32,
}

// Cue plays a short sine tone per cue id.
type Cue struct {
	play     func(...beep.Streamer)
	duration time.Duration
}

// New initialises the speaker and returns a cue player using it.
func New() (*Cue, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("initialising speaker: %w", err)
	}
	return NewWith(speaker.Play), nil
}

// NewWith returns a cue player that hands streams to play.
func NewWith(play func(...beep.Streamer)) *Cue {
	return &Cue{play: play, duration: 120 * time.Millisecond}
}

// PlayCue plays the tone for id, which must be in 1..16.
func (c *Cue) PlayCue(id int) error {
	if id < 1 || id > len(cueFrequencies) {
		return fmt.Errorf("cue id %d out of range 1..%d", id, len(cueFrequencies))
	}
	sine, err := generators.SineTone(sampleRate, cueFrequencies[id-1])
	if err != nil {
		return fmt.Errorf("generating tone: %w", err)
	}
	tone := beep.Take(sampleRate.N(c.duration), sine)
	c.play(&effects.Volume{Streamer: tone, Base: 2, Volume: -2})
	return nil
}
