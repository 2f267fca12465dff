/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/Seednode/sketchduel/session"
)

const (
	sampleRate = beep.SampleRate(44100)
	noteLength = 120 * time.Millisecond
)

// chime plays a short tune when a round ends. Without a working audio
// device it stays silent.
type chime struct {
	ready bool
}

func newChime(cfg *Config) *chime {
	c := &chime{}

	if cfg.mute {
		return c
	}

	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		cfg.logger.Warn().Err(err).Msg("audio unavailable, round chimes disabled")
		return c
	}
	c.ready = true

	return c
}

func (c *chime) play(reason session.EndReason) {
	if c == nil || !c.ready {
		return
	}

	var tune []beep.Streamer
	for _, hz := range chimeNotes(reason) {
		sine, err := generators.SineTone(sampleRate, hz)
		if err != nil {
			continue
		}
		tune = append(tune, beep.Take(sampleRate.N(noteLength), sine))
	}

	if len(tune) > 0 {
		speaker.Play(beep.Seq(tune...))
	}
}

func (c *chime) close() {
	if c != nil && c.ready {
		speaker.Close()
		c.ready = false
	}
}

// chimeNotes rises for a win and falls otherwise.
func chimeNotes(reason session.EndReason) []float64 {
	switch reason {
	case session.ReasonGuessed:
		return []float64{660, 880, 1320}
	case session.ReasonPeerGuessed:
		return []float64{880, 660}
	case session.ReasonTimeout:
		return []float64{440, 330}
	case session.ReasonDisconnect:
		return []float64{330}
	}
	return nil
}
