/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Seednode/sketchduel/canvas"
	"github.com/Seednode/sketchduel/protocol"
	"github.com/Seednode/sketchduel/session"
	"github.com/Seednode/sketchduel/terminal"
	"github.com/Seednode/sketchduel/transport"
)

const (
	frameInterval = 250 * time.Millisecond
	redialDelay   = 2 * time.Second
	maxLoggedLine = 80
)

// display is where the player sees the game and acts on it.
type display interface {
	Inputs() <-chan session.Event
	Done() <-chan struct{}
	Render(v session.View, notices []session.Notice, img *image.RGBA)
	Note(line string)
	Close() error
}

// link is the connection to the other peer.
type link interface {
	Events() <-chan transport.Event
	Send(b []byte) bool
	Connect(ctx context.Context, addr string) error
}

// Duel owns the session and canvas. Everything else talks to it over
// channels, so none of its state is shared.
type Duel struct {
	cfg     *Config
	log     zerolog.Logger
	link    link
	ui      display
	hub     *Hub
	chime   *chime
	canvas  *canvas.Canvas
	machine *session.Machine
	framer  *protocol.Framer

	conn      uint32
	dirty     bool
	redialing bool
}

func newDuel(cfg *Config, picker session.WordPicker, l link, ui display, hub *Hub, ch *chime) *Duel {
	if cfg.tick <= 0 {
		cfg.tick = time.Second
	}

	c := canvas.New(cfg.canvasWidth, cfg.canvasHeight)

	sc := session.DefaultConfig()
	sc.Host = cfg.host
	sc.RoundTicks = cfg.roundSeconds

	d := &Duel{
		cfg:     cfg,
		log:     cfg.logger.With().Str("component", "duel").Logger(),
		link:    l,
		ui:      ui,
		hub:     hub,
		chime:   ch,
		canvas:  c,
		machine: session.New(sc, c, picker, cfg.logger),
		framer:  protocol.NewFramer(),
		dirty:   true,
	}

	d.framer.OnDrop = func(line string, err error) {
		if len(line) > maxLoggedLine {
			line = line[:maxLoggedLine] + "..."
		}
		d.log.Debug().Err(err).Str("record", line).Msg("dropped record")
	}

	return d
}

// Play runs one peer until the player quits or ctx ends.
func Play(ctx context.Context, cfg *Config) error {
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	cfg.logger = logger

	logf(cfg, "START: sketchduel v%s", releaseVersion)

	list, err := loadWords(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	peer := transport.New(cfg.transport(), logger)
	defer peer.Close()

	if cfg.host {
		if err := peer.Listen(ctx); err != nil {
			return err
		}
	} else {
		if err := peer.Connect(ctx, cfg.joinAddress()); err != nil {
			return err
		}
	}

	var hub *Hub
	if cfg.webPort != 0 {
		hub = newHub()
		go hub.run(cfg)
		defer hub.close()

		if err := ServeViewer(ctx, cfg, hub); err != nil {
			return err
		}
	}

	var ui display
	if cfg.headless {
		ui = terminal.NewHeadless(os.Stdin, os.Stdout)
	} else {
		ui, err = terminal.NewScreen()
		if err != nil {
			return err
		}
	}
	defer ui.Close()

	ch := newChime(cfg)
	defer ch.close()

	d := newDuel(cfg, list, peer, ui, hub, ch)

	if cfg.host {
		ui.Note(fmt.Sprintf("System: Hosting on %s, waiting for a peer", peer.Addr()))
	} else {
		ui.Note("System: Connected to " + cfg.joinAddress())
	}

	return d.Run(ctx)
}

// Run is the event loop. It returns nil when the player quits or ctx ends.
func (d *Duel) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.tick)
	defer ticker.Stop()

	var frames <-chan time.Time
	if d.hub != nil {
		ft := time.NewTicker(frameInterval)
		defer ft.Stop()
		frames = ft.C
	}

	d.apply()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.ui.Done():
			d.log.Info().Msg("player quit")
			return nil
		case ev := <-d.link.Events():
			d.onLink(ctx, ev)
		case <-ticker.C:
			d.apply(session.Tick{})
		case in := <-d.ui.Inputs():
			d.apply(in)
		case <-frames:
			d.publishCanvas()
		}
	}
}

func (d *Duel) onLink(ctx context.Context, ev transport.Event) {
	switch ev.Kind {
	case transport.EventConnected:
		d.conn = ev.Conn
		d.redialing = false
		d.framer.Reset()

		id := uuid.NewString()
		d.log.Info().Str("session", id).Uint32("conn", ev.Conn).Str("remote", ev.Remote).Msg("peer connected")
		d.apply(session.Connected{ID: id})

	case transport.EventData:
		if ev.Conn != d.conn {
			return
		}

		cmds := d.framer.Feed(ev.Data)
		events := make([]session.Event, len(cmds))
		for i, c := range cmds {
			events[i] = session.Received{Command: c}
		}
		d.apply(events...)

	case transport.EventDisconnected:
		if ev.Conn != d.conn {
			return
		}

		d.conn = 0
		d.framer.Reset()
		d.log.Info().AnErr("cause", ev.Err).Msg("peer disconnected")
		d.apply(session.Disconnected{Err: ev.Err})

		if d.cfg.reconnect && !d.cfg.host && !d.redialing {
			d.redialing = true
			go d.redial(ctx)
		}

	case transport.EventError:
		d.log.Warn().Err(ev.Err).Msg("transport error")
	}
}

// redial keeps trying to reach the host after the connection drops.
func (d *Duel) redial(ctx context.Context) {
	addr := d.cfg.joinAddress()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialDelay):
		}

		err := d.link.Connect(ctx, addr)
		if err == nil {
			return
		}

		d.log.Debug().Err(err).Int("attempt", attempt).Msg("reconnect failed")
	}
}

// apply runs events through the session in order, sends what they produce
// and redraws once.
func (d *Duel) apply(events ...session.Event) {
	var notices []session.Notice

	for _, ev := range events {
		fx := d.machine.Handle(ev)

		for _, c := range fx.Outbound {
			if !d.link.Send(protocol.Frame(c)) {
				d.log.Debug().Str("kind", c.Kind.String()).Msg("record not sent, no peer")
			}
		}

		for _, n := range fx.Notices {
			switch n.Kind {
			case session.NoticeCanvas:
				d.dirty = true
			case session.NoticeRoundEnd:
				d.chime.play(n.Reason)
			}
		}

		notices = append(notices, fx.Notices...)
	}

	view := d.machine.View()

	d.ui.Render(view, notices, d.canvas.Image())

	if d.hub != nil {
		d.hub.Publish(view, notices)
	}
}

func (d *Duel) publishCanvas() {
	if !d.dirty || d.hub == nil {
		return
	}
	d.dirty = false

	png, err := canvas.EncodePNG(d.canvas.Export())
	if err != nil {
		d.log.Error().Err(err).Msg("encoding canvas for viewer")
		return
	}

	logf(d.cfg, "VIEWER: Canvas revision %d is %s", d.canvas.Revision(), humanReadableSize(int64(len(png))))

	d.hub.PublishCanvas(png, d.canvas.Revision())
}
