/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package session owns the turn and role state of one peer. A Machine is
// driven by Events and answers each with the records to send and the
// notices to show; it never touches the network itself.
package session

import (
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Seednode/sketchduel/canvas"
	"github.com/Seednode/sketchduel/protocol"
	"github.com/Seednode/sketchduel/stroke"
)

// WordPicker supplies secret words for rounds this peer draws.
type WordPicker interface {
	Pick() string
}

type Config struct {
	// Host peers accept the connection and draw first.
	Host bool

	RoundTicks int

	// ChatRate and ChatBurst bound both local submissions and inbound CHAT
	// records.
	ChatRate  rate.Limit
	ChatBurst int
}

func DefaultConfig() Config {
	return Config{
		RoundTicks: DefaultRoundTicks,
		ChatRate:   2,
		ChatBurst:  5,
	}
}

// Machine is not safe for concurrent use. Exactly one goroutine may call
// Handle and View.
type Machine struct {
	cfg    Config
	base   zerolog.Logger
	log    zerolog.Logger
	canvas *canvas.Canvas
	words  WordPicker
	timer  *TurnTimer

	connected bool
	sessionID string

	state    State
	role     Role
	word     string
	revealed bool
	round    int
	score    Score

	pen     stroke.Pen
	peerPen stroke.Pen

	drawing bool
	last    stroke.Point

	chatOut *rate.Limiter
	chatIn  *rate.Limiter
}

func New(cfg Config, c *canvas.Canvas, words WordPicker, log zerolog.Logger) *Machine {
	def := DefaultConfig()
	if cfg.RoundTicks < 1 {
		cfg.RoundTicks = def.RoundTicks
	}
	if cfg.ChatRate <= 0 {
		cfg.ChatRate = def.ChatRate
	}
	if cfg.ChatBurst < 1 {
		cfg.ChatBurst = def.ChatBurst
	}

	role := Guesser
	if cfg.Host {
		role = Drawer
	}

	log = log.With().Str("component", "session").Logger()

	return &Machine{
		cfg:     cfg,
		base:    log,
		log:     log,
		canvas:  c,
		words:   words,
		timer:   NewTurnTimer(cfg.RoundTicks),
		state:   WaitingForPeer,
		role:    role,
		pen:     stroke.DefaultPen(),
		peerPen: stroke.DefaultPen(),
		chatOut: rate.NewLimiter(cfg.ChatRate, cfg.ChatBurst),
		chatIn:  rate.NewLimiter(cfg.ChatRate, cfg.ChatBurst),
	}
}

// Handle applies one event and returns its effects.
func (m *Machine) Handle(ev Event) Effects {
	var fx Effects

	switch ev := ev.(type) {
	case Connected:
		m.onConnected(ev, &fx)
	case Disconnected:
		m.onDisconnected(ev, &fx)
	case Received:
		m.onReceived(ev.Command, &fx)
	case Tick:
		m.onTick(&fx)
	case PointerDown:
		m.onPointerDown(ev.At)
	case PointerMove:
		m.onPointerMove(ev.At, &fx)
	case PointerUp:
		m.onPointerUp(ev.At, &fx)
	case ChatSubmitted:
		m.onChatSubmitted(ev.Text, &fx)
	case PenChanged:
		m.onPenChanged(ev.Pen, &fx)
	case ClearRequested:
		m.onClearRequested(&fx)
	case CanvasResized:
		m.onCanvasResized(ev.Width, ev.Height, &fx)
	}

	return fx
}

func (m *Machine) View() View {
	return View{
		SessionID:   m.sessionID,
		Host:        m.cfg.Host,
		Connected:   m.connected,
		State:       m.state,
		Role:        m.role,
		Word:        m.wordDisplay(),
		SecondsLeft: m.timer.Left(),
		Round:       m.round,
		Score:       m.score,
		Pen:         m.pen,
		PeerPen:     m.peerPen,
	}
}

func (m *Machine) wordDisplay() string {
	switch {
	case m.word == "":
		return ""
	case m.role == Drawer, m.revealed:
		return m.word
	}
	return Redacted
}

func (m *Machine) onConnected(ev Connected, fx *Effects) {
	m.connected = true
	m.sessionID = ev.ID
	m.drawing = false
	m.timer.Stop()
	m.log = m.base.With().Str("session", ev.ID).Logger()

	fx.notify(Notice{Kind: NoticeConnection, Connected: true})

	if m.cfg.Host {
		m.log.Info().Msg("peer connected, starting round as drawer")
		m.startRound(fx)
		return
	}

	m.log.Info().Msg("connected to host, requesting canvas")
	m.role = Guesser
	m.word = ""
	m.revealed = false
	m.state = WaitingForPeer
	fx.send(protocol.RequestImage())
	fx.status("Connected, waiting for the drawer")
}

func (m *Machine) onDisconnected(ev Disconnected, fx *Effects) {
	wasPlaying := m.state != WaitingForPeer

	m.connected = false
	m.drawing = false
	m.timer.Stop()
	m.state = WaitingForPeer

	entry := m.log.Info()
	if ev.Err != nil {
		entry = m.log.Warn().Err(ev.Err)
	}
	entry.Msg("peer disconnected")

	fx.notify(Notice{Kind: NoticeConnection, Connected: false})

	if wasPlaying && m.word != "" {
		m.revealed = true
		fx.notify(Notice{Kind: NoticeRoundEnd, Reason: ReasonDisconnect, Word: m.word, Round: m.round})
		fx.notify(Notice{Kind: NoticeWord, Word: m.wordDisplay()})
	}

	fx.status("Peer disconnected, waiting for a new connection")
}

func (m *Machine) onTick(fx *Effects) {
	if !m.timer.Running() {
		return
	}

	expired := m.timer.Tick()
	fx.notify(Notice{Kind: NoticeTick, SecondsLeft: m.timer.Left()})

	if !expired {
		return
	}

	m.log.Info().Str("role", m.role.String()).Msg("round timed out")
	m.endRound(ReasonTimeout, fx)

	// Only the drawer moves on; a guesser waits for the drawer's next WORD.
	if m.role == Drawer {
		m.startRound(fx)
	}
}

// startRound makes this peer the drawer of a fresh round and announces it.
func (m *Machine) startRound(fx *Effects) {
	prev := m.role

	m.role = Drawer
	m.word = m.words.Pick()
	m.revealed = false
	m.round++
	m.drawing = false
	m.state = RoundActive
	m.timer.Start()
	m.canvas.Clear()

	m.log.Debug().Int("round", m.round).Str("word", m.word).Msg("round started")

	m.announceRound(fx)

	if prev != Drawer {
		fx.notify(Notice{Kind: NoticeRole, Role: m.role})
	}
	fx.notify(Notice{Kind: NoticeRoundStart, Round: m.round, Role: m.role})
	fx.notify(Notice{Kind: NoticeWord, Word: m.wordDisplay()})
	fx.notify(Notice{Kind: NoticeCanvas, Region: m.canvas.Bounds()})
	fx.notify(Notice{Kind: NoticeTick, SecondsLeft: m.timer.Left()})
}

// announceRound sends everything a guesser needs to follow the current
// round: its role, the word and the whole canvas.
func (m *Machine) announceRound(fx *Effects) {
	fx.send(protocol.Role(Guesser.Wire()), protocol.Word(m.word), protocol.Clear())
	m.sendSnapshot(fx)
	fx.send(protocol.Params(m.pen))
}

func (m *Machine) endRound(reason EndReason, fx *Effects) {
	m.timer.Stop()
	m.drawing = false
	m.revealed = true
	m.state = RoundEnded

	fx.notify(Notice{Kind: NoticeRoundEnd, Reason: reason, Word: m.word, Round: m.round})
	fx.notify(Notice{Kind: NoticeWord, Word: m.wordDisplay()})
}

func (m *Machine) sendSnapshot(fx *Effects) {
	payload, err := m.canvas.Snapshot()
	if err != nil {
		m.log.Error().Err(err).Msg("encoding canvas snapshot")
		return
	}
	fx.send(protocol.Image(payload))
}

// canDraw reports whether locally produced drawing may reach the canvas
// and the wire.
func (m *Machine) canDraw() bool {
	return m.connected && m.role == Drawer && m.state == RoundActive
}
