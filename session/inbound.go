/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"strings"

	"github.com/Seednode/sketchduel/protocol"
	"github.com/Seednode/sketchduel/stroke"
)

func (m *Machine) onReceived(cmd protocol.Command, fx *Effects) {
	if !m.connected {
		m.log.Debug().Stringer("kind", cmd.Kind).Msg("dropping record received while disconnected")
		return
	}

	switch cmd.Kind {
	case protocol.KindWord:
		m.receiveWord(cmd.Payload, fx)
	case protocol.KindRole:
		m.receiveRole(cmd.Payload, fx)
	case protocol.KindDraw:
		m.receiveDraw(cmd.Payload, fx)
	case protocol.KindClear:
		m.receiveClear(fx)
	case protocol.KindChat:
		m.receiveChat(cmd.Payload, fx)
	case protocol.KindWin:
		m.receiveWin(cmd.Payload, fx)
	case protocol.KindImage:
		m.receiveImage(cmd.Payload, fx)
	case protocol.KindRequestImage:
		m.receiveRequestImage(fx)
	case protocol.KindParams:
		m.receiveParams(cmd.Payload, fx)
	default:
		m.log.Warn().Stringer("kind", cmd.Kind).Msg("unhandled command kind")
	}
}

// unexpected records a command the sender had no authority to send. The
// record is ignored; both peers disagree on roles until the next ROLE or
// WORD settles it.
func (m *Machine) unexpected(kind protocol.Kind, why string) {
	m.log.Warn().
		Stringer("kind", kind).
		Str("role", m.role.String()).
		Str("state", m.state.String()).
		Msg("unexpected command: " + why)
}

// fromDrawer reports whether a drawer-only record may be applied locally.
func (m *Machine) fromDrawer(kind protocol.Kind) bool {
	if m.role == Drawer {
		m.unexpected(kind, "peer is not the drawer")
		return false
	}
	return true
}

// receiveWord starts the guesser's side of a round. When both peers think
// they are drawing, the host keeps the role and the joiner yields.
func (m *Machine) receiveWord(payload string, fx *Effects) {
	word := strings.TrimSpace(payload)
	if word == "" {
		m.unexpected(protocol.KindWord, "empty word")
		return
	}

	if m.role == Drawer {
		if m.cfg.Host {
			m.unexpected(protocol.KindWord, "role conflict, host keeps drawing")
			return
		}
		m.log.Warn().Msg("role conflict: host announced a word while we were drawing, yielding")
		m.role = Guesser
		fx.notify(Notice{Kind: NoticeRole, Role: m.role})
	}

	// The drawer repeated the round in progress; only the clock restarts.
	if m.state == RoundActive && !m.revealed && word == m.word {
		m.timer.Start()
		fx.notify(Notice{Kind: NoticeTick, SecondsLeft: m.timer.Left()})
		return
	}

	m.word = word
	m.revealed = false
	m.round++
	m.drawing = false
	m.state = RoundActive
	m.timer.Start()

	m.log.Debug().Int("round", m.round).Msg("round started by peer")

	fx.notify(Notice{Kind: NoticeRoundStart, Round: m.round, Role: m.role})
	fx.notify(Notice{Kind: NoticeWord, Word: m.wordDisplay()})
	fx.notify(Notice{Kind: NoticeTick, SecondsLeft: m.timer.Left()})
}

// receiveRole applies the role the peer assigned to us.
func (m *Machine) receiveRole(payload string, fx *Effects) {
	role, ok := parseRole(strings.TrimSpace(payload))
	if !ok {
		m.unexpected(protocol.KindRole, "unknown role "+payload)
		return
	}

	switch role {
	case Drawer:
		if m.role == Drawer && m.state == RoundActive {
			return
		}
		m.log.Info().Msg("peer handed over drawing")
		m.startRound(fx)

	case Guesser:
		if m.role == Drawer && m.cfg.Host {
			m.log.Warn().Int("round", m.round).Msg("role conflict: peer claimed drawing, announcing our round again")
			m.timer.Start()
			m.announceRound(fx)
			fx.notify(Notice{Kind: NoticeTick, SecondsLeft: m.timer.Left()})
			return
		}
		if m.role == Drawer {
			m.log.Warn().Msg("role conflict: host claimed drawing, yielding")
			m.role = Guesser
			m.timer.Stop()
			m.drawing = false
			m.state = RoundEnded
			fx.notify(Notice{Kind: NoticeRole, Role: m.role})
			fx.notify(Notice{Kind: NoticeWord, Word: m.wordDisplay()})
		}
		if m.state == WaitingForPeer {
			m.state = RoundActive
		}
	}
}

func (m *Machine) receiveDraw(payload string, fx *Effects) {
	if !m.fromDrawer(protocol.KindDraw) {
		return
	}

	s, err := stroke.Decode(payload)
	if err != nil {
		m.log.Debug().Err(err).Str("payload", payload).Msg("dropping stroke")
		return
	}

	region := m.canvas.ApplyStroke(s)
	fx.notify(Notice{Kind: NoticeCanvas, Region: region})
}

func (m *Machine) receiveClear(fx *Effects) {
	if !m.fromDrawer(protocol.KindClear) {
		return
	}

	m.canvas.Clear()
	fx.notify(Notice{Kind: NoticeCanvas, Region: m.canvas.Bounds()})
}

func (m *Machine) receiveImage(payload string, fx *Effects) {
	if !m.fromDrawer(protocol.KindImage) {
		return
	}

	if err := m.canvas.Restore(payload); err != nil {
		m.log.Debug().Err(err).Int("bytes", len(payload)).Msg("dropping snapshot")
		return
	}

	m.log.Debug().Int("bytes", len(payload)).Msg("canvas resynchronized")

	if m.state == WaitingForPeer {
		m.state = RoundActive
	}

	fx.notify(Notice{Kind: NoticeCanvas, Region: m.canvas.Bounds()})
}

func (m *Machine) receiveParams(payload string, fx *Effects) {
	if !m.fromDrawer(protocol.KindParams) {
		return
	}

	pen, err := stroke.DecodePen(payload)
	if err != nil {
		m.log.Debug().Err(err).Str("payload", payload).Msg("dropping pen")
		return
	}

	m.peerPen = pen
	fx.notify(Notice{Kind: NoticePen, Pen: pen, From: SpeakerPeer})
}

func (m *Machine) receiveChat(text string, fx *Effects) {
	if !m.chatIn.Allow() {
		m.log.Debug().Msg("dropping chat over rate limit")
		return
	}

	fx.notify(Notice{Kind: NoticeChat, From: SpeakerPeer, Text: text})
}

// receiveWin ends the local drawer's round: the peer guessed the word and
// takes over drawing, so we become the guesser.
func (m *Machine) receiveWin(payload string, fx *Effects) {
	if m.role != Drawer {
		m.unexpected(protocol.KindWin, "we are not drawing")
		return
	}

	// A WIN for an earlier round crossed our next WORD on the wire.
	if m.word == "" || !strings.EqualFold(strings.TrimSpace(payload), m.word) {
		m.unexpected(protocol.KindWin, "guess does not match the current word")
		return
	}

	m.score.Peer++
	m.endRound(ReasonPeerGuessed, fx)
	fx.notify(Notice{Kind: NoticeScore, Score: m.score})
	fx.system("Peer guessed the word: " + m.word)

	m.role = Guesser
	m.word = ""
	m.canvas.Clear()
	fx.notify(Notice{Kind: NoticeRole, Role: m.role})
	fx.notify(Notice{Kind: NoticeCanvas, Region: m.canvas.Bounds()})
}

func (m *Machine) receiveRequestImage(fx *Effects) {
	if m.role != Drawer {
		m.unexpected(protocol.KindRequestImage, "we are not drawing")
		return
	}

	m.sendSnapshot(fx)
	fx.send(protocol.Params(m.pen))
}
