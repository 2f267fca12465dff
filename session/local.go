/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"fmt"
	"strings"

	"github.com/Seednode/sketchduel/canvas"
	"github.com/Seednode/sketchduel/protocol"
	"github.com/Seednode/sketchduel/stroke"
)

func (m *Machine) onPointerDown(at stroke.Point) {
	if !m.canDraw() {
		return
	}

	m.drawing = true
	m.last = at
}

func (m *Machine) onPointerMove(at stroke.Point, fx *Effects) {
	if !m.drawing || !m.canDraw() {
		return
	}

	m.drawTo(at, fx)
}

func (m *Machine) onPointerUp(at stroke.Point, fx *Effects) {
	if !m.drawing {
		return
	}

	if m.canDraw() {
		m.drawTo(at, fx)
	}
	m.drawing = false
}

func (m *Machine) drawTo(at stroke.Point, fx *Effects) {
	s := stroke.Stroke{From: m.last, To: at, Pen: m.pen}
	region := m.canvas.ApplyStroke(s)
	m.last = at

	fx.send(protocol.Draw(s))
	fx.notify(Notice{Kind: NoticeCanvas, Region: region})
}

func (m *Machine) onChatSubmitted(text string, fx *Effects) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if !m.connected {
		fx.status("Not connected to a peer")
		return
	}

	if !m.chatOut.Allow() {
		fx.status("Slow down")
		return
	}

	switch m.role {
	case Guesser:
		if m.state == RoundActive && m.word != "" && strings.EqualFold(text, m.word) {
			m.win(text, fx)
			return
		}

		fx.send(protocol.Chat(text))
		fx.notify(Notice{Kind: NoticeChat, From: SpeakerSelf, Text: text})
		if m.state == RoundActive {
			fx.system("Wrong, try again")
		}

	case Drawer:
		if m.word != "" && !m.revealed && strings.Contains(strings.ToLower(text), strings.ToLower(m.word)) {
			fx.system("You are drawing, not guessing")
			return
		}

		fx.send(protocol.Chat(text))
		fx.notify(Notice{Kind: NoticeChat, From: SpeakerSelf, Text: text})
	}
}

// win handles a correct local guess: announce it, then take over drawing
// with a fresh round.
func (m *Machine) win(guess string, fx *Effects) {
	m.log.Info().Int("round", m.round).Msg("guessed the word")

	m.score.Self++
	fx.notify(Notice{Kind: NoticeChat, From: SpeakerSelf, Text: guess})
	m.endRound(ReasonGuessed, fx)
	fx.notify(Notice{Kind: NoticeScore, Score: m.score})
	fx.system("Correct! The word was " + m.word)
	fx.send(protocol.Win(guess))

	m.startRound(fx)
}

func (m *Machine) onPenChanged(pen stroke.Pen, fx *Effects) {
	if pen.Width < 1 {
		pen.Width = 1
	}

	m.pen = pen
	fx.notify(Notice{Kind: NoticePen, Pen: pen, From: SpeakerSelf})

	if m.canDraw() {
		fx.send(protocol.Params(pen))
	}
}

// onClearRequested wipes the drawer's canvas and resends it whole.
func (m *Machine) onClearRequested(fx *Effects) {
	if !m.canDraw() {
		return
	}

	m.canvas.Clear()
	fx.send(protocol.Clear())
	m.sendSnapshot(fx)
	fx.notify(Notice{Kind: NoticeCanvas, Region: m.canvas.Bounds()})
}

// onCanvasResized grows the drawer's canvas. The guesser's canvas follows
// the next snapshot instead.
func (m *Machine) onCanvasResized(width, height int, fx *Effects) {
	if m.role != Drawer {
		fx.status("Only the drawer can resize the canvas")
		return
	}

	if width > canvas.MaxSide || height > canvas.MaxSide {
		fx.status(fmt.Sprintf("Canvas sides are limited to %d pixels", canvas.MaxSide))
	}

	if !m.canvas.Resize(width, height) {
		return
	}

	b := m.canvas.Bounds()
	m.log.Debug().Int("width", b.Dx()).Int("height", b.Dy()).Msg("canvas grown")
	fx.notify(Notice{Kind: NoticeCanvas, Region: b})

	if m.connected && m.state == RoundActive {
		m.sendSnapshot(fx)
	}
}
