/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package terminal renders a session for a person at a keyboard, either on
// a full-screen tcell canvas or as plain lines on stdin/stdout.
package terminal

import (
	"fmt"
	"strings"

	"github.com/Seednode/sketchduel/session"
	"github.com/Seednode/sketchduel/stroke"
)

// Clock formats seconds as mm:ss.
func Clock(seconds int) string {
	seconds = max(seconds, 0)

	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Describe turns a notice into a chat log line. Notices that only change
// the status bar or canvas yield false.
func Describe(n session.Notice) (string, bool) {
	switch n.Kind {
	case session.NoticeChat:
		return n.From.String() + ": " + n.Text, true
	case session.NoticeRoundStart:
		if n.Role == session.Drawer {
			return fmt.Sprintf("System: Round %d, you are drawing", n.Round), true
		}
		return fmt.Sprintf("System: Round %d, you are guessing", n.Round), true
	case session.NoticeRoundEnd:
		switch n.Reason {
		case session.ReasonTimeout:
			return "System: Time's up! The word was " + n.Word, true
		case session.ReasonDisconnect:
			if n.Word == "" {
				return "", false
			}
			return "System: Round abandoned, the word was " + n.Word, true
		}
	case session.NoticeConnection:
		if n.Connected {
			return "System: Peer connected", true
		}
		return "System: Peer disconnected", true
	}

	return "", false
}

// StatusLine summarises the view for the top bar.
func StatusLine(v session.View) string {
	var b strings.Builder

	switch {
	case !v.Connected && v.Host:
		b.WriteString("Waiting for a peer to join")
	case !v.Connected:
		b.WriteString("Not connected")
	case v.State == session.WaitingForPeer:
		b.WriteString("Waiting for the drawer")
	default:
		if v.Role == session.Drawer {
			b.WriteString("Drawing: ")
		} else {
			b.WriteString("Guessing: ")
		}
		b.WriteString(v.Word)

		if v.State == session.RoundActive {
			b.WriteString("  " + Clock(v.SecondsLeft))
		} else {
			b.WriteString("  round over")
		}
	}

	fmt.Fprintf(&b, "  |  Round %d  You %d : %d Peer", v.Round, v.Score.Self, v.Score.Peer)

	return b.String()
}

// PenLabel names the current pen, e.g. "red 3px" or "eraser 9px".
func PenLabel(p stroke.Pen) string {
	if p.Eraser {
		return fmt.Sprintf("eraser %dpx", p.Width)
	}

	for _, s := range stroke.Palette {
		if s.R == p.R && s.G == p.G && s.B == p.B {
			return fmt.Sprintf("%s %dpx", s.Name, p.Width)
		}
	}

	return fmt.Sprintf("#%02x%02x%02x %dpx", p.R, p.G, p.B, p.Width)
}

// ChatLog keeps the most recent lines.
type ChatLog struct {
	lines []string
	limit int
}

func NewChatLog(limit int) *ChatLog {
	return &ChatLog{limit: max(limit, 1)}
}

func (l *ChatLog) Add(line string) {
	l.lines = append(l.lines, line)

	if over := len(l.lines) - l.limit; over > 0 {
		l.lines = append(l.lines[:0], l.lines[over:]...)
	}
}

// Tail returns up to n of the newest lines, oldest first.
func (l *ChatLog) Tail(n int) []string {
	if n >= len(l.lines) {
		return l.lines
	}
	return l.lines[len(l.lines)-n:]
}

func (l *ChatLog) Len() int {
	return len(l.lines)
}
