/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"image"

	"github.com/Seednode/sketchduel/protocol"
	"github.com/Seednode/sketchduel/stroke"
)

// Event is anything the machine reacts to. The set is closed.
type Event interface {
	event()
}

// Connected reports a fresh connection. ID tags the connection in logs.
type Connected struct {
	ID string
}

// Disconnected reports loss of the connection. Err is nil on a clean close.
type Disconnected struct {
	Err error
}

// Received carries one inbound record.
type Received struct {
	Command protocol.Command
}

// Tick is one second of the turn clock.
type Tick struct{}

type PointerDown struct {
	At stroke.Point
}

type PointerMove struct {
	At stroke.Point
}

type PointerUp struct {
	At stroke.Point
}

// ChatSubmitted is a line typed by the local player: a guess when guessing,
// plain chat otherwise.
type ChatSubmitted struct {
	Text string
}

type PenChanged struct {
	Pen stroke.Pen
}

type ClearRequested struct{}

// CanvasResized asks for a larger canvas. Canvases never shrink.
type CanvasResized struct {
	Width, Height int
}

func (Connected) event()      {}
func (Disconnected) event()   {}
func (Received) event()       {}
func (Tick) event()           {}
func (PointerDown) event()    {}
func (PointerMove) event()    {}
func (PointerUp) event()      {}
func (ChatSubmitted) event()  {}
func (PenChanged) event()     {}
func (ClearRequested) event() {}
func (CanvasResized) event()  {}

type NoticeKind uint8

const (
	NoticeTick NoticeKind = iota + 1
	NoticeRoundStart
	NoticeRoundEnd
	NoticeChat
	NoticeCanvas
	NoticeRole
	NoticeWord
	NoticePen
	NoticeScore
	NoticeStatus
	NoticeConnection
)

// Notice is a presentation update produced by a transition. Only the fields
// relevant to Kind are set.
type Notice struct {
	Kind NoticeKind

	SecondsLeft int
	Round       int
	Reason      EndReason
	Word        string
	From        Speaker
	Text        string
	Region      image.Rectangle
	Role        Role
	Pen         stroke.Pen
	Score       Score
	Connected   bool
}

// Effects is the result of handling one event: records to send, in order,
// and notices for the presentation layer.
type Effects struct {
	Outbound []protocol.Command
	Notices  []Notice
}

func (fx *Effects) send(cmds ...protocol.Command) {
	fx.Outbound = append(fx.Outbound, cmds...)
}

func (fx *Effects) notify(n Notice) {
	fx.Notices = append(fx.Notices, n)
}

func (fx *Effects) status(text string) {
	fx.notify(Notice{Kind: NoticeStatus, Text: text})
}

func (fx *Effects) system(text string) {
	fx.notify(Notice{Kind: NoticeChat, From: SpeakerSystem, Text: text})
}

// Kinds lists the kinds of the outbound records, handy in logs and tests.
func (fx Effects) Kinds() []protocol.Kind {
	kinds := make([]protocol.Kind, len(fx.Outbound))
	for i, c := range fx.Outbound {
		kinds[i] = c.Kind
	}
	return kinds
}

// View is a read-only summary of the session for rendering.
type View struct {
	SessionID   string
	Host        bool
	Connected   bool
	State       State
	Role        Role
	Word        string
	SecondsLeft int
	Round       int
	Score       Score
	Pen         stroke.Pen
	PeerPen     stroke.Pen
}
