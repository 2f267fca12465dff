/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package terminal

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/sketchduel/session"
	"github.com/Seednode/sketchduel/stroke"
)

const (
	simWidth  = 40
	simHeight = 20
)

func simulated(t *testing.T) (*Screen, tcell.SimulationScreen) {
	t.Helper()

	sim := tcell.NewSimulationScreen("UTF-8")
	ui, err := newScreen(sim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ui.Close() })

	sim.SetSize(simWidth, simHeight)

	ui.mu.Lock()
	ui.layout()
	ui.mu.Unlock()

	return ui, sim
}

func white(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func row(sim tcell.SimulationScreen, y int) string {
	cells, w, _ := sim.GetContents()

	var b strings.Builder
	for x := range w {
		runes := cells[y*w+x].Runes
		if len(runes) == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(runes[0])
	}
	return b.String()
}

func areaOf(ui *Screen) image.Rectangle {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	return ui.area
}

func nextInput(t *testing.T, ui *Screen) session.Event {
	t.Helper()

	select {
	case e := <-ui.Inputs():
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for input")
	}
	return nil
}

func TestScreenRendersStatusCanvasAndChat(t *testing.T) {
	ui, sim := simulated(t)

	view := session.View{Connected: true, State: session.RoundActive, Role: session.Drawer, Word: "kite", SecondsLeft: 65, Pen: stroke.DefaultPen()}
	ui.Render(view, []session.Notice{
		{Kind: session.NoticeChat, From: session.SpeakerPeer, Text: "hello"},
		{Kind: session.NoticeStatus, Text: "Slow down"},
	}, white(80, 60))

	assert.Contains(t, row(sim, 0), "Drawing: kite  01:05")
	assert.Contains(t, row(sim, 1), "Slow down")

	canvasRow := row(sim, areaOf(ui).Min.Y)
	assert.Equal(t, strings.Repeat(string(halfBlock), simWidth), canvasRow)

	assert.Contains(t, row(sim, simHeight-chatRows-1), "Peer: hello")
	assert.True(t, strings.HasPrefix(row(sim, simHeight-1), "> "))
}

func TestScreenTypingSubmitsChat(t *testing.T) {
	ui, sim := simulated(t)

	for _, r := range "app" {
		sim.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	sim.InjectKey(tcell.KeyBackspace2, 0, tcell.ModNone)
	sim.InjectKey(tcell.KeyRune, 'e', tcell.ModNone)
	sim.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	assert.Equal(t, session.ChatSubmitted{Text: "ape"}, nextInput(t, ui))
}

func TestScreenPenKeys(t *testing.T) {
	ui, sim := simulated(t)

	sim.InjectKey(tcell.KeyF2, 0, tcell.ModNone)
	red := stroke.Palette[1].Apply(stroke.DefaultPen())
	assert.Equal(t, session.PenChanged{Pen: red}, nextInput(t, ui))

	sim.InjectKey(tcell.KeyF8, 0, tcell.ModNone)
	red.Width++
	assert.Equal(t, session.PenChanged{Pen: red}, nextInput(t, ui))

	sim.InjectKey(tcell.KeyF6, 0, tcell.ModNone)
	red.Eraser = true
	assert.Equal(t, session.PenChanged{Pen: red}, nextInput(t, ui))

	sim.InjectKey(tcell.KeyF9, 0, tcell.ModNone)
	assert.Equal(t, session.ClearRequested{}, nextInput(t, ui))
}

func TestScreenMouseDragBecomesPointerEvents(t *testing.T) {
	ui, sim := simulated(t)

	ui.Render(session.View{}, nil, white(80, 60))

	area := areaOf(ui)
	top, rows := area.Min.Y, area.Dy()

	sim.InjectMouse(0, top, tcell.Button1, tcell.ModNone)
	sim.InjectMouse(simWidth-1, top+rows-1, tcell.Button1, tcell.ModNone)
	sim.InjectMouse(simWidth-1, top+rows-1, tcell.ButtonNone, tcell.ModNone)

	// Cell centres: half a cell in from each edge.
	assert.Equal(t, session.PointerDown{At: stroke.Point{X: 1, Y: 60 / (2 * rows)}}, nextInput(t, ui))
	assert.Equal(t, session.PointerMove{At: stroke.Point{X: 79, Y: (2*rows - 1) * 60 / (2 * rows)}}, nextInput(t, ui))
	assert.Equal(t, session.PointerUp{At: stroke.Point{X: 79, Y: (2*rows - 1) * 60 / (2 * rows)}}, nextInput(t, ui))
}

func TestScreenIgnoresClicksOutsideCanvas(t *testing.T) {
	ui, _ := simulated(t)

	ui.mu.Lock()
	ui.img = white(80, 60)
	out := ui.handleMouse(tcell.NewEventMouse(3, 0, tcell.Button1, tcell.ModNone))
	ui.mu.Unlock()

	assert.Empty(t, out)
}

func TestScreenEscapeQuits(t *testing.T) {
	ui, sim := simulated(t)

	sim.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	select {
	case <-ui.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("escape did not quit")
	}
}
