/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package terminal

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/Seednode/sketchduel/session"
	"github.com/Seednode/sketchduel/stroke"
)

const (
	chatRows   = 5
	chatLimit  = 200
	inputLimit = 200
	maxWidth   = 50
	halfBlock  = '▀'
	keysHelp   = "F1-F5 colour  F6 eraser  F7/F8 size  F9 clear  Esc quit"
)

var (
	barStyle    = tcell.StyleDefault.Reverse(true)
	noteStyle   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	systemStyle = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	inputStyle  = tcell.StyleDefault.Bold(true)
)

// Screen draws the canvas with half-block cells, two pixels rows per
// terminal row, and turns mouse drags and key presses into session events.
type Screen struct {
	mu sync.Mutex

	screen tcell.Screen
	area   image.Rectangle

	chat   *ChatLog
	input  []rune
	status string
	view   session.View
	pen    stroke.Pen
	img    *image.RGBA
	down   bool

	inputs    chan session.Event
	done      chan struct{}
	quitOnce  sync.Once
	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewScreen() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}

	return newScreen(s)
}

func newScreen(s tcell.Screen) (*Screen, error) {
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}

	s.EnableMouse(tcell.MouseButtonEvents | tcell.MouseDragEvents)
	s.HideCursor()

	ui := &Screen{
		screen: s,
		chat:   NewChatLog(chatLimit),
		pen:    stroke.DefaultPen(),
		inputs: make(chan session.Event, 64),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}

	ui.mu.Lock()
	ui.layout()
	ui.draw()
	ui.mu.Unlock()

	ui.wg.Add(1)
	go ui.poll()

	return ui, nil
}

// Inputs delivers local player actions.
func (ui *Screen) Inputs() <-chan session.Event {
	return ui.inputs
}

// Done is closed when the player asks to quit.
func (ui *Screen) Done() <-chan struct{} {
	return ui.done
}

// Render redraws the whole screen. The image is only read during the call.
func (ui *Screen) Render(v session.View, notices []session.Notice, img *image.RGBA) {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	ui.view = v
	ui.pen = v.Pen
	ui.img = img

	for _, n := range notices {
		switch n.Kind {
		case session.NoticeStatus:
			ui.status = n.Text
		case session.NoticeRoundStart:
			ui.status = ""
		}

		if line, ok := Describe(n); ok {
			ui.chat.Add(line)
		}
	}

	ui.draw()
}

// Note puts a line in the chat log without a session notice behind it.
func (ui *Screen) Note(line string) {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	ui.chat.Add(line)
	ui.draw()
}

func (ui *Screen) Close() error {
	ui.closeOnce.Do(func() {
		close(ui.stop)
		ui.screen.Fini()
	})

	ui.wg.Wait()

	return nil
}

func (ui *Screen) quit() {
	ui.quitOnce.Do(func() {
		close(ui.done)
	})
}

func (ui *Screen) poll() {
	defer ui.wg.Done()

	for {
		ev := ui.screen.PollEvent()
		if ev == nil {
			return
		}

		ui.mu.Lock()
		out, quit := ui.handle(ev)
		ui.mu.Unlock()

		if quit {
			ui.quit()
			return
		}

		for _, e := range out {
			select {
			case ui.inputs <- e:
			case <-ui.stop:
				return
			}
		}
	}
}

func (ui *Screen) handle(ev tcell.Event) ([]session.Event, bool) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		ui.screen.Sync()
		ui.layout()
		ui.draw()
	case *tcell.EventKey:
		return ui.handleKey(ev)
	case *tcell.EventMouse:
		return ui.handleMouse(ev), false
	}

	return nil, false
}

func (ui *Screen) handleKey(ev *tcell.EventKey) ([]session.Event, bool) {
	var out []session.Event

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return nil, true
	case tcell.KeyEnter:
		text := strings.TrimSpace(string(ui.input))
		ui.input = ui.input[:0]
		if text != "" {
			out = append(out, session.ChatSubmitted{Text: text})
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(ui.input) > 0 {
			ui.input = ui.input[:len(ui.input)-1]
		}
	case tcell.KeyCtrlU:
		ui.input = ui.input[:0]
	case tcell.KeyCtrlL:
		ui.screen.Sync()
	case tcell.KeyF1, tcell.KeyF2, tcell.KeyF3, tcell.KeyF4, tcell.KeyF5:
		ui.pen = stroke.Palette[int(ev.Key()-tcell.KeyF1)].Apply(ui.pen)
		out = append(out, session.PenChanged{Pen: ui.pen})
	case tcell.KeyF6:
		ui.pen.Eraser = !ui.pen.Eraser
		out = append(out, session.PenChanged{Pen: ui.pen})
	case tcell.KeyF7:
		if ui.pen.Width > 1 {
			ui.pen.Width--
			out = append(out, session.PenChanged{Pen: ui.pen})
		}
	case tcell.KeyF8:
		if ui.pen.Width < maxWidth {
			ui.pen.Width++
			out = append(out, session.PenChanged{Pen: ui.pen})
		}
	case tcell.KeyF9:
		out = append(out, session.ClearRequested{})
	case tcell.KeyRune:
		if len(ui.input) < inputLimit {
			ui.input = append(ui.input, ev.Rune())
		}
	}

	ui.draw()

	return out, false
}

func (ui *Screen) handleMouse(ev *tcell.EventMouse) []session.Event {
	if ui.img == nil || ui.area.Empty() {
		return nil
	}

	x, y := ev.Position()
	pressed := ev.Buttons()&tcell.Button1 != 0

	switch {
	case pressed && !ui.down:
		if !image.Pt(x, y).In(ui.area) {
			return nil
		}
		ui.down = true
		return []session.Event{session.PointerDown{At: ui.toCanvas(x, y)}}
	case pressed:
		return []session.Event{session.PointerMove{At: ui.toCanvas(x, y)}}
	case ui.down:
		ui.down = false
		return []session.Event{session.PointerUp{At: ui.toCanvas(x, y)}}
	}

	return nil
}

// toCanvas maps a cell to the canvas pixel under its centre, clamping
// cells outside the canvas area to its edge.
func (ui *Screen) toCanvas(x, y int) stroke.Point {
	x = min(max(x, ui.area.Min.X), ui.area.Max.X-1) - ui.area.Min.X
	y = min(max(y, ui.area.Min.Y), ui.area.Max.Y-1) - ui.area.Min.Y

	b := ui.img.Bounds()
	cols, rows := ui.area.Dx(), ui.area.Dy()

	return stroke.Point{
		X: b.Min.X + (2*x+1)*b.Dx()/(2*cols),
		Y: b.Min.Y + (2*y+1)*b.Dy()/(2*rows),
	}
}

func (ui *Screen) layout() {
	w, h := ui.screen.Size()

	top := 2
	bottom := max(h-chatRows-1, top)

	ui.area = image.Rect(0, top, w, bottom)
}

func (ui *Screen) draw() {
	ui.screen.Clear()

	w, h := ui.screen.Size()

	ui.fill(0, w, barStyle)
	ui.text(0, 0, w, " "+StatusLine(ui.view), barStyle)

	pen := "Pen: " + PenLabel(ui.pen)
	ui.text(0, 1, w, ui.status, noteStyle)
	if help := pen + "  " + keysHelp; runewidth.StringWidth(ui.status)+runewidth.StringWidth(help)+2 <= w {
		ui.text(w-runewidth.StringWidth(help), 1, w, help, tcell.StyleDefault)
	} else {
		ui.text(max(w-runewidth.StringWidth(pen), 0), 1, w, pen, tcell.StyleDefault)
	}

	ui.drawCanvas()

	row := h - chatRows - 1
	for _, line := range ui.chat.Tail(chatRows) {
		style := tcell.StyleDefault
		if strings.HasPrefix(line, session.SpeakerSystem.String()+":") {
			style = systemStyle
		}
		ui.text(0, row, w, line, style)
		row++
	}

	prompt := "> " + string(ui.input)
	end := ui.text(0, h-1, w, prompt, inputStyle)
	ui.screen.ShowCursor(min(end, w-1), h-1)

	ui.screen.Show()
}

func (ui *Screen) drawCanvas() {
	if ui.img == nil || ui.area.Empty() {
		return
	}

	b := ui.img.Bounds()
	cols, rows := ui.area.Dx(), ui.area.Dy()

	for cy := range rows {
		for cx := range cols {
			px := b.Min.X + (2*cx+1)*b.Dx()/(2*cols)
			top := ui.img.RGBAAt(px, b.Min.Y+(4*cy+1)*b.Dy()/(4*rows))
			bottom := ui.img.RGBAAt(px, b.Min.Y+(4*cy+3)*b.Dy()/(4*rows))

			style := tcell.StyleDefault.Foreground(rgb(top)).Background(rgb(bottom))
			ui.screen.SetContent(ui.area.Min.X+cx, ui.area.Min.Y+cy, halfBlock, nil, style)
		}
	}
}

func (ui *Screen) fill(y, w int, style tcell.Style) {
	for x := range w {
		ui.screen.SetContent(x, y, ' ', nil, style)
	}
}

// text writes s from column x, clipped at column limit, and returns the
// column after the last cell written.
func (ui *Screen) text(x, y, limit int, s string, style tcell.Style) int {
	s = runewidth.Truncate(s, max(limit-x, 0), "…")

	for _, r := range s {
		ui.screen.SetContent(x, y, r, nil, style)
		x += max(runewidth.RuneWidth(r), 1)
	}

	return x
}

func rgb(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
