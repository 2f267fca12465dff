/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package terminal

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/Seednode/sketchduel/session"
	"github.com/Seednode/sketchduel/stroke"
)

// Headless reads one action per line and prints notices as lines. Plain
// lines are chat or guesses; lines starting with a slash are commands:
//
//	/line x1 y1 x2 y2   draw a segment
//	/colour <name>      pick a palette colour
//	/eraser             toggle the eraser
//	/width <n>          set the pen width
//	/clear              clear the canvas
//	/size w h           grow the canvas
//	/status             print the status line
//	/quit               leave
type Headless struct {
	mu   sync.Mutex
	out  io.Writer
	view session.View
	pen  stroke.Pen

	inputs   chan session.Event
	done     chan struct{}
	quitOnce sync.Once
	stop     chan struct{}
	stopOnce sync.Once
}

func NewHeadless(in io.Reader, out io.Writer) *Headless {
	h := &Headless{
		out:    out,
		pen:    stroke.DefaultPen(),
		inputs: make(chan session.Event, 64),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}

	go h.read(in)

	return h
}

func (h *Headless) Inputs() <-chan session.Event {
	return h.inputs
}

// Done is closed on /quit or end of input.
func (h *Headless) Done() <-chan struct{} {
	return h.done
}

func (h *Headless) Render(v session.View, notices []session.Notice, _ *image.RGBA) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.view = v
	h.pen = v.Pen

	for _, n := range notices {
		switch n.Kind {
		case session.NoticeStatus:
			h.printf("* %s\n", n.Text)
		case session.NoticeTick:
			if n.SecondsLeft > 0 && (n.SecondsLeft <= 10 || n.SecondsLeft%30 == 0) {
				h.printf("* %s left\n", Clock(n.SecondsLeft))
			}
		case session.NoticeWord:
			if v.Role == session.Drawer {
				h.printf("* Your word is %s\n", n.Word)
			}
		}

		if line, ok := Describe(n); ok {
			h.printf("%s\n", line)
		}
	}
}

func (h *Headless) Note(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.printf("%s\n", line)
}

// Close stops delivering input. The reader goroutine exits once its
// source ends.
func (h *Headless) Close() error {
	h.stopOnce.Do(func() {
		close(h.stop)
	})

	return nil
}

func (h *Headless) printf(format string, args ...any) {
	fmt.Fprintf(h.out, format, args...)
}

func (h *Headless) quit() {
	h.quitOnce.Do(func() {
		close(h.done)
	})
}

func (h *Headless) read(in io.Reader) {
	defer h.quit()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		out, quit := h.parse(line)
		if quit {
			return
		}

		for _, e := range out {
			select {
			case h.inputs <- e:
			case <-h.stop:
				return
			}
		}
	}
}

func (h *Headless) parse(line string) ([]session.Event, bool) {
	if !strings.HasPrefix(line, "/") {
		return []session.Event{session.ChatSubmitted{Text: line}}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fields := strings.Fields(line)

	switch fields[0] {
	case "/quit":
		return nil, true
	case "/clear":
		return []session.Event{session.ClearRequested{}}, false
	case "/status":
		h.printf("%s  |  Pen: %s\n", StatusLine(h.view), PenLabel(h.pen))
	case "/eraser":
		h.pen.Eraser = !h.pen.Eraser
		return []session.Event{session.PenChanged{Pen: h.pen}}, false
	case "/colour", "/color":
		if len(fields) == 2 {
			for _, s := range stroke.Palette {
				if strings.EqualFold(s.Name, fields[1]) {
					h.pen = s.Apply(h.pen)
					return []session.Event{session.PenChanged{Pen: h.pen}}, false
				}
			}
		}
		h.printf("* Colours: %s\n", paletteNames())
	case "/width":
		n, err := strconv.Atoi(strings.Join(fields[1:], ""))
		if err != nil || n < 1 || n > maxWidth {
			h.printf("* Width must be between 1 and %d\n", maxWidth)
			break
		}
		h.pen.Width = n
		return []session.Event{session.PenChanged{Pen: h.pen}}, false
	case "/size":
		dims, ok := parseInts(fields[1:], 2)
		if !ok || dims[0] < 1 || dims[1] < 1 {
			h.printf("* Usage: /size width height\n")
			break
		}
		return []session.Event{session.CanvasResized{Width: dims[0], Height: dims[1]}}, false
	case "/line":
		pts, ok := parseInts(fields[1:], 4)
		if !ok {
			h.printf("* Usage: /line x1 y1 x2 y2\n")
			break
		}
		from := stroke.Point{X: pts[0], Y: pts[1]}
		to := stroke.Point{X: pts[2], Y: pts[3]}
		return []session.Event{
			session.PointerDown{At: from},
			session.PointerMove{At: to},
			session.PointerUp{At: to},
		}, false
	default:
		h.printf("* Unknown command %s\n", fields[0])
	}

	return nil, false
}

func parseInts(fields []string, n int) ([]int, bool) {
	if len(fields) != n {
		return nil, false
	}

	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}

	return out, true
}

func paletteNames() string {
	names := make([]string, len(stroke.Palette))
	for i, s := range stroke.Palette {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}
