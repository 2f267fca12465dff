package session

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/sketchduel/canvas"
	"github.com/Seednode/sketchduel/protocol"
)

type MockWordPicker struct {
	mock.Mock
}

func (m *MockWordPicker) Pick() string {
	args := m.Called()
	return args.String(0)
}

func pickerOf(words ...string) *MockWordPicker {
	p := &MockWordPicker{}
	for _, w := range words[:len(words)-1] {
		p.On("Pick").Return(w).Once()
	}
	p.On("Pick").Return(words[len(words)-1])
	return p
}

func newMachine(t *testing.T, host bool, words ...string) (*Machine, *canvas.Canvas, *MockWordPicker) {
	t.Helper()

	if len(words) == 0 {
		words = []string{"APPLE"}
	}

	c := canvas.New(40, 40)
	p := pickerOf(words...)
	cfg := DefaultConfig()
	cfg.Host = host

	return New(cfg, c, p, zerolog.Nop()), c, p
}

// joined returns a guesser that completed the handshake for word.
func joined(t *testing.T, word string) (*Machine, *canvas.Canvas) {
	t.Helper()

	m, c, _ := newMachine(t, false)
	m.Handle(Connected{ID: "test"})
	m.Handle(Received{Command: protocol.Role(protocol.RoleGuesser)})
	m.Handle(Received{Command: protocol.Word(word)})
	require.Equal(t, RoundActive, m.View().State)

	return m, c
}

func hosting(t *testing.T, words ...string) (*Machine, *canvas.Canvas, *MockWordPicker) {
	t.Helper()

	m, c, p := newMachine(t, true, words...)
	m.Handle(Connected{ID: "test"})
	require.Equal(t, RoundActive, m.View().State)

	return m, c, p
}

// deliver frames fx's records onto a byte stream and feeds them to peer,
// returning everything peer produced in response.
func deliver(peer *Machine, fx Effects) Effects {
	var stream []byte
	for _, c := range fx.Outbound {
		stream = append(stream, protocol.Frame(c)...)
	}

	var out Effects
	for _, c := range protocol.NewFramer().Feed(stream) {
		r := peer.Handle(Received{Command: c})
		out.Outbound = append(out.Outbound, r.Outbound...)
		out.Notices = append(out.Notices, r.Notices...)
	}

	return out
}

// exchange bounces records between a and b until both go quiet.
func exchange(a, b *Machine, fromA Effects) {
	for len(fromA.Outbound) > 0 {
		fromB := deliver(b, fromA)
		fromA = deliver(a, fromB)
	}
}

func noticesOf(fx Effects, kind NoticeKind) []Notice {
	var out []Notice
	for _, n := range fx.Notices {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func payloadOf(fx Effects, kind protocol.Kind) (string, bool) {
	for _, c := range fx.Outbound {
		if c.Kind == kind {
			return c.Payload, true
		}
	}
	return "", false
}

var red = color.RGBA{R: 0xff, A: 0xff}

func redSquare(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: red}, image.Point{}, draw.Src)
	return img
}
