package session

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/sketchduel/canvas"
	"github.com/Seednode/sketchduel/protocol"
	"github.com/Seednode/sketchduel/stroke"
)

const redDraw = "0,0;10,10;255,0,0,0,3"

func TestHostHandshake(t *testing.T) {
	m, _, p := newMachine(t, true, "APPLE")

	fx := m.Handle(Connected{ID: "s1"})

	assert.Equal(t, []protocol.Kind{
		protocol.KindRole, protocol.KindWord, protocol.KindClear, protocol.KindImage, protocol.KindParams,
	}, fx.Kinds())
	assert.Equal(t, protocol.Role(protocol.RoleGuesser), fx.Outbound[0])
	assert.Equal(t, protocol.Word("APPLE"), fx.Outbound[1])

	v := m.View()
	assert.Equal(t, Drawer, v.Role)
	assert.Equal(t, RoundActive, v.State)
	assert.Equal(t, "APPLE", v.Word)
	assert.Equal(t, DefaultRoundTicks, v.SecondsLeft)
	assert.Equal(t, 1, v.Round)
	assert.Equal(t, "s1", v.SessionID)
	p.AssertNumberOfCalls(t, "Pick", 1)
}

func TestJoinerHandshake(t *testing.T) {
	m, _, p := newMachine(t, false)

	fx := m.Handle(Connected{ID: "s1"})
	assert.Equal(t, []protocol.Command{protocol.RequestImage()}, fx.Outbound)
	assert.Equal(t, WaitingForPeer, m.View().State)

	m.Handle(Received{Command: protocol.Role(protocol.RoleGuesser)})
	m.Handle(Received{Command: protocol.Word("APPLE")})

	v := m.View()
	assert.Equal(t, Guesser, v.Role)
	assert.NotEqual(t, Drawer, v.Role)
	assert.Equal(t, Redacted, v.Word)
	assert.Equal(t, RoundActive, v.State)
	p.AssertNotCalled(t, "Pick")
}

func TestImageEndsWaiting(t *testing.T) {
	m, c, _ := newMachine(t, false)
	m.Handle(Connected{ID: "s1"})

	snap, err := canvas.EncodeSnapshot(redSquare(10))
	require.NoError(t, err)

	m.Handle(Received{Command: protocol.Image(snap)})

	assert.Equal(t, RoundActive, m.View().State)
	assert.Equal(t, red, c.At(3, 3))
}

func TestGuesserWordStaysRedactedUntilTimeout(t *testing.T) {
	m, _ := joined(t, "APPLE")

	for range DefaultRoundTicks - 1 {
		fx := m.Handle(Tick{})
		assert.Empty(t, fx.Outbound)
	}
	assert.Equal(t, Redacted, m.View().Word)
	assert.Equal(t, 1, m.View().SecondsLeft)

	fx := m.Handle(Tick{})

	assert.Empty(t, fx.Outbound)
	ends := noticesOf(fx, NoticeRoundEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, ReasonTimeout, ends[0].Reason)
	assert.Equal(t, "APPLE", ends[0].Word)

	v := m.View()
	assert.Equal(t, "APPLE", v.Word)
	assert.Equal(t, Guesser, v.Role)
	assert.Equal(t, RoundEnded, v.State)

	// a stopped timer stays quiet
	assert.Empty(t, m.Handle(Tick{}).Notices)
}

func TestGuessIsCaseInsensitive(t *testing.T) {
	m, _ := joined(t, "APPLE")
	m.words = pickerOf("KITE")

	fx := m.Handle(ChatSubmitted{Text: "  apple "})

	assert.Equal(t, []protocol.Kind{
		protocol.KindWin, protocol.KindRole, protocol.KindWord, protocol.KindClear, protocol.KindImage, protocol.KindParams,
	}, fx.Kinds())
	assert.Equal(t, protocol.Win("apple"), fx.Outbound[0])
	assert.Equal(t, protocol.Word("KITE"), fx.Outbound[2])

	ends := noticesOf(fx, NoticeRoundEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, ReasonGuessed, ends[0].Reason)
	assert.Equal(t, "APPLE", ends[0].Word)

	v := m.View()
	assert.Equal(t, Drawer, v.Role)
	assert.Equal(t, "KITE", v.Word)
	assert.Equal(t, 1, v.Score.Self)
	assert.Equal(t, 2, v.Round)
}

func TestWrongGuessIsChat(t *testing.T) {
	m, _ := joined(t, "APPLE")

	fx := m.Handle(ChatSubmitted{Text: "apples"})

	assert.Equal(t, []protocol.Command{protocol.Chat("apples")}, fx.Outbound)
	assert.Equal(t, Guesser, m.View().Role)
	assert.Equal(t, Redacted, m.View().Word)
}

func TestDrawAuthority(t *testing.T) {
	drawer, dc, _ := hosting(t)
	drawer.Handle(Received{Command: protocol.Command{Kind: protocol.KindDraw, Payload: redDraw}})
	assert.Equal(t, canvas.Background, dc.At(5, 5))

	guesser, gc := joined(t, "APPLE")
	fx := guesser.Handle(Received{Command: protocol.Command{Kind: protocol.KindDraw, Payload: redDraw}})
	assert.Equal(t, red, gc.At(5, 5))
	assert.Len(t, noticesOf(fx, NoticeCanvas), 1)
}

func TestDrawerIgnoresDrawerOnlyRecords(t *testing.T) {
	m, c, _ := hosting(t)
	m.Handle(PointerDown{At: stroke.Point{X: 0, Y: 0}})
	m.Handle(PointerUp{At: stroke.Point{X: 10, Y: 10}})
	before := c.Revision()

	snap, err := canvas.EncodeSnapshot(redSquare(10))
	require.NoError(t, err)

	m.Handle(Received{Command: protocol.Clear()})
	m.Handle(Received{Command: protocol.Image(snap)})
	m.Handle(Received{Command: protocol.Params(stroke.Pen{G: 9, Width: 2})})

	assert.Equal(t, before, c.Revision())
	assert.Equal(t, stroke.DefaultPen(), m.View().PeerPen)
}

func TestClearThenImageReplacesCanvas(t *testing.T) {
	m, c := joined(t, "APPLE")
	m.Handle(Received{Command: protocol.Command{Kind: protocol.KindDraw, Payload: "0,20;39,20;0,0,255,0,5"}})

	snap, err := canvas.EncodeSnapshot(redSquare(10))
	require.NoError(t, err)

	m.Handle(Received{Command: protocol.Clear()})
	m.Handle(Received{Command: protocol.Image(snap)})

	assert.Equal(t, image.Rect(0, 0, 10, 10), c.Bounds())
	assert.Equal(t, redSquare(10).Pix, c.Image().Pix)
}

func TestMalformedRecordsAreDropped(t *testing.T) {
	m, c := joined(t, "APPLE")
	rev := c.Revision()

	m.Handle(Received{Command: protocol.Command{Kind: protocol.KindDraw, Payload: "0,0;10;255,0,0,0,3"}})
	m.Handle(Received{Command: protocol.Command{Kind: protocol.KindParams, Payload: "red"}})
	m.Handle(Received{Command: protocol.Command{Kind: protocol.KindImage, Payload: "%%%"}})
	m.Handle(Received{Command: protocol.Command{Kind: protocol.KindRole, Payload: "REFEREE"}})
	assert.Equal(t, rev, c.Revision())
	assert.Equal(t, Guesser, m.View().Role)

	m.Handle(Received{Command: protocol.Command{Kind: protocol.KindDraw, Payload: redDraw}})
	assert.Equal(t, red, c.At(5, 5))
}

func TestDrawerTimeoutKeepsRole(t *testing.T) {
	m, _, p := hosting(t, "APPLE", "KITE")

	var fx Effects
	for range DefaultRoundTicks {
		fx = m.Handle(Tick{})
	}

	ends := noticesOf(fx, NoticeRoundEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, ReasonTimeout, ends[0].Reason)
	assert.Equal(t, "APPLE", ends[0].Word)

	word, ok := payloadOf(fx, protocol.KindWord)
	require.True(t, ok)
	assert.Equal(t, "KITE", word)
	role, _ := payloadOf(fx, protocol.KindRole)
	assert.Equal(t, protocol.RoleGuesser, role)

	v := m.View()
	assert.Equal(t, Drawer, v.Role)
	assert.Equal(t, RoundActive, v.State)
	assert.Equal(t, DefaultRoundTicks, v.SecondsLeft)
	assert.Equal(t, 2, v.Round)
	p.AssertNumberOfCalls(t, "Pick", 2)
}

func TestWinReceivedSwapsRole(t *testing.T) {
	m, c, _ := hosting(t)
	m.Handle(PointerDown{At: stroke.Point{X: 0, Y: 0}})
	m.Handle(PointerUp{At: stroke.Point{X: 10, Y: 10}})

	fx := m.Handle(Received{Command: protocol.Win("apple")})

	assert.Empty(t, fx.Outbound)
	ends := noticesOf(fx, NoticeRoundEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, ReasonPeerGuessed, ends[0].Reason)
	assert.Equal(t, "APPLE", ends[0].Word)

	v := m.View()
	assert.Equal(t, Guesser, v.Role)
	assert.Equal(t, RoundEnded, v.State)
	assert.Equal(t, 1, v.Score.Peer)
	assert.Equal(t, canvas.Background, c.At(5, 5))

	// the timer was stopped
	assert.Empty(t, m.Handle(Tick{}).Notices)

	m.Handle(Received{Command: protocol.Word("KITE")})
	assert.Equal(t, RoundActive, m.View().State)
	assert.Equal(t, Redacted, m.View().Word)
}

func TestWinIgnoredByGuesser(t *testing.T) {
	m, _ := joined(t, "APPLE")

	fx := m.Handle(Received{Command: protocol.Win("apple")})

	assert.Empty(t, fx.Notices)
	assert.Equal(t, Guesser, m.View().Role)
	assert.Equal(t, RoundActive, m.View().State)
}

func TestWordResolvesRoleConflict(t *testing.T) {
	// a joiner that is drawing yields to the host's word
	joiner, _ := joined(t, "APPLE")
	joiner.Handle(ChatSubmitted{Text: "apple"})
	require.Equal(t, Drawer, joiner.View().Role)

	joiner.Handle(Received{Command: protocol.Word("KITE")})

	v := joiner.View()
	assert.Equal(t, Guesser, v.Role)
	assert.Equal(t, Redacted, v.Word)
	assert.Equal(t, RoundActive, v.State)

	// the host keeps drawing its own word
	host, _, _ := hosting(t)
	fx := host.Handle(Received{Command: protocol.Word("KITE")})

	assert.Empty(t, fx.Outbound)
	assert.Equal(t, Drawer, host.View().Role)
	assert.Equal(t, "APPLE", host.View().Word)
}

func TestRepeatedWordRestartsClock(t *testing.T) {
	m, _ := joined(t, "APPLE")
	m.Handle(Tick{})
	m.Handle(Tick{})
	round := m.View().Round

	fx := m.Handle(Received{Command: protocol.Word("APPLE")})

	assert.Empty(t, noticesOf(fx, NoticeRoundStart))
	assert.Equal(t, round, m.View().Round)
	assert.Equal(t, DefaultRoundTicks, m.View().SecondsLeft)
	assert.Equal(t, RoundActive, m.View().State)
}

func TestRoleDrawerStartsRound(t *testing.T) {
	m, _ := joined(t, "APPLE")
	m.words = pickerOf("KITE")

	fx := m.Handle(Received{Command: protocol.Role(protocol.RoleDrawer)})

	word, ok := payloadOf(fx, protocol.KindWord)
	require.True(t, ok)
	assert.Equal(t, "KITE", word)
	assert.Equal(t, Drawer, m.View().Role)
}

func TestRoleGuesserDemotesJoiningDrawer(t *testing.T) {
	m, _ := joined(t, "APPLE")
	m.Handle(ChatSubmitted{Text: "apple"})
	require.Equal(t, Drawer, m.View().Role)

	m.Handle(Received{Command: protocol.Role(protocol.RoleGuesser)})

	assert.Equal(t, Guesser, m.View().Role)
	assert.Equal(t, RoundEnded, m.View().State)
}

func TestHostAnnouncesRoundAgainOnRoleConflict(t *testing.T) {
	m, _, p := hosting(t)
	m.Handle(Tick{})

	fx := m.Handle(Received{Command: protocol.Role(protocol.RoleGuesser)})

	assert.Equal(t, []protocol.Kind{
		protocol.KindRole, protocol.KindWord, protocol.KindClear, protocol.KindImage, protocol.KindParams,
	}, fx.Kinds())
	word, _ := payloadOf(fx, protocol.KindWord)
	assert.Equal(t, "APPLE", word)

	v := m.View()
	assert.Equal(t, Drawer, v.Role)
	assert.Equal(t, RoundActive, v.State)
	assert.Equal(t, DefaultRoundTicks, v.SecondsLeft)
	assert.Equal(t, 1, v.Round)
	p.AssertNumberOfCalls(t, "Pick", 1)
}

func TestStaleWinIsIgnored(t *testing.T) {
	m, _, _ := hosting(t, "APPLE")

	fx := m.Handle(Received{Command: protocol.Win("kite")})

	assert.Empty(t, fx.Outbound)
	assert.Empty(t, noticesOf(fx, NoticeRoundEnd))

	v := m.View()
	assert.Equal(t, Drawer, v.Role)
	assert.Equal(t, RoundActive, v.State)
	assert.Zero(t, v.Score.Peer)
}

func TestRequestImage(t *testing.T) {
	drawer, _, _ := hosting(t)
	fx := drawer.Handle(Received{Command: protocol.RequestImage()})
	assert.Equal(t, []protocol.Kind{protocol.KindImage, protocol.KindParams}, fx.Kinds())

	guesser, _ := joined(t, "APPLE")
	assert.Empty(t, guesser.Handle(Received{Command: protocol.RequestImage()}).Outbound)
}

func TestLocalDrawingIsGatedOnRole(t *testing.T) {
	guesser, gc := joined(t, "APPLE")
	rev := gc.Revision()

	fx := guesser.Handle(PointerDown{At: stroke.Point{X: 0, Y: 0}})
	fx.Outbound = append(fx.Outbound, guesser.Handle(PointerMove{At: stroke.Point{X: 5, Y: 5}}).Outbound...)
	fx.Outbound = append(fx.Outbound, guesser.Handle(PointerUp{At: stroke.Point{X: 10, Y: 10}}).Outbound...)
	fx.Outbound = append(fx.Outbound, guesser.Handle(ClearRequested{}).Outbound...)

	assert.Empty(t, fx.Outbound)
	assert.Equal(t, rev, gc.Revision())

	drawer, dc, _ := hosting(t)
	drawer.Handle(PointerDown{At: stroke.Point{X: 0, Y: 0}})
	move := drawer.Handle(PointerMove{At: stroke.Point{X: 5, Y: 5}})
	up := drawer.Handle(PointerUp{At: stroke.Point{X: 10, Y: 10}})

	assert.Equal(t, protocol.Draw(stroke.Stroke{To: stroke.Point{X: 5, Y: 5}, Pen: stroke.DefaultPen()}), move.Outbound[0])
	assert.Equal(t, protocol.Draw(stroke.Stroke{From: stroke.Point{X: 5, Y: 5}, To: stroke.Point{X: 10, Y: 10}, Pen: stroke.DefaultPen()}), up.Outbound[0])
	assert.NotEqual(t, canvas.Background, dc.At(5, 5))

	// moves after release draw nothing
	assert.Empty(t, drawer.Handle(PointerMove{At: stroke.Point{X: 20, Y: 20}}).Outbound)
}

func TestPenChanged(t *testing.T) {
	drawer, _, _ := hosting(t)
	pen := stroke.Palette[1].Apply(stroke.DefaultPen())

	fx := drawer.Handle(PenChanged{Pen: pen})
	assert.Equal(t, []protocol.Command{protocol.Params(pen)}, fx.Outbound)
	assert.Equal(t, pen, drawer.View().Pen)

	guesser, _ := joined(t, "APPLE")
	fx = guesser.Handle(PenChanged{Pen: stroke.Pen{Width: 0}})
	assert.Empty(t, fx.Outbound)
	assert.Equal(t, 1, guesser.View().Pen.Width)
}

func TestClearRequested(t *testing.T) {
	m, c, _ := hosting(t)
	m.Handle(PointerDown{At: stroke.Point{X: 0, Y: 0}})
	m.Handle(PointerUp{At: stroke.Point{X: 10, Y: 10}})

	fx := m.Handle(ClearRequested{})

	assert.Equal(t, []protocol.Kind{protocol.KindClear, protocol.KindImage}, fx.Kinds())
	assert.Equal(t, canvas.Background, c.At(5, 5))
}

func TestDrawerCannotChatTheWord(t *testing.T) {
	m, _, _ := hosting(t)

	fx := m.Handle(ChatSubmitted{Text: "it is an Apple!"})
	assert.Empty(t, fx.Outbound)

	fx = m.Handle(ChatSubmitted{Text: "warmer"})
	assert.Equal(t, []protocol.Command{protocol.Chat("warmer")}, fx.Outbound)
}

func TestDisconnectRevealsAndSuspends(t *testing.T) {
	m, _ := joined(t, "APPLE")

	fx := m.Handle(Disconnected{})

	ends := noticesOf(fx, NoticeRoundEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, ReasonDisconnect, ends[0].Reason)

	v := m.View()
	assert.Equal(t, WaitingForPeer, v.State)
	assert.Equal(t, "APPLE", v.Word)
	assert.False(t, v.Connected)

	assert.Empty(t, m.Handle(ChatSubmitted{Text: "apple"}).Outbound)
	assert.Empty(t, m.Handle(Tick{}).Notices)
	assert.Empty(t, m.Handle(Received{Command: protocol.Word("KITE")}).Notices)
}

func TestDisconnectedDrawerCannotDraw(t *testing.T) {
	m, c, _ := hosting(t)
	m.Handle(Disconnected{})
	rev := c.Revision()

	m.Handle(PointerDown{At: stroke.Point{X: 0, Y: 0}})
	fx := m.Handle(PointerUp{At: stroke.Point{X: 10, Y: 10}})

	assert.Empty(t, fx.Outbound)
	assert.Equal(t, rev, c.Revision())
}

func TestReconnectRunsFreshHandshake(t *testing.T) {
	m, _, _ := hosting(t, "APPLE", "KITE")
	m.Handle(Disconnected{})

	fx := m.Handle(Connected{ID: "s2"})

	word, _ := payloadOf(fx, protocol.KindWord)
	assert.Equal(t, "KITE", word)
	assert.Equal(t, RoundActive, m.View().State)
	assert.Equal(t, "s2", m.View().SessionID)
}

func TestChatRateLimit(t *testing.T) {
	m, _ := joined(t, "APPLE")

	sent := 0
	for range 20 {
		sent += len(m.Handle(ChatSubmitted{Text: "pear"}).Outbound)
	}

	assert.Equal(t, DefaultConfig().ChatBurst, sent)
}

func TestDrawerGrowsCanvasAndResends(t *testing.T) {
	m, c, _ := hosting(t)
	m.canvas.ApplyStroke(stroke.Stroke{To: stroke.Point{X: 5, Y: 5}, Pen: stroke.Pen{R: 255, Width: 3}})

	fx := m.Handle(CanvasResized{Width: 60, Height: 50})

	assert.Equal(t, []protocol.Kind{protocol.KindImage}, fx.Kinds())
	assert.Equal(t, image.Rect(0, 0, 60, 50), c.Bounds())
	assert.Equal(t, red, c.At(2, 2))

	peer, pc := joined(t, "APPLE")
	deliver(peer, fx)
	assert.Equal(t, image.Rect(0, 0, 60, 50), pc.Bounds())

	assert.Empty(t, m.Handle(CanvasResized{Width: 20, Height: 20}).Outbound)
	assert.Equal(t, image.Rect(0, 0, 60, 50), c.Bounds())
}

func TestGuesserCannotResize(t *testing.T) {
	m, c := joined(t, "APPLE")

	fx := m.Handle(CanvasResized{Width: 100, Height: 100})

	assert.Empty(t, fx.Outbound)
	assert.Len(t, noticesOf(fx, NoticeStatus), 1)
	assert.Equal(t, image.Rect(0, 0, 40, 40), c.Bounds())
}

func TestResizeIsCappedAtMaxSide(t *testing.T) {
	m, c, _ := newMachine(t, true)

	fx := m.Handle(CanvasResized{Width: 100000, Height: 50})

	assert.Len(t, noticesOf(fx, NoticeStatus), 1)
	assert.Equal(t, image.Rect(0, 0, canvas.MaxSide, 50), c.Bounds())
}

func TestOversizedImageIsDropped(t *testing.T) {
	m, c := joined(t, "APPLE")
	rev := c.Revision()

	snap, err := canvas.EncodeSnapshot(image.NewRGBA(image.Rect(0, 0, 1, canvas.MaxSide+1)))
	require.NoError(t, err)

	fx := m.Handle(Received{Command: protocol.Image(snap)})

	assert.Empty(t, noticesOf(fx, NoticeCanvas))
	assert.Equal(t, image.Rect(0, 0, 40, 40), c.Bounds())
	assert.Equal(t, rev, c.Revision())
}
