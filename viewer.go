// Sketchduel Web Viewer
//
// A read-only window onto the local peer's game, served over HTTP so the
// board can be shown on a second screen or projected for an audience.
// Browsers receive the status line, chat and canvas revisions over a
// WebSocket and fetch the canvas itself as a PNG.
//
// Features:
// - Live state pushes on /ws as JSON messages
// - Latest canvas at /canvas.png, re-fetched whenever its revision changes
// - Recent chat replayed to browsers that connect mid-game
// - QR code of the join address at /qr while hosting, backed by go-qrcode
// - Viewers can never draw, guess or chat

package main

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/sketchduel/session"
	"github.com/Seednode/sketchduel/terminal"
)

const (
	chatHistory    = 50
	broadcastQueue = 256
	qrSize         = 320
)

type StateMessage struct {
	Type        string `json:"type"`
	Session     string `json:"session"`
	Host        bool   `json:"host"`
	Connected   bool   `json:"connected"`
	State       string `json:"state"`
	Role        string `json:"role"`
	Word        string `json:"word"`
	Clock       string `json:"clock"`
	SecondsLeft int    `json:"secondsLeft"`
	Round       int    `json:"round"`
	ScoreSelf   int    `json:"scoreSelf"`
	ScorePeer   int    `json:"scorePeer"`
	Pen         string `json:"pen"`
	Status      string `json:"status"`
}

type ChatMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type CanvasMessage struct {
	Type     string `json:"type"`
	Revision uint64 `json:"revision"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

// Hub fans session updates out to every connected browser.
type Hub struct {
	clients map[*Client]bool

	register  chan *Client
	unreg     chan *Client
	broadcast chan any
	stop      chan struct{}
	stopOnce  sync.Once

	mu       sync.RWMutex
	state    StateMessage
	chat     []ChatMessage
	png      []byte
	revision uint64
}

func newHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]bool),
		register:  make(chan *Client),
		unreg:     make(chan *Client),
		broadcast: make(chan any, broadcastQueue),
		stop:      make(chan struct{}),
		state:     StateMessage{Type: "state"},
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true

			h.mu.RLock()
			backlog := make([]any, 0, len(h.chat)+2)
			backlog = append(backlog, h.state)
			for _, m := range h.chat {
				backlog = append(backlog, m)
			}
			if h.png != nil {
				backlog = append(backlog, CanvasMessage{Type: "canvas", Revision: h.revision})
			}
			h.mu.RUnlock()

			for _, m := range backlog {
				if !h.deliver(cfg, c, m) {
					break
				}
			}

			logf(cfg, "VIEWER: Browser connected (%d watching)", len(h.clients))

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case m := <-h.broadcast:
			for c := range h.clients {
				h.deliver(cfg, c, m)
			}

		case <-h.stop:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// deliver drops a browser that cannot keep up rather than stalling the
// others.
func (h *Hub) deliver(cfg *Config, c *Client, m any) bool {
	select {
	case c.send <- m:
		return true
	default:
		logf(cfg, "VIEWER: Dropping slow browser")
		delete(h.clients, c)
		close(c.send)
		return false
	}
}

func (h *Hub) close() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Publish records the latest view and queues it, with any chat lines the
// notices produced, for every browser. It never blocks.
func (h *Hub) Publish(v session.View, notices []session.Notice) {
	h.mu.Lock()

	status := h.state.Status
	var lines []ChatMessage
	for _, n := range notices {
		switch n.Kind {
		case session.NoticeStatus:
			status = n.Text
		case session.NoticeRoundStart:
			status = ""
		}

		if line, ok := terminal.Describe(n); ok {
			lines = append(lines, ChatMessage{Type: "chat", Text: line})
		}
	}

	h.state = stateMessage(v, status)
	h.chat = append(h.chat, lines...)
	if over := len(h.chat) - chatHistory; over > 0 {
		h.chat = append(h.chat[:0], h.chat[over:]...)
	}

	state := h.state
	h.mu.Unlock()

	h.queue(state)
	for _, l := range lines {
		h.queue(l)
	}
}

// PublishCanvas stores an encoded canvas and tells browsers to fetch it.
func (h *Hub) PublishCanvas(png []byte, revision uint64) {
	h.mu.Lock()
	h.png = png
	h.revision = revision
	h.mu.Unlock()

	h.queue(CanvasMessage{Type: "canvas", Revision: revision})
}

func (h *Hub) canvas() ([]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.png, h.revision
}

func (h *Hub) queue(m any) {
	select {
	case h.broadcast <- m:
	case <-h.stop:
	default:
	}
}

func stateMessage(v session.View, status string) StateMessage {
	return StateMessage{
		Type:        "state",
		Session:     v.SessionID,
		Host:        v.Host,
		Connected:   v.Connected,
		State:       v.State.String(),
		Role:        v.Role.String(),
		Word:        v.Word,
		Clock:       terminal.Clock(v.SecondsLeft),
		SecondsLeft: v.SecondsLeft,
		Round:       v.Round,
		ScoreSelf:   v.Score.Self,
		ScorePeer:   v.Score.Peer,
		Pen:         terminal.PenLabel(v.Pen),
		Status:      status,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveViewerWS(cfg *Config, hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "VIEWER: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, broadcastQueue),
		}

		select {
		case hub.register <- client:
		case <-hub.stop:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

// readPump only watches for the browser going away; viewers have nothing
// to say.
func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.stop:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func serveCanvas(cfg *Config, hub *Hub, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		png, revision := hub.canvas()
		if png == nil {
			http.Error(w, "no canvas yet", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("ETag", `"`+strconv.FormatUint(revision, 10)+`"`)
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Canvas revision %d (%s) to %s in %s",
			revision,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveQR renders the address a peer should join as a PNG QR code.
func serveQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		png, err := qrcode.Encode(advertisedAddress(cfg), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// advertisedAddress is the address a peer on the local network can dial.
// An unspecified bind address is replaced with the first non-loopback
// interface address.
func advertisedAddress(cfg *Config) string {
	host := cfg.bind

	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"

		addrs, err := net.InterfaceAddrs()
		if err == nil {
			for _, a := range addrs {
				ipnet, ok := a.(*net.IPNet)
				if ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
					host = ipnet.IP.String()
					break
				}
			}
		}
	}

	return net.JoinHostPort(host, strconv.Itoa(cfg.port))
}
