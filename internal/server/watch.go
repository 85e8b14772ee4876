package server

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/saolsen/gameplay/internal/match"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Spectators only send control frames.
	maxMessageSize = 512
)

// snapshot is the first message on a watch stream.
type snapshot struct {
	Type  string         `json:"type"`
	Match *matchResponse `json:"match"`
}

// handleWatch streams a match to a spectator: a snapshot of the match, then
// every later event until the match ends or the spectator leaves.
func (s *Server) handleWatch(c *gin.Context) {
	id := c.Param("id")

	// Subscribe before reading the snapshot so no turn falls in between.
	events, cancel := s.coord.Bus().Subscribe(id)
	defer cancel()

	m, ok := s.getMatch(c)
	if !ok {
		return
	}
	first, err := s.public(m)
	if err != nil {
		s.internalError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}
	w := &watcher{
		conn:   conn,
		logger: s.logger.With("match", id),
		done:   make(chan struct{}),
		resync: func() (*matchResponse, error) {
			m, err := s.coord.Store().GetMatch(s.ctx, id)
			if err != nil {
				return nil, err
			}
			return s.public(m)
		},
		running: func() bool { return s.coord.Running(id) },
		every:   s.resyncEvery,
	}
	s.logger.Debug("Spectator connected", "match", id)

	go w.readPump()
	w.writePump(first, events, s.ctx.Done())
	s.logger.Debug("Spectator disconnected", "match", id)
}

type watcher struct {
	conn   *websocket.Conn
	logger *log.Logger
	done   chan struct{}

	// The bus drops events for slow subscribers. A gap in turn numbers, or
	// a match nobody is running, is caught up from the store with resync.
	resync  func() (*matchResponse, error)
	running func() bool
	every   time.Duration
}

// readPump discards everything but control frames and notices when the
// peer goes away.
func (w *watcher) readPump() {
	defer close(w.done)

	w.conn.SetReadLimit(maxMessageSize)
	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.logger.Debug("Spectator read error", "error", err)
			}
			return
		}
	}
}

func (w *watcher) writePump(first *matchResponse, events <-chan match.Event, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	check := time.NewTicker(w.every)
	defer func() {
		ticker.Stop()
		check.Stop()
		_ = w.conn.Close() // Ignore close errors during cleanup
	}()

	if !w.write(snapshot{Type: "snapshot", Match: first}) {
		return
	}
	if first.Status.Over {
		w.close()
		return
	}
	last := first.Turns

	// catchUp sends a fresh snapshot if the store is ahead of the stream,
	// and reports whether the stream should go on.
	catchUp := func(always bool) bool {
		m, err := w.resync()
		if err != nil {
			w.logger.Warn("Failed to resync spectator", "error", err)
			return true
		}
		if !always && m.Turns == last && !m.Status.Over {
			return true
		}
		if !w.write(snapshot{Type: "snapshot", Match: m}) {
			return false
		}
		last = m.Turns
		if m.Status.Over {
			w.close()
			return false
		}
		return true
	}

	for {
		select {
		case e, ok := <-events:
			if !ok {
				w.close()
				return
			}
			if e.Turn <= last && e.Type != match.EventEnd {
				continue
			}
			if e.Turn > last+1 || (e.Type == match.EventEnd && e.Turn != last) {
				w.logger.Debug("Spectator missed events", "last", last, "got", e.Turn)
				if !catchUp(true) {
					return
				}
				continue
			}
			if !w.write(e) {
				return
			}
			last = e.Turn
			if e.Type == match.EventEnd {
				w.close()
				return
			}

		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-check.C:
			if !w.running() && !catchUp(false) {
				return
			}

		case <-w.done:
			return

		case <-stop:
			w.close()
			return
		}
	}
}

func (w *watcher) write(v any) bool {
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteJSON(v); err != nil {
		w.logger.Debug("Failed to write to spectator", "error", err)
		return false
	}
	return true
}

func (w *watcher) close() {
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
