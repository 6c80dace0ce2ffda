package plot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/itqwq/stockviz/bubble"
	"github.com/itqwq/stockviz/calc"
	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/tools/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var (
	ErrSessionNotFound = errors.New("layout session not found")
	ErrTooManySessions = errors.New("too many layout sessions")
)

// layoutSession is one live bubble layout. The simulation keeps running at the frame interval
// until the session is deleted, its websocket closes, no client joins in time or the server
// stops.
type layoutSession struct {
	id       string
	layout   *bubble.Layout
	ctx      context.Context
	cancel   context.CancelFunc
	frames   chan bubble.Frame
	attached atomic.Bool
}

// publish keeps only the newest frame for the websocket writer.
func (s *layoutSession) publish(frame bubble.Frame) {
	select {
	case s.frames <- frame:
		return
	default:
	}
	select {
	case <-s.frames:
	default:
	}
	select {
	case s.frames <- frame:
	default:
	}
}

type bubbleRequest struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Ticker    string  `json:"ticker"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

type bubbleResponse struct {
	ID    string       `json:"id"`
	Frame bubble.Frame `json:"frame"`
}

// Drag events sent by the page.
const (
	EventDragStart = "dragstart"
	EventDrag      = "drag"
	EventDragEnd   = "dragend"
)

type dragEvent struct {
	Type string  `json:"type"`
	Word string  `json:"word"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type frameMessage struct {
	Type  string       `json:"type"`
	Frame bubble.Frame `json:"frame"`
}

// wordGraph returns the default dataset, or the sentiment keywords of a ticker when the
// request names one.
func (c *Chart) wordGraph(r *http.Request, request bubbleRequest) ([]model.Word, []model.Link, error) {
	if request.Ticker == "" {
		if len(c.words) == 0 {
			return nil, nil, fmt.Errorf("%w: no word data loaded", calc.ErrNoData)
		}
		return c.words, c.links, nil
	}

	if request.StartDate == "" {
		request.StartDate = c.window.Start.Format(model.DateLayout)
	}
	if request.EndDate == "" {
		request.EndDate = c.window.End.Format(model.DateLayout)
	}
	report, err := c.calculate(r, model.Request{
		StockTicker: request.Ticker,
		StartDate:   request.StartDate,
		EndDate:     request.EndDate,
	})
	if err != nil {
		return nil, nil, err
	}
	return report.Sentiment.Words(), report.Sentiment.Links(), nil
}

func (c *Chart) handleCreateBubbles(w http.ResponseWriter, r *http.Request) {
	var request bubbleRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &request); err != nil {
			renderError(w, r, http.StatusBadRequest, err)
			return
		}
	}

	words, links, err := c.wordGraph(r, request)
	if err != nil {
		renderError(w, r, statusFor(err), err)
		return
	}

	options := append([]bubble.Option{}, c.bubbleOptions...)
	if request.Width > 0 && request.Height > 0 {
		options = append(options, bubble.WithSize(request.Width, request.Height))
	}
	layout, err := bubble.New(words, links, options...)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bubble.ErrInvalidConfig) {
			status = http.StatusBadRequest
		}
		renderError(w, r, status, err)
		return
	}

	session, err := c.startSession(layout)
	if err != nil {
		renderError(w, r, http.StatusServiceUnavailable, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, bubbleResponse{ID: session.id, Frame: layout.Frame()})
}

func (c *Chart) startSession(layout *bubble.Layout) (*layoutSession, error) {
	c.Lock()
	if c.maxSessions > 0 && len(c.sessions) >= c.maxSessions {
		c.Unlock()
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, c.maxSessions)
	}

	ctx, cancel := context.WithCancel(c.ctx)
	session := &layoutSession{
		id:     uuid.New().String(),
		layout: layout,
		ctx:    ctx,
		cancel: cancel,
		frames: make(chan bubble.Frame, 1),
	}
	c.sessions[session.id] = session
	c.metrics.sessions.Set(float64(len(c.sessions)))
	c.Unlock()

	go layout.Run(ctx, c.frameInterval, session.publish)
	go c.expireUnattached(session)

	log.WithFields(log.Fields{
		"session": session.id,
		"nodes":   len(layout.Nodes()),
	}).Info("layout session started")
	return session, nil
}

// expireUnattached ends the session when no websocket client joins it within the attach
// timeout.
func (c *Chart) expireUnattached(session *layoutSession) {
	if c.attachTimeout <= 0 {
		return
	}
	timer := time.NewTimer(c.attachTimeout)
	defer timer.Stop()

	select {
	case <-session.ctx.Done():
	case <-timer.C:
		if session.attached.Load() {
			return
		}
		log.WithField("session", session.id).Warn("no client joined the layout session")
		_ = c.endSession(session.id)
	}
}

func (c *Chart) session(id string) (*layoutSession, error) {
	c.Lock()
	defer c.Unlock()
	session, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// endSession stops the simulation of a session and forgets it.
func (c *Chart) endSession(id string) error {
	c.Lock()
	defer c.Unlock()
	session, ok := c.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	session.cancel()
	delete(c.sessions, id)
	c.metrics.sessions.Set(float64(len(c.sessions)))
	log.WithField("session", id).Info("layout session ended")
	return nil
}

func (c *Chart) handleDeleteBubbles(w http.ResponseWriter, r *http.Request) {
	if err := c.endSession(chi.URLParam(r, "id")); err != nil {
		renderError(w, r, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Chart) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range c.allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

func (c *Chart) handleBubblesSocket(w http.ResponseWriter, r *http.Request) {
	session, err := c.session(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusNotFound, err)
		return
	}
	if !session.attached.CompareAndSwap(false, true) {
		renderError(w, r, http.StatusConflict, errors.New("layout session already has a client"))
		return
	}

	upgrader := c.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		session.attached.Store(false)
		log.WithField("session", session.id).WithError(err).Warn("websocket upgrade failed")
		return
	}

	go c.writePump(session, conn)
	c.readPump(session, conn)
}

// readPump applies the drag events of the page until the connection closes, then ends the
// session.
func (c *Chart) readPump(session *layoutSession, conn *websocket.Conn) {
	defer func() {
		_ = c.endSession(session.id)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var event dragEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithField("session", session.id).WithError(err).Warn("websocket closed")
			}
			return
		}

		if err := applyDrag(session.layout, event); err != nil {
			log.WithFields(log.Fields{
				"session": session.id,
				"event":   event.Type,
			}).WithError(err).Debug("drag event ignored")
		}
	}
}

func applyDrag(layout *bubble.Layout, event dragEvent) error {
	switch event.Type {
	case EventDragStart:
		return layout.DragStart(event.Word)
	case EventDrag:
		return layout.Drag(event.Word, event.X, event.Y)
	case EventDragEnd:
		return layout.DragEnd(event.Word)
	default:
		return fmt.Errorf("unknown event %q", event.Type)
	}
}

// writePump streams the newest frame of the session and keeps the connection alive.
func (c *Chart) writePump(session *layoutSession, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-session.ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
			return
		case frame := <-session.frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frameMessage{Type: "frame", Frame: frame}); err != nil {
				return
			}
			c.metrics.frames.Inc()
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
