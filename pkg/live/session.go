package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dropkit-go/dropkit/pkg/dropzone"
	"github.com/dropkit-go/dropkit/pkg/middleware"
	"github.com/dropkit-go/dropkit/pkg/reactive"
)

// Config holds per-session settings.
type Config struct {
	// Dropzone configures the control behind each session. The Upload
	// collaborator is required.
	Dropzone dropzone.Config

	// ReadTimeout is the socket read deadline. Default: 60s.
	ReadTimeout time.Duration

	// WriteTimeout is the socket write deadline. Default: 10s.
	WriteTimeout time.Duration

	// HeartbeatInterval is the ping period. Must be shorter than
	// ReadTimeout. Default: 30s.
	HeartbeatInterval time.Duration

	// MaxEventQueue bounds the pending event and dispatch queues.
	// Default: 64.
	MaxEventQueue int

	// Logger is the base logger. Default: slog.Default.
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.MaxEventQueue <= 0 {
		c.MaxEventQueue = 64
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session owns one WebSocket connection and its dropzone control. All
// control state changes happen on the event loop goroutine.
type Session struct {
	ID string

	cfg  Config
	conn *websocket.Conn
	log  *slog.Logger
	zone *dropzone.Dropzone

	events     chan *Event
	dispatchCh chan func()
	done       chan struct{}

	closed  atomic.Bool
	dirty   atomic.Bool
	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession wires a control to conn. Call Start to begin processing.
func NewSession(conn *websocket.Conn, cfg Config) (*Session, error) {
	cfg.applyDefaults()

	s := &Session{
		ID:         uuid.NewString(),
		cfg:        cfg,
		conn:       conn,
		events:     make(chan *Event, cfg.MaxEventQueue),
		dispatchCh: make(chan func(), cfg.MaxEventQueue),
		done:       make(chan struct{}),
	}
	s.log = cfg.Logger.With("session_id", s.ID)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	zone, err := dropzone.New(cfg.Dropzone, s)
	if err != nil {
		return nil, err
	}
	s.zone = zone.WithContext(s.ctx)

	// Any signal the snapshot reads marks the session dirty; the loop
	// pushes at most one snapshot per processed event.
	reactive.WithOwner(zone.Owner(), func() {
		reactive.CreateEffect(func() reactive.Cleanup {
			s.zone.Files()
			s.zone.Progress()
			s.zone.Processing()
			s.zone.Error()
			s.dirty.Store(true)
			return nil
		})
	})

	return s, nil
}

// Dispatch queues fn onto the event loop. Safe to call from any
// goroutine; a closed session drops the call.
func (s *Session) Dispatch(fn func()) {
	select {
	case s.dispatchCh <- fn:
	case <-s.done:
	}
}

// Zone returns the session's control, for tests and handlers running on
// the event loop.
func (s *Session) Zone() *dropzone.Dropzone {
	return s.zone
}

// Start launches the session goroutines and pushes the initial state.
func (s *Session) Start() {
	middleware.RecordSessionStart()
	s.log.Info("session started")

	s.pushState()

	go s.ReadLoop()
	go s.WriteLoop()
	go s.EventLoop()
}

// Close tears the session down. Idempotent.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.cancel()
	close(s.done)
	s.conn.Close()

	middleware.RecordSessionEnd()
	s.log.Info("session closed")
}

// ReadLoop reads client frames until the connection dies.
func (s *Session) ReadLoop() {
	defer s.Close()

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Error("read error", "error", err)
				middleware.RecordWebSocketError("read")
			}
			return
		}

		ev, err := DecodeEvent(msg)
		if err != nil {
			s.log.Warn("bad event frame", "error", err)
			middleware.RecordWebSocketError("decode")
			continue
		}

		select {
		case s.events <- ev:
		default:
			s.log.Warn("event queue full, dropping event", "type", ev.Type)
			middleware.RecordWebSocketError("queue_full")
		}
	}
}

// WriteLoop sends heartbeat pings until the session closes.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				s.Close()
				return
			}

		case <-s.done:
			return
		}
	}
}

// EventLoop applies queued events and dispatched callbacks to the
// control, one at a time.
func (s *Session) EventLoop() {
	defer s.zone.Dispose()

	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)

		case fn := <-s.dispatchCh:
			s.runOnLoop("dispatch", fn)

		case <-s.done:
			return
		}
	}
}

func (s *Session) handleEvent(ev *Event) {
	middleware.RecordSessionEvent(ev.Type)

	_, span := middleware.StartEventSpan(s.ctx, ev.Type, s.ID)
	defer middleware.EndEventSpan(span, nil)

	s.runOnLoop(ev.Type, func() {
		switch ev.Type {
		case EventDrop, EventBrowse:
			s.zone.AcceptCandidates(ev.candidates())
		case EventRemove:
			s.zone.Remove(ev.Index)
		case EventClear:
			s.zone.Clear()
		case EventSubmit:
			s.zone.Submit()
		}
	})
}

// runOnLoop executes fn with panic recovery, flushes pending effects,
// and pushes a snapshot when anything changed.
func (s *Session) runOnLoop(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("event panic",
				"kind", kind,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	fn()
	s.zone.Owner().RunPendingEffects()

	if s.dirty.CompareAndSwap(true, false) {
		s.pushState()
	}
}

// pushState writes the current snapshot to the client.
func (s *Session) pushState() {
	if s.closed.Load() {
		return
	}

	files := s.zone.Files()
	stateFiles := make([]StateFile, len(files))
	for i, f := range files {
		stateFiles[i] = StateFile{Name: f.Name, Size: f.Size}
	}

	errMsg, _ := s.zone.Error()
	state := State{
		Type:       "state",
		Files:      stateFiles,
		Progress:   s.zone.Progress(),
		Processing: s.zone.Processing(),
		Error:      errMsg,
		MaxFiles:   s.zone.MaxFiles(),
		Multiple:   s.zone.AllowsMultiple(),
		Full:       s.zone.Full(),
		CanAddMore: s.zone.CanAddMore(),
		Accept:     dropzone.Accept,
	}

	data, err := json.Marshal(state)
	if err != nil {
		s.log.Error("state encode error", "error", err)
		return
	}

	s.writeMu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	err = s.conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()
	if err != nil {
		s.log.Error("write error", "error", err)
		middleware.RecordWebSocketError("write")
		s.Close()
	}
}
