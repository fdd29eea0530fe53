// Package transport is the HTTP+WS host for sessions: basichttp/scxml/info/
// websocket routes, default vs. inline-response dispatch, and the
// #_response/#_websocket rendezvous queues.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	scxmlrun "github.com/comalice/scxmlrun"
	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/logging"
	"github.com/comalice/scxmlrun/internal/wire"
)

// Server hosts one MultiSession over HTTP and WebSocket.
type Server struct {
	MS            *scxmlrun.MultiSession
	DefaultRoot   *graph.Node
	RespondInline bool

	engine   *gin.Engine
	upgrader websocket.Upgrader

	response  *responseRendezvous
	websocket *websocketRendezvous
}

// NewServer builds a Server and wires its rendezvous implementations into
// ms's Dispatcher.
func NewServer(ms *scxmlrun.MultiSession, defaultRoot *graph.Node, respondInline bool) *Server {
	s := &Server{
		MS:            ms,
		DefaultRoot:   defaultRoot,
		RespondInline: respondInline,
		upgrader:      websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		response:      newResponseRendezvous(),
		websocket:     newWebsocketRendezvous(),
	}
	ms.Dispatcher.Response = s.response
	ms.Dispatcher.Websocket = s.websocket
	s.engine = s.buildEngine()
	return s
}

func (s *Server) buildEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/info", s.handleInfo)
	r.POST("/:session/basichttp", s.handleBasicHTTP)
	r.POST("/:session/scxml", s.handleSCXML)
	r.GET("/:session/websocket", s.handleWebsocket)

	return r
}

// Run starts listening; it blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logging.Base().Infof("transport: listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.MS.Registry.List()})
}

// ensureSession returns the named session, spawning a fresh one from
// DefaultRoot when sessionID is unknown and a default document is
// configured.
func (s *Server) ensureSession(sessionID string) (*scxmlrun.StateMachine, error) {
	if _, ok := s.MS.Registry.Lookup(sessionID); ok {
		return nil, nil // already running; sessionID resolution is by queue, not by StateMachine handle here
	}
	if s.DefaultRoot == nil {
		return nil, fmt.Errorf("transport: unknown session %q and no default document configured", sessionID)
	}
	sm, err := s.MS.NewSession(context.Background(), s.DefaultRoot)
	if err != nil {
		return nil, err
	}
	go func() { _ = sm.Start(context.Background()) }()
	return sm, nil
}

func (s *Server) handleBasicHTTP(c *gin.Context) {
	sessionID := c.Param("session")
	if _, err := s.ensureSession(sessionID); err != nil {
		c.String(http.StatusForbidden, err.Error())
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if content := c.Request.Form.Get("_content"); content != "" {
		env, err := wire.FromXML([]byte(content))
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		s.dispatchAndMaybeRespond(c, sessionID, env)
		return
	}
	name := ""
	data := map[string]any{}
	for k, v := range c.Request.Form {
		if k == "_content" {
			continue
		}
		data[k] = v[0]
	}
	if name == "" {
		name = "http." + c.Request.Method
	}
	s.dispatchAndMaybeRespond(c, sessionID, wire.Envelope{Name: name, Data: data})
}

func (s *Server) handleSCXML(c *gin.Context) {
	sessionID := c.Param("session")
	if _, err := s.ensureSession(sessionID); err != nil {
		c.String(http.StatusForbidden, err.Error())
		return
	}
	body, err := readAll(c.Request)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	env, err := wire.FromXML(body)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	s.dispatchAndMaybeRespond(c, sessionID, env)
}

func (s *Server) dispatchAndMaybeRespond(c *gin.Context, sessionID string, env wire.Envelope) {
	q, ok := s.MS.Registry.Lookup(sessionID)
	if !ok {
		c.String(http.StatusForbidden, "unknown session")
		return
	}
	env.Origin = sessionID
	q.Push(env.ToEvent())

	if !s.RespondInline {
		c.Status(http.StatusAccepted)
		return
	}
	resp, ok := s.response.await(sessionID, 30*time.Second)
	if !ok {
		c.Status(http.StatusGatewayTimeout)
		return
	}
	for k, v := range resp.Hints {
		c.Header(k, v)
	}
	c.String(http.StatusOK, fmt.Sprint(resp.Data))
}

func (s *Server) handleWebsocket(c *gin.Context) {
	sessionID := c.Param("session")
	if _, err := s.ensureSession(sessionID); err != nil {
		c.String(http.StatusForbidden, err.Error())
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.websocket.register(sessionID, conn)
	defer s.websocket.unregister(sessionID)

	q, ok := s.MS.Registry.Lookup(sessionID)
	if !ok {
		_ = conn.Close()
		return
	}
	q.Push(wire.Envelope{Name: "websocket.connect"}.ToEvent())
	defer q.Push(wire.Envelope{Name: "websocket.disconnect"}.ToEvent())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := wire.FromJSON(data)
		if err != nil {
			continue
		}
		env.Origin = sessionID
		q.Push(env.ToEvent())
	}
}

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

// responseRendezvous implements send.Rendezvous for the #_response target:
// a POST handler blocks on await() until the session's executable content
// sends back to #_response.
type responseRendezvous struct {
	mu   sync.Mutex
	chans map[string]chan wire.Envelope
}

func newResponseRendezvous() *responseRendezvous {
	return &responseRendezvous{chans: make(map[string]chan wire.Envelope)}
}

func (r *responseRendezvous) Deliver(sessionID string, env wire.Envelope) error {
	r.mu.Lock()
	ch, ok := r.chans[sessionID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("transport: no pending response rendezvous for session %s", sessionID)
	}
	select {
	case ch <- env:
		return nil
	default:
		return fmt.Errorf("transport: response rendezvous for session %s already delivered", sessionID)
	}
}

func (r *responseRendezvous) await(sessionID string, timeout time.Duration) (wire.Envelope, bool) {
	ch := make(chan wire.Envelope, 1)
	r.mu.Lock()
	r.chans[sessionID] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.chans, sessionID)
		r.mu.Unlock()
	}()
	select {
	case env := <-ch:
		return env, true
	case <-time.After(timeout):
		return wire.Envelope{}, false
	}
}

// websocketRendezvous implements send.Rendezvous for the #_websocket target.
type websocketRendezvous struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn
}

func newWebsocketRendezvous() *websocketRendezvous {
	return &websocketRendezvous{conns: make(map[string]*websocket.Conn)}
}

func (w *websocketRendezvous) register(sessionID string, conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conns[sessionID] = conn
}

func (w *websocketRendezvous) unregister(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.conns, sessionID)
}

func (w *websocketRendezvous) Deliver(sessionID string, env wire.Envelope) error {
	w.mu.RLock()
	conn, ok := w.conns[sessionID]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("transport: no websocket connection for session %s", sessionID)
	}
	body, err := env.ToJSON()
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, body)
}
