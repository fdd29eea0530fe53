// Package send implements the send dispatcher: target resolution, delayed
// delivery, and cancellation, including the #_response/#_websocket
// rendezvous targets.
package send

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comalice/scxmlrun/internal/core"
	"github.com/comalice/scxmlrun/internal/logging"
	"github.com/comalice/scxmlrun/internal/session"
	"github.com/comalice/scxmlrun/internal/wire"
)

const (
	TargetInternal = "#_internal"
	TargetParent   = "#_parent"
	TargetResponse = "#_response"
	TargetWebsocket = "#_websocket"
)

// Rendezvous delivers an envelope to an out-of-band channel: an HTTP
// response being held open (#_response) or a live websocket connection
// (#_websocket). One exists per session, registered by transport.
type Rendezvous interface {
	Deliver(sessionID string, env wire.Envelope) error
}

// Dispatcher resolves and delivers <send> requests for every session
// sharing one Registry.
type Dispatcher struct {
	Registry   *session.Registry
	Scheduler  *Scheduler
	Response   Rendezvous
	Websocket  Rendezvous
	HTTPClient *http.Client
}

func NewDispatcher(reg *session.Registry) *Dispatcher {
	return &Dispatcher{
		Registry:  reg,
		Scheduler: NewScheduler(),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send resolves and (immediately or after Delay) delivers s on behalf of
// sessionID, the owning session's Interpreter.SendHook. An immediate
// delivery failure is returned; a delayed one is only logged when it fires.
func (d *Dispatcher) Send(sessionID string, s core.Send) error {
	deliver := func() {
		if err := d.deliver(sessionID, s); err != nil {
			logging.WithSession(sessionID).WithField("sendid", s.ID).Warn(err.Error())
		}
	}
	delay, err := parseDelay(s.Delay)
	if err != nil {
		return err
	}
	if delay <= 0 {
		return d.deliver(sessionID, s)
	}
	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}
	d.Scheduler.Schedule(id, delay, deliver)
	return nil
}

// Cancel cancels a previously-scheduled delayed send.
func (d *Dispatcher) Cancel(sessionID string, c core.Cancel) error {
	d.Scheduler.Cancel(c.SendID)
	return nil
}

func (d *Dispatcher) deliver(sessionID string, s core.Send) error {
	env := wire.Envelope{
		Name:   s.Event,
		SendID: s.ID,
		Origin: sessionID,
	}

	target := s.Target
	switch {
	case target == "", target == TargetInternal:
		return d.deliverToSession(sessionID, env)
	case target == TargetParent:
		parentID, ok := d.Registry.ParentOf(sessionID)
		if !ok {
			return fmt.Errorf("send: session %s has no parent", sessionID)
		}
		return d.deliverToSession(parentID, env)
	case target == TargetResponse:
		if d.Response == nil {
			return fmt.Errorf("send: no response rendezvous configured")
		}
		return d.Response.Deliver(sessionID, env)
	case target == TargetWebsocket:
		if d.Websocket == nil {
			return fmt.Errorf("send: no websocket rendezvous configured")
		}
		return d.Websocket.Deliver(sessionID, env)
	case strings.HasPrefix(target, "#_scxml_"):
		return d.deliverToSession(strings.TrimPrefix(target, "#_scxml_"), env)
	case strings.HasPrefix(target, "#"):
		invokeID := strings.TrimPrefix(target, "#")
		q, ok := d.Registry.LookupInvoke(sessionID, invokeID)
		if !ok {
			return fmt.Errorf("send: unknown invoke target %s", target)
		}
		q.Push(env.ToEvent())
		return nil
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		return d.deliverHTTP(target, env)
	default:
		return fmt.Errorf("send: unsupported target %q", target)
	}
}

func (d *Dispatcher) deliverToSession(sessionID string, env wire.Envelope) error {
	q, ok := d.Registry.Lookup(sessionID)
	if !ok {
		return fmt.Errorf("send: unknown session %s", sessionID)
	}
	q.Push(env.ToEvent())
	return nil
}

func (d *Dispatcher) deliverHTTP(target string, env wire.Envelope) error {
	body, err := env.ToXML()
	if err != nil {
		return err
	}
	resp, err := d.HTTPClient.Post(target, "application/xml", strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send: remote target %s returned %d", target, resp.StatusCode)
	}
	return nil
}

// parseDelay accepts only "Ns" and "Nms" forms, per the Open Question
// decision recorded in DESIGN.md.
func parseDelay(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if strings.HasSuffix(s, "ms") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "ms"))
		if err != nil {
			return 0, fmt.Errorf("send: invalid delay %q", s)
		}
		return time.Duration(n) * time.Millisecond, nil
	}
	if strings.HasSuffix(s, "s") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "s"))
		if err != nil {
			return 0, fmt.Errorf("send: invalid delay %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("send: invalid delay %q, want Ns or Nms", s)
}
