// Package session implements the live multi-session lookup table used to
// resolve #_scxml_<sessionid> and #<invokeid> send targets and #_parent: an
// in-memory, never-persisted map from session id to that session's external
// queue.
package session

import (
	"fmt"
	"sync"

	"github.com/comalice/scxmlrun/internal/core"
)

// Registry is the process-wide (or, for a clustered deployment, per-node)
// table of live sessions. Its map is guarded by a single mutex, accessed
// briefly on lookup/insert/remove — never held across a blocking operation.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*core.ExternalQueue
	parents  map[string]string            // childID -> parentID
	invokes  map[string]map[string]*core.ExternalQueue // parentID -> invokeID -> child queue
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*core.ExternalQueue),
		parents:  make(map[string]string),
		invokes:  make(map[string]map[string]*core.ExternalQueue),
	}
}

// Register adds (or replaces) a session's external queue.
func (r *Registry) Register(sessionID string, ext *core.ExternalQueue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = ext
}

// Unregister removes a session and any invoke bookkeeping that referenced it.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.sessions[sessionID]; ok {
		for _, m := range r.invokes {
			for invokeID, ext := range m {
				if ext == q {
					delete(m, invokeID)
				}
			}
		}
	}
	delete(r.sessions, sessionID)
	delete(r.parents, sessionID)
	delete(r.invokes, sessionID)
}

// Lookup returns the external queue for sessionID.
func (r *Registry) Lookup(sessionID string) (*core.ExternalQueue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.sessions[sessionID]
	return q, ok
}

// RegisterParent records that childID was invoked by parentID, for #_parent
// resolution.
func (r *Registry) RegisterParent(childID, parentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parents[childID] = parentID
}

// ParentOf returns the session that invoked sessionID, if any.
func (r *Registry) ParentOf(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parents[sessionID]
	return p, ok
}

// RegisterInvoke records the external queue of a child session spawned by an
// <invoke> in parentID, keyed by invoke id, for #<invokeid> resolution.
func (r *Registry) RegisterInvoke(parentID, invokeID string, ext *core.ExternalQueue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.invokes[parentID]
	if !ok {
		m = make(map[string]*core.ExternalQueue)
		r.invokes[parentID] = m
	}
	m[invokeID] = ext
}

// UnregisterInvoke removes a single invoke's bookkeeping without touching
// the parent's other invokes.
func (r *Registry) UnregisterInvoke(parentID, invokeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.invokes[parentID]; ok {
		delete(m, invokeID)
	}
}

// LookupInvoke resolves #<invokeid> from within parentID's session.
func (r *Registry) LookupInvoke(parentID, invokeID string) (*core.ExternalQueue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.invokes[parentID]
	if !ok {
		return nil, false
	}
	q, ok := m[invokeID]
	return q, ok
}

// List returns the currently registered session ids, for the /info
// transport route.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

// ErrNotFound is a sentinel for errors.Is-based callers that turn a failed
// lookup into an error; the Registry methods above report misses through
// their bool result and do not return it.
var ErrNotFound = fmt.Errorf("session: not found")
