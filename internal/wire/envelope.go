// Package wire defines the event envelope exchanged over HTTP/WS transport
// and between sessions.
package wire

import (
	"encoding/json"
	"encoding/xml"

	"github.com/comalice/scxmlrun/internal/primitives"
)

// Envelope is the wire form of an event, serializable as XML (scxml route)
// or JSON (websocket route).
type Envelope struct {
	XMLName xml.Name          `xml:"event" json:"-"`
	Name    string            `xml:"name,attr" json:"name"`
	Target  string            `xml:"target,attr,omitempty" json:"target,omitempty"`
	Data    any               `xml:"data,omitempty" json:"data,omitempty"`
	Origin  string            `xml:"origin,attr,omitempty" json:"origin,omitempty"`
	SendID  string            `xml:"sendid,attr,omitempty" json:"sendid,omitempty"`
	Hints   map[string]string `xml:"-" json:"hints,omitempty"`
}

func (e Envelope) ToXML() ([]byte, error) {
	return xml.Marshal(e)
}

func FromXML(data []byte) (Envelope, error) {
	var e Envelope
	err := xml.Unmarshal(data, &e)
	return e, err
}

func (e Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}

// ToEvent converts the envelope into the primitives.Event the interpreter's
// external queue expects.
func (e Envelope) ToEvent() primitives.Event {
	return primitives.Event{
		Name:   primitives.SplitEventName(e.Name),
		Kind:   primitives.EventExternal,
		Data:   e.Data,
		SendID: e.SendID,
		Origin: e.Origin,
	}
}

// FromEvent converts an interpreter event into its wire envelope. The send
// dispatcher builds its #_response/#_websocket envelopes directly and does
// not call it.
func FromEvent(evt primitives.Event) Envelope {
	return Envelope{
		Name:   evt.FullName(),
		Data:   evt.Data,
		Origin: evt.Origin,
		SendID: evt.SendID,
	}
}
