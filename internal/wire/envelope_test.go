package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/scxmlrun/internal/primitives"
	"github.com/comalice/scxmlrun/internal/wire"
)

func TestJSONRoundTrip(t *testing.T) {
	env := wire.Envelope{Name: "user.login", Target: "#_scxml_abc", Data: "payload", Origin: "s1", SendID: "42"}
	body, err := env.ToJSON()
	require.NoError(t, err)

	got, err := wire.FromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, env.Name, got.Name)
	assert.Equal(t, env.Target, got.Target)
	assert.Equal(t, env.Origin, got.Origin)
	assert.Equal(t, env.SendID, got.SendID)
}

func TestXMLRoundTrip(t *testing.T) {
	env := wire.Envelope{Name: "timer.tick", Origin: "s1"}
	body, err := env.ToXML()
	require.NoError(t, err)

	got, err := wire.FromXML(body)
	require.NoError(t, err)
	assert.Equal(t, env.Name, got.Name)
	assert.Equal(t, env.Origin, got.Origin)
}

func TestToEventSplitsDottedName(t *testing.T) {
	env := wire.Envelope{Name: "error.execution.type", Data: 7}
	evt := env.ToEvent()
	assert.Equal(t, []string{"error", "execution", "type"}, evt.Name)
	assert.Equal(t, primitives.EventExternal, evt.Kind)
	assert.Equal(t, 7, evt.Data)
}

func TestFromEventJoinsName(t *testing.T) {
	evt := primitives.NewEvent("done.state.work", nil)
	env := wire.FromEvent(evt)
	assert.Equal(t, "done.state.work", env.Name)
}
