package coordinator

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"gamemon/internal/domain"
	"gamemon/internal/eventbus"
	"gamemon/internal/protocol"
	"gamemon/internal/token"
)

type fakeSender struct {
	envs []protocol.Envelope
	err  error
}

func (f *fakeSender) Send(env protocol.Envelope) error {
	if f.err != nil {
		return f.err
	}
	f.envs = append(f.envs, env)
	return nil
}

func (f *fakeSender) queries() []string {
	var out []string
	for _, env := range f.envs {
		if env.Text == protocol.CmdInfo {
			out = append(out, env.Data["type"].(string))
		}
	}
	return out
}

func newFixture() (*Coordinator, *fakeSender, *eventbus.RecordingBus) {
	bus := &eventbus.RecordingBus{}
	sender := &fakeSender{}
	return New(bus, sender, token.New()), sender, bus
}

func clientsPayload() json.RawMessage {
	return json.RawMessage(`{
		"logic":   {"id": "logicX", "clientType": "logic"},
		"clients": [
			{"id": "p1", "clientType": "player"},
			{"id": "p2", "clientType": "player"},
			{"id": "logicX", "clientType": "logic"}
		],
		"nClients": 3, "nPlayers": 2, "nAdmins": 0
	}`)
}

func TestStaleChannelReplyIgnored(t *testing.T) {
	t.Parallel()
	c, _, bus := newFixture()

	// No query outstanding; this reply belongs to nobody.
	c.HandleInbound(protocol.EvChannels, json.RawMessage(`{"lab":{}}`))

	require.Empty(t, bus.ByType(domain.EventChannelsUpdated), "Unsolicited listing must be dropped")
	require.Empty(t, c.Scope.Current().Channel)
}

func TestSingleChannelAutoSelected(t *testing.T) {
	t.Parallel()
	c, sender, bus := newFixture()

	c.RefreshChannels()
	c.HandleInbound(protocol.EvChannels, json.RawMessage(`{"lab":{"gameName":"ultimatum"}}`))

	require.Len(t, bus.ByType(domain.EventChannelsUpdated), 1)
	require.Equal(t, "lab", c.Scope.Current().Channel, "A lone channel needs no choosing")
	require.Equal(t, []string{"CHANNELS", "ROOMS"}, sender.queries(), "Auto-selection should query the channel's rooms")
}

func TestMultipleChannelsNotAutoSelected(t *testing.T) {
	t.Parallel()
	c, _, _ := newFixture()

	c.RefreshChannels()
	c.HandleInbound(protocol.EvChannels, json.RawMessage(`{"lab":{},"pilot":{}}`))

	require.Empty(t, c.Scope.Current().Channel, "With several channels the operator decides")
}

func TestClientsAppliedOnlyWhenWaiting(t *testing.T) {
	t.Parallel()
	c, _, bus := newFixture()

	c.SelectChannel("lab")
	require.NoError(t, c.SelectRoom(domain.RoomInfo{ID: "Waiting#1", Type: domain.RoomWaiting}))

	c.HandleInbound(protocol.EvClients, clientsPayload())
	require.Equal(t, []string{"p1", "p2"}, c.Registry.IDs())

	events := bus.ByType(domain.EventClientsUpdated)
	require.Len(t, events, 1)
	require.Equal(t, "Waiting#1", events[0].(domain.ClientsUpdatedEvent).RoomID,
		"Listing must be attributed to the room it was queried for")

	// Reply for a query that was never issued: membership unchanged.
	c.HandleInbound(protocol.EvClients, json.RawMessage(`{"clients":[{"id":"intruder","clientType":"player"}]}`))
	require.Equal(t, []string{"p1", "p2"}, c.Registry.IDs(), "Stale reply for an abandoned query must not apply")
}

func TestRoomsReplyCarriesChannel(t *testing.T) {
	t.Parallel()
	c, _, bus := newFixture()

	c.SelectChannel("lab")
	c.HandleInbound(protocol.EvRooms, json.RawMessage(`[{"id":"Waiting#1","name":"Waiting#1","type":"Waiting"}]`))

	events := bus.ByType(domain.EventRoomsUpdated)
	require.Len(t, events, 1)
	ev := events[0].(domain.RoomsUpdatedEvent)
	require.Equal(t, "lab", ev.Channel)
	require.Len(t, ev.Rooms, 1)
	require.Equal(t, domain.RoomWaiting, ev.Rooms[0].Type)
}

func TestExportCompletionRouted(t *testing.T) {
	t.Parallel()
	c, _, _ := newFixture()

	tok, err := c.Dispatch.SendExportRequest("DATA", "", "")
	require.NoError(t, err)

	c.HandleInbound(protocol.EvExported, json.RawMessage(fmt.Sprintf(`{"idx": %d}`, tok+1)))
	require.True(t, c.Dispatch.ExportPending(), "Mismatched completion token is ignored")

	c.HandleInbound(protocol.EvExported, json.RawMessage(fmt.Sprintf(`{"idx": %d}`, tok)))
	require.False(t, c.Dispatch.ExportPending())
}

func TestFileListingsRoutedByKind(t *testing.T) {
	t.Parallel()
	c, _, bus := newFixture()

	payload := json.RawMessage(`{"files":[{"dir":"s1","file":"a.csv"}],"lastModified":10}`)
	c.HandleInbound(protocol.EvResults, payload)
	c.HandleInbound(protocol.EvLogs, json.RawMessage(`{"files":[{"dir":"logs","file":"srv.log"}],"lastModified":20}`))

	_, dataTotal := c.Files.Count()
	_, logTotal := c.Logs.Count()
	require.Equal(t, 1, dataTotal)
	require.Equal(t, 1, logTotal)

	// Same stamp again: no redraw, no event.
	c.HandleInbound(protocol.EvResults, payload)
	require.Len(t, bus.ByType(domain.EventFilesUpdated), 2)
}

func TestMalformedPayloadSurfacesError(t *testing.T) {
	t.Parallel()
	c, _, bus := newFixture()

	c.RefreshChannels()
	c.HandleInbound(protocol.EvChannels, json.RawMessage(`"not an object"`))

	require.Empty(t, bus.ByType(domain.EventChannelsUpdated))
	require.NotEmpty(t, bus.ByType(domain.EventError))
}

// Inbound listings land on the bus dispatch goroutine while the UI loop
// reads and toggles the same stores.
func TestConcurrentInboundAndReads(t *testing.T) {
	t.Parallel()
	c, _, _ := newFixture()

	c.SelectChannel("lab")
	require.NoError(t, c.SelectRoom(domain.RoomInfo{ID: "Waiting#1", Type: domain.RoomWaiting}))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < 200; i++ {
			c.RefreshClients()
			c.HandleInbound(protocol.EvClients, clientsPayload())
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			c.Selection.Current()
			c.Selection.BulkState()
			_ = c.Selection.Toggle("p1")
			c.Registry.IDs()
			c.Scope.Current()
		}
	}()
	wg.Wait()

	require.Equal(t, []string{"p1", "p2"}, c.Registry.IDs())
}

func TestSelectChannelQueriesRooms(t *testing.T) {
	t.Parallel()
	c, sender, _ := newFixture()

	c.SelectChannel("lab")
	require.Equal(t, []string{"ROOMS"}, sender.queries())

	require.NoError(t, c.SelectRoom(domain.RoomInfo{ID: "Game#2", Type: domain.RoomGame}))
	require.Equal(t, []string{"ROOMS", "CLIENTS"}, sender.queries())
}
