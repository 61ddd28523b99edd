package dispatch

import (
	"errors"
	"strings"
	"testing"
	"time"

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

type fakeScope struct{ sc domain.Scope }

func (f *fakeScope) Current() domain.Scope { return f.sc }

type fakeSelection struct{ ids []string }

func (f *fakeSelection) Current() []string { return f.ids }

type fakeRegistry struct {
	recs  map[string]domain.ClientRecord
	logic *domain.ClientRecord
}

func (f *fakeRegistry) Get(id string) (domain.ClientRecord, bool) {
	rec, ok := f.recs[id]
	return rec, ok
}

func (f *fakeRegistry) Logic() *domain.ClientRecord { return f.logic }

type fixture struct {
	svc    *Service
	sender *fakeSender
	scope  *fakeScope
	sel    *fakeSelection
	reg    *fakeRegistry
	bus    *eventbus.RecordingBus
}

func newFixture() *fixture {
	f := &fixture{
		sender: &fakeSender{},
		scope: &fakeScope{sc: domain.Scope{
			Channel:  "lab",
			RoomID:   "Waiting#1",
			RoomName: "Waiting#1",
			RoomType: domain.RoomWaiting,
		}},
		sel: &fakeSelection{},
		reg: &fakeRegistry{recs: map[string]domain.ClientRecord{
			"p1":     {ID: "p1", SID: "s1", Kind: domain.KindPlayer},
			"p2":     {ID: "p2", SID: "s2", Kind: domain.KindPlayer},
			"bot1":   {ID: "bot1", SID: "s3", Kind: domain.KindBot},
			"adm1":   {ID: "adm1", SID: "s4", Kind: domain.KindAdmin},
			"logicX": {ID: "logicX", Kind: domain.KindLogic},
		}},
		bus: &eventbus.RecordingBus{},
	}
	f.reg.logic = &domain.ClientRecord{ID: "logicX", Kind: domain.KindLogic}
	f.svc = NewService(f.bus, f.sender, f.scope, f.sel, f.reg, token.New())
	return f
}

func (f *fixture) warnings() []string {
	var out []string
	for _, e := range f.bus.ByType(domain.EventAlert) {
		a := e.(domain.AlertEvent)
		if a.Level == domain.AlertWarning {
			out = append(out, a.Message)
		}
	}
	return out
}

func TestRoomCommandEnvelope(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.sel.ids = []string{"p1"}

	require.NoError(t, f.svc.SendRoomCommand(RoomStart, false))
	require.Len(t, f.sender.envs, 1)

	env := f.sender.envs[0]
	require.Equal(t, protocol.TargetServerCommand, env.Target)
	require.Equal(t, protocol.CmdRoomCommand, env.Text)
	require.Equal(t, "START", env.Data["type"])
	require.Equal(t, "Waiting#1", env.Data["roomId"])
	require.Equal(t, false, env.Data["doLogic"])
	require.Equal(t, []string{"p1"}, env.Data["clients"])
	require.Equal(t, false, env.Data["force"])
}

func TestRoomCommandEmptySelectionIsNoOp(t *testing.T) {
	t.Parallel()
	f := newFixture()

	require.NoError(t, f.svc.SendRoomCommand(RoomStart, false))

	require.Empty(t, f.sender.envs, "Nothing selected, nothing on the wire")
	require.Empty(t, f.warnings(), "An empty selection is not an error")
}

func TestRoomCommandExtractsLogicIntoFlag(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.sel.ids = []string{"logicX", "p1", "p2"}

	require.NoError(t, f.svc.SendRoomCommand(RoomPause, true))
	require.Len(t, f.sender.envs, 1)

	env := f.sender.envs[0]
	require.Equal(t, true, env.Data["doLogic"], "Selected logic client becomes the doLogic flag")
	require.Equal(t, []string{"p1", "p2"}, env.Data["clients"], "Logic id must not appear among targets")
	require.Equal(t, true, env.Data["force"])
}

func TestRoomCommandWithoutRoomWarns(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.scope.sc = domain.Scope{Channel: "lab"}
	f.sel.ids = []string{"p1"}

	require.NoError(t, f.svc.SendRoomCommand(RoomStop, false))

	require.Empty(t, f.sender.envs)
	require.NotEmpty(t, f.warnings())
}

func TestWaitRoomDispatchCarriesOpts(t *testing.T) {
	t.Parallel()
	f := newFixture()

	require.NoError(t, f.svc.SendWaitRoomCommand(WaitDispatch, DispatchOpts{
		NumberOfGames:   2,
		ChosenTreatment: "treatment_rotate",
	}))
	require.Len(t, f.sender.envs, 1)

	env := f.sender.envs[0]
	require.Equal(t, protocol.CmdWaitRoomCommand, env.Text)
	require.Equal(t, "DISPATCH", env.Data["type"])
	require.Equal(t, 2, env.Data["numberOfGames"])
	require.Equal(t, "treatment_rotate", env.Data["chosenTreatment"])
	require.NotContains(t, env.Data, "groupSize", "Zero options are left to server defaults")
}

func TestWaitRoomOpenHasNoOpts(t *testing.T) {
	t.Parallel()
	f := newFixture()

	require.NoError(t, f.svc.SendWaitRoomCommand(WaitOpen, DispatchOpts{NumberOfGames: 5}))
	require.Len(t, f.sender.envs, 1)

	env := f.sender.envs[0]
	require.Equal(t, "OPEN", env.Data["type"])
	require.NotContains(t, env.Data, "numberOfGames", "Sizing options only apply to DISPATCH")
}

func TestRedirectValidation(t *testing.T) {
	t.Parallel()
	f := newFixture()

	require.NoError(t, f.svc.SendRedirect("", []string{"p1"}))
	require.NoError(t, f.svc.SendRedirect("https://example.com/done", nil))

	require.Empty(t, f.sender.envs, "Invalid redirects must not reach the wire")
	require.Len(t, f.warnings(), 2)

	require.NoError(t, f.svc.SendRedirect("https://example.com/done", []string{"p1", "p2"}))
	require.Len(t, f.sender.envs, 1)
	env := f.sender.envs[0]
	require.Equal(t, protocol.CmdRedirect, env.Text)
	require.Equal(t, "https://example.com/done", env.Data["uri"])
	require.Equal(t, []string{"p1", "p2"}, env.Data["clients"])
}

func TestDisconnectEligibility(t *testing.T) {
	t.Parallel()
	f := newFixture()

	require.NoError(t, f.svc.SendDisconnect([]string{"p1", "bot1", "adm1", "logicX", "ghost"}))

	require.Len(t, f.sender.envs, 2, "Only players and bots are kickable")
	require.Equal(t, "p1", f.sender.envs[0].Data["id"])
	require.Equal(t, "s1", f.sender.envs[0].Data["sid"])
	require.Equal(t, "bot1", f.sender.envs[1].Data["id"])

	require.Len(t, f.warnings(), 1, "Unknown id should warn, ineligible kinds are skipped silently")
	require.Contains(t, f.warnings()[0], "ghost")
}

func TestChatInviteFiltersToPlayers(t *testing.T) {
	t.Parallel()
	f := newFixture()

	session, err := f.svc.SendChatInvite([]string{"p1", "adm1", "bot1"}, false, "hello")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(session, "CHAT_"), "Session token should be a CHAT_ event name")

	require.Len(t, f.sender.envs, 1)
	env := f.sender.envs[0]
	require.Equal(t, protocol.CmdRemoteSetup, env.Text)
	require.Equal(t, []string{"p1"}, env.Data["clients"])
	require.Equal(t, session, env.Data["chatEvent"])
	require.Equal(t, "hello", env.Data["initialMsg"])
}

func TestChatInviteIncludeNonPlayers(t *testing.T) {
	t.Parallel()
	f := newFixture()

	_, err := f.svc.SendChatInvite([]string{"p1", "adm1"}, true, "")
	require.NoError(t, err)

	env := f.sender.envs[0]
	require.Equal(t, []string{"p1", "adm1"}, env.Data["clients"])
	require.NotContains(t, env.Data, "initialMsg")
}

func TestChatInviteNoEligibleTargets(t *testing.T) {
	t.Parallel()
	f := newFixture()

	session, err := f.svc.SendChatInvite([]string{"adm1"}, false, "")
	require.NoError(t, err)
	require.Empty(t, session)
	require.Empty(t, f.sender.envs)
	require.NotEmpty(t, f.warnings())
}

func TestExportCorrelation(t *testing.T) {
	t.Parallel()
	f := newFixture()

	tok, err := f.svc.SendExportRequest(ExportData, "", "")
	require.NoError(t, err)
	require.NotZero(t, tok)
	require.True(t, f.svc.ExportPending())

	env := f.sender.envs[0]
	require.Equal(t, protocol.CmdExport, env.Text)
	require.Equal(t, "DATA", env.Data["type"])
	require.Equal(t, tok, env.Data["idx"])

	require.False(t, f.svc.CompleteExport(tok+1), "Mismatched token is stale cross-talk")
	require.True(t, f.svc.ExportPending(), "Stale completion must not clear the pending request")

	require.True(t, f.svc.CompleteExport(tok))
	require.False(t, f.svc.ExportPending())
	require.False(t, f.svc.CompleteExport(tok), "A completed export cannot complete twice")
}

func TestExportTimeoutReenablesControls(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.svc.ExportTimeout = 20 * time.Millisecond

	tok, err := f.svc.SendExportRequest(ExportLogs, "", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return !f.svc.ExportPending()
	}, time.Second, 5*time.Millisecond, "Timeout should clear the pending export")

	require.False(t, f.svc.CompleteExport(tok), "Completion after timeout is ignored")

	events := f.bus.ByType(domain.EventExportCompleted)
	require.NotEmpty(t, events)
	done := events[len(events)-1].(domain.ExportCompletedEvent)
	require.True(t, done.TimedOut)
	require.Equal(t, tok, done.Token)
}

func TestSendFailurePropagates(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.sender.err = errors.New("socket closed")
	f.sel.ids = []string{"p1"}

	err := f.svc.SendRoomCommand(RoomStart, false)
	require.Error(t, err)
	require.NotEmpty(t, f.bus.ByType(domain.EventError))
}

func TestGotoStep(t *testing.T) {
	t.Parallel()
	f := newFixture()

	require.NoError(t, f.svc.GotoStep([]string{"p1"}, domain.GameStage{Stage: 2, Step: 1, Round: 3}))
	env := f.sender.envs[0]
	require.Equal(t, protocol.CmdGameCommand, env.Text)
	require.Equal(t, "goto_step", env.Data["type"])
	require.Equal(t, "2.1-3", env.Data["stage"])
}

func TestCustomMsg(t *testing.T) {
	t.Parallel()
	f := newFixture()

	require.NoError(t, f.svc.SendCustomMsg([]string{"p1", "p2"}, "WIN", "round over", map[string]any{"amount": 10}))
	require.Len(t, f.sender.envs, 1)

	env := f.sender.envs[0]
	require.Equal(t, protocol.TargetData, env.Target)
	require.Equal(t, []string{"p1", "p2"}, env.To)
	require.Equal(t, "win", env.Action, "Actions are normalized to lower case")
	require.Equal(t, protocol.CommandKind("round over"), env.Text)
	require.Equal(t, 10, env.Data["amount"])
}

func TestCustomMsgValidation(t *testing.T) {
	t.Parallel()
	f := newFixture()

	require.NoError(t, f.svc.SendCustomMsg([]string{"p1"}, "  ", "", nil))
	require.NoError(t, f.svc.SendCustomMsg(nil, "win", "", nil))

	require.Empty(t, f.sender.envs, "Invalid custom messages must stay off the wire")
	require.Len(t, f.warnings(), 2)
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()
	f := newFixture()

	require.NoError(t, f.svc.SendUpdateSettings(nil), "Empty update is a no-op")
	require.Empty(t, f.sender.envs)

	require.NoError(t, f.svc.SendUpdateSettings(map[string]any{"name": "Monitor"}))
	require.Len(t, f.sender.envs, 1)
	env := f.sender.envs[0]
	require.Equal(t, protocol.CmdUpdateSettings, env.Text)
	require.Equal(t, "Monitor", env.Data["name"])
}

func TestQueriesCarryScope(t *testing.T) {
	t.Parallel()
	f := newFixture()

	require.NoError(t, f.svc.QueryRooms())
	require.NoError(t, f.svc.QueryClients())

	require.Len(t, f.sender.envs, 2)
	require.Equal(t, "lab", f.sender.envs[0].Data["channel"])
	require.Equal(t, "Waiting#1", f.sender.envs[1].Data["roomId"])

	f.scope.sc = domain.Scope{}
	f.sender.envs = nil
	require.NoError(t, f.svc.QueryRooms())
	require.NoError(t, f.svc.QueryClients())
	require.Empty(t, f.sender.envs, "Scoped queries without a scope are no-ops")
}
