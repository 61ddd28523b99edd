package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisconnectable(t *testing.T) {
	t.Parallel()
	require.True(t, KindPlayer.Disconnectable())
	require.True(t, KindBot.Disconnectable())
	require.False(t, KindAdmin.Disconnectable())
	require.False(t, KindLogic.Disconnectable())
}

func TestStageHash(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0.0-0", GameStage{}.Hash())
	require.Equal(t, "3.2-11", GameStage{Stage: 3, Step: 2, Round: 11}.Hash())
}

func TestScopePredicates(t *testing.T) {
	t.Parallel()
	require.False(t, Scope{}.HasChannel())
	require.True(t, Scope{Channel: "lab"}.HasChannel())
	require.False(t, Scope{Channel: "lab"}.HasRoom())
	require.False(t, Scope{RoomID: "r1"}.HasRoom(), "A room without a channel is meaningless")
	require.True(t, Scope{Channel: "lab", RoomID: "r1"}.HasRoom())
}

func TestFileKindOf(t *testing.T) {
	t.Parallel()
	require.Equal(t, FileCSV, FileKindOf("data.csv"))
	require.Equal(t, FileJSON, FileKindOf("meta.json"))
	require.Equal(t, FileJSON, FileKindOf("events.ndjson"))
	require.Equal(t, FileGeneric, FileKindOf("readme.txt"))
	require.Equal(t, FileGeneric, FileKindOf("Makefile"))
	require.Equal(t, FileGeneric, FileKindOf(".csv"), "A bare dotfile has no extension")
}

func TestClientRecordWireTags(t *testing.T) {
	t.Parallel()
	var rec ClientRecord
	err := json.Unmarshal([]byte(`{
		"id": "p1", "sid": "s1", "clientType": "player",
		"stage": {"stage": 1, "step": 2, "round": 3},
		"stageLevel": "DONE", "paused": true
	}`), &rec)
	require.NoError(t, err)
	require.Equal(t, "p1", rec.ID)
	require.Equal(t, KindPlayer, rec.Kind)
	require.Equal(t, "1.2-3", rec.Stage.Hash())
	require.True(t, rec.Paused)
}

func TestFileNodeKey(t *testing.T) {
	t.Parallel()
	f := FileNode{Dir: "session1", Name: "a.csv"}
	require.Equal(t, "session1/a.csv", f.Key())
}
