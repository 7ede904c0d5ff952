package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecs-league/draftboard/internal/board"
)

func TestDecodeClientRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{"join", JoinDraftRoom{LeagueName: "premier"}},
		{"draft", DraftPlayer{PlayerID: 7, TeamID: 3, LeagueName: "premier", PlayerName: "Alex Kim", Position: "st"}},
		{"remove", RemovePlayer{PlayerID: 7, TeamID: 3, LeagueName: "premier"}},
		{"position", UpdatePosition{PlayerID: 7, TeamID: 3, Position: "gk", LeagueName: "premier"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.msg)
			require.NoError(t, err)

			decoded, err := DecodeClient(data)
			require.NoError(t, err)
			assert.Equal(t, tc.msg, decoded)
		})
	}
}

func TestDecodeClientRejections(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"unknown type", `{"type":"start_timer","payload":{}}`, ErrUnknownType},
		{"not json", `{{{{`, ErrBadPayload},
		{"empty payload", `{"type":"join_draft_room"}`, ErrBadPayload},
		{"join without league", `{"type":"join_draft_room","payload":{}}`, ErrMissingField},
		{"draft without player", `{"type":"draft_player_enhanced","payload":{"team_id":3,"league_name":"premier"}}`, ErrMissingField},
		{"draft without team", `{"type":"draft_player_enhanced","payload":{"player_id":7,"league_name":"premier"}}`, ErrMissingField},
		{"position without position", `{"type":"update_player_position","payload":{"player_id":7,"team_id":3,"league_name":"premier"}}`, ErrMissingField},
		{"server event on client path", `{"type":"player_drafted_enhanced","payload":{}}`, ErrUnknownType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeClient([]byte(tc.data))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestDecodeServerRoundTrip(t *testing.T) {
	player := board.Player{ID: 7, Name: "Alex Kim", CareerGoals: 12}

	cases := []struct {
		name string
		msg  Message
	}{
		{"joined", JoinedRoom{Room: "draft_premier", League: "premier"}},
		{"drafted", PlayerDrafted{Player: player, TeamID: 3, TeamName: "Maroon", Position: board.PosST, LeagueName: "premier", Seq: 4}},
		{"removed", PlayerRemoved{Player: player, TeamID: 3, TeamName: "Maroon", LeagueName: "premier", Seq: 5}},
		{"moved", PositionUpdated{Player: player, TeamID: 3, TeamName: "Maroon", Position: board.PosGK, LeagueName: "premier", Seq: 6}},
		{"error", DraftError{Message: "Player already on team"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.msg)
			require.NoError(t, err)

			decoded, err := DecodeServer(data)
			require.NoError(t, err)
			assert.Equal(t, tc.msg, decoded)
		})
	}
}

func TestDecodeServerSnapshot(t *testing.T) {
	state := board.NewState(board.Rules{})
	state.Players[7] = board.Player{ID: 7, Name: "Alex Kim"}
	state.Teams[3] = board.Team{ID: 3, Name: "Maroon"}
	state.Assignments[7] = []board.Assignment{{TeamID: 3, Position: board.PosBench}}
	state.Seq[7] = 2

	data, err := Encode(BoardSnapshot{Version: 9, LeagueName: "premier", State: state})
	require.NoError(t, err)

	decoded, err := DecodeServer(data)
	require.NoError(t, err)

	snap, ok := decoded.(BoardSnapshot)
	require.True(t, ok)
	assert.Equal(t, 9, snap.Version)
	assert.Equal(t, "Alex Kim", snap.State.Players[7].Name)
	assert.Equal(t, board.PosBench, snap.State.Assignments[7][0].Position)
	assert.Equal(t, 2, snap.State.Seq[7])
}

func TestDecodeServerRejectsMissingPlayer(t *testing.T) {
	_, err := DecodeServer([]byte(`{"type":"player_drafted_enhanced","payload":{"team_id":3}}`))
	assert.ErrorIs(t, err, ErrMissingField)
}
