package board

import (
	"errors"
	"sort"
)

var ErrUnknownPlayer = errors.New("unknown player")
var ErrUnknownTeam = errors.New("unknown team")
var ErrNotOnTeam = errors.New("player not on team")
var ErrInvalidPosition = errors.New("invalid position")
var ErrAlreadyAssigned = errors.New("player already assigned")
var ErrUnsupportedCommand = errors.New("unsupported command")

// Player is the immutable profile side of a board entry; only its
// assignment changes during a draft.
type Player struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	ProfilePictureURL string   `json:"profile_picture_url,omitempty"`
	FavoritePosition  string   `json:"favorite_position,omitempty"`
	OtherPositions    string   `json:"other_positions,omitempty"`
	CareerGoals       int      `json:"career_goals"`
	CareerAssists     int      `json:"career_assists"`
	CareerYellowCards int      `json:"career_yellow_cards"`
	CareerRedCards    int      `json:"career_red_cards"`
}

type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Assignment places a player on a team at a pitch position.
type Assignment struct {
	TeamID   int      `json:"team_id"`
	Position Position `json:"position"`
}

type Rules struct {
	// AllowMultiTeam permits a player to hold assignments on more than
	// one team at once (the ECS FC carve-out). Off by default.
	AllowMultiTeam bool `json:"allow_multi_team"`
}

// State is the authoritative picture of one league's board. Available
// pool and per-slot counts are always derived from Assignments, never
// tracked separately.
type State struct {
	Players     map[int]Player       `json:"players"`
	Teams       map[int]Team         `json:"teams"`
	Assignments map[int][]Assignment `json:"assignments"`
	Seq         map[int]int          `json:"seq"`
	Rules       Rules                `json:"rules"`
}

func NewState(rules Rules) State {
	return State{
		Players:     map[int]Player{},
		Teams:       map[int]Team{},
		Assignments: map[int][]Assignment{},
		Seq:         map[int]int{},
		Rules:       rules,
	}
}

type CommandType string

const (
	CmdDraftPlayer    CommandType = "DraftPlayer"
	CmdRemovePlayer   CommandType = "RemovePlayer"
	CmdUpdatePosition CommandType = "UpdatePosition"
)

type Command struct {
	Type     CommandType
	PlayerID int
	TeamID   int
	Position Position
}

type EventType string

const (
	EvtPlayerDrafted   EventType = "PlayerDrafted"
	EvtPlayerRemoved   EventType = "PlayerRemoved"
	EvtPositionUpdated EventType = "PositionUpdated"
)

// Event is an accepted state change. Seq is the player's monotonic
// counter after the change; consumers drop events with a Seq at or
// below the one they last applied for that player.
type Event struct {
	Type     EventType
	PlayerID int
	TeamID   int
	Position Position
	Seq      int
}

// Apply validates cmd against s and returns the events plus the next
// state. s is never mutated; callers may keep it.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if _, ok := s.Players[cmd.PlayerID]; !ok {
		return nil, s, ErrUnknownPlayer
	}

	switch cmd.Type {
	case CmdDraftPlayer:
		if _, ok := s.Teams[cmd.TeamID]; !ok {
			return nil, s, ErrUnknownTeam
		}
		pos := cmd.Position
		if pos == "" {
			pos = PosBench
		}
		if !validPositions[pos] {
			return nil, s, ErrInvalidPosition
		}

		current := s.Assignments[cmd.PlayerID]
		onOther := false
		for _, a := range current {
			if a.TeamID != cmd.TeamID {
				onOther = true
			}
		}
		if onOther && !s.Rules.AllowMultiTeam {
			return nil, s, ErrAlreadyAssigned
		}

		newState := cloneForWrite(s)
		next := newState.Assignments[cmd.PlayerID][:0:0]
		for _, a := range newState.Assignments[cmd.PlayerID] {
			if a.TeamID != cmd.TeamID {
				next = append(next, a)
			}
		}
		next = append(next, Assignment{TeamID: cmd.TeamID, Position: pos})
		newState.Assignments[cmd.PlayerID] = next
		newState.Seq[cmd.PlayerID]++

		events := []Event{{
			Type:     EvtPlayerDrafted,
			PlayerID: cmd.PlayerID,
			TeamID:   cmd.TeamID,
			Position: pos,
			Seq:      newState.Seq[cmd.PlayerID],
		}}
		return events, newState, nil

	case CmdRemovePlayer:
		if _, ok := s.Teams[cmd.TeamID]; !ok {
			return nil, s, ErrUnknownTeam
		}
		if !onTeam(s, cmd.PlayerID, cmd.TeamID) {
			return nil, s, ErrNotOnTeam
		}

		newState := cloneForWrite(s)
		kept := newState.Assignments[cmd.PlayerID][:0:0]
		for _, a := range newState.Assignments[cmd.PlayerID] {
			if a.TeamID != cmd.TeamID {
				kept = append(kept, a)
			}
		}
		if len(kept) == 0 {
			delete(newState.Assignments, cmd.PlayerID)
		} else {
			newState.Assignments[cmd.PlayerID] = kept
		}
		newState.Seq[cmd.PlayerID]++

		events := []Event{{
			Type:     EvtPlayerRemoved,
			PlayerID: cmd.PlayerID,
			TeamID:   cmd.TeamID,
			Seq:      newState.Seq[cmd.PlayerID],
		}}
		return events, newState, nil

	case CmdUpdatePosition:
		if _, ok := s.Teams[cmd.TeamID]; !ok {
			return nil, s, ErrUnknownTeam
		}
		if !validPositions[cmd.Position] {
			return nil, s, ErrInvalidPosition
		}
		if !onTeam(s, cmd.PlayerID, cmd.TeamID) {
			return nil, s, ErrNotOnTeam
		}

		newState := cloneForWrite(s)
		updated := make([]Assignment, len(newState.Assignments[cmd.PlayerID]))
		copy(updated, newState.Assignments[cmd.PlayerID])
		for i, a := range updated {
			if a.TeamID == cmd.TeamID {
				updated[i].Position = cmd.Position
			}
		}
		newState.Assignments[cmd.PlayerID] = updated
		newState.Seq[cmd.PlayerID]++

		events := []Event{{
			Type:     EvtPositionUpdated,
			PlayerID: cmd.PlayerID,
			TeamID:   cmd.TeamID,
			Position: cmd.Position,
			Seq:      newState.Seq[cmd.PlayerID],
		}}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func onTeam(s State, playerID, teamID int) bool {
	for _, a := range s.Assignments[playerID] {
		if a.TeamID == teamID {
			return true
		}
	}
	return false
}

// cloneForWrite copies the mutable maps so Apply can build the next
// state without touching the caller's.
func cloneForWrite(s State) State {
	out := s
	out.Assignments = make(map[int][]Assignment, len(s.Assignments))
	for id, as := range s.Assignments {
		out.Assignments[id] = as
	}
	out.Seq = make(map[int]int, len(s.Seq))
	for id, n := range s.Seq {
		out.Seq[id] = n
	}
	return out
}

// Available returns the players holding no assignment, sorted by name
// for stable rendering.
func Available(s State) []Player {
	out := make([]Player, 0, len(s.Players))
	for id, p := range s.Players {
		if len(s.Assignments[id]) == 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TeamCount derives the roster size of a team by scanning assignments.
func TeamCount(s State, teamID int) int {
	n := 0
	for _, as := range s.Assignments {
		for _, a := range as {
			if a.TeamID == teamID {
				n++
			}
		}
	}
	return n
}

// SlotCount derives the occupancy of one (team, position) slot.
func SlotCount(s State, teamID int, pos Position) int {
	n := 0
	for _, as := range s.Assignments {
		for _, a := range as {
			if a.TeamID == teamID && a.Position == pos {
				n++
			}
		}
	}
	return n
}

// AssignmentsOf returns the player's current assignments, nil when the
// player sits in the available pool.
func AssignmentsOf(s State, playerID int) []Assignment {
	return s.Assignments[playerID]
}
