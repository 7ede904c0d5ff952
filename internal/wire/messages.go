// Package wire defines the socket protocol between the draft server and
// its clients. Every message travels as an Envelope whose payload shape
// is fixed by the type tag; Decode validates the payload at the boundary
// so the rest of the code never touches raw JSON.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ecs-league/draftboard/internal/board"
)

var ErrUnknownType = errors.New("unknown message type")
var ErrMissingField = errors.New("missing required field")
var ErrBadPayload = errors.New("malformed payload")

type MessageType string

const (
	// Client -> server.
	TypeJoinDraftRoom  MessageType = "join_draft_room"
	TypeDraftPlayer    MessageType = "draft_player_enhanced"
	TypeRemovePlayer   MessageType = "remove_player_enhanced"
	TypeUpdatePosition MessageType = "update_player_position"

	// Server -> client.
	TypeJoinedRoom      MessageType = "joined_room"
	TypeBoardSnapshot   MessageType = "board_snapshot"
	TypePlayerDrafted   MessageType = "player_drafted_enhanced"
	TypePlayerRemoved   MessageType = "player_removed_enhanced"
	TypePositionUpdated MessageType = "player_position_updated"
	TypeDraftError      MessageType = "draft_error"
)

type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is implemented by every payload struct in this package.
type Message interface {
	MessageType() MessageType
}

type JoinDraftRoom struct {
	LeagueName string `json:"league_name"`
}

type DraftPlayer struct {
	PlayerID   int    `json:"player_id"`
	TeamID     int    `json:"team_id"`
	LeagueName string `json:"league_name"`
	PlayerName string `json:"player_name,omitempty"`
	Position   string `json:"position,omitempty"`
}

type RemovePlayer struct {
	PlayerID   int    `json:"player_id"`
	TeamID     int    `json:"team_id"`
	LeagueName string `json:"league_name"`
}

type UpdatePosition struct {
	PlayerID   int    `json:"player_id"`
	TeamID     int    `json:"team_id"`
	Position   string `json:"position"`
	LeagueName string `json:"league_name"`
}

type JoinedRoom struct {
	Room   string `json:"room"`
	League string `json:"league"`
}

// BoardSnapshot carries the full board on join and on re-sync after a
// reconnect.
type BoardSnapshot struct {
	Version    int         `json:"version"`
	LeagueName string      `json:"league_name"`
	State      board.State `json:"state"`
}

type PlayerDrafted struct {
	Player     board.Player   `json:"player"`
	TeamID     int            `json:"team_id"`
	TeamName   string         `json:"team_name"`
	Position   board.Position `json:"position"`
	LeagueName string         `json:"league_name"`
	Seq        int            `json:"seq"`
}

type PlayerRemoved struct {
	Player     board.Player `json:"player"`
	TeamID     int          `json:"team_id"`
	TeamName   string       `json:"team_name"`
	LeagueName string       `json:"league_name"`
	Seq        int          `json:"seq"`
}

type PositionUpdated struct {
	Player     board.Player   `json:"player"`
	TeamID     int            `json:"team_id"`
	TeamName   string         `json:"team_name"`
	Position   board.Position `json:"position"`
	LeagueName string         `json:"league_name"`
	Seq        int            `json:"seq"`
}

type DraftError struct {
	Message string `json:"message"`
}

func (JoinDraftRoom) MessageType() MessageType   { return TypeJoinDraftRoom }
func (DraftPlayer) MessageType() MessageType     { return TypeDraftPlayer }
func (RemovePlayer) MessageType() MessageType    { return TypeRemovePlayer }
func (UpdatePosition) MessageType() MessageType  { return TypeUpdatePosition }
func (JoinedRoom) MessageType() MessageType      { return TypeJoinedRoom }
func (BoardSnapshot) MessageType() MessageType   { return TypeBoardSnapshot }
func (PlayerDrafted) MessageType() MessageType   { return TypePlayerDrafted }
func (PlayerRemoved) MessageType() MessageType   { return TypePlayerRemoved }
func (PositionUpdated) MessageType() MessageType { return TypePositionUpdated }
func (DraftError) MessageType() MessageType      { return TypeDraftError }

// Encode wraps msg in an Envelope and marshals it.
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msg.MessageType(), Payload: payload})
}

// DecodeClient parses a message sent by a client. Unknown types and
// payloads missing required fields are rejected here so handlers only
// ever see well-formed commands.
func DecodeClient(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch env.Type {
	case TypeJoinDraftRoom:
		var m JoinDraftRoom
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		if m.LeagueName == "" {
			return nil, fmt.Errorf("%w: league_name", ErrMissingField)
		}
		return m, nil

	case TypeDraftPlayer:
		var m DraftPlayer
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		if err := requireIDs(m.PlayerID, m.TeamID, m.LeagueName); err != nil {
			return nil, err
		}
		return m, nil

	case TypeRemovePlayer:
		var m RemovePlayer
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		if err := requireIDs(m.PlayerID, m.TeamID, m.LeagueName); err != nil {
			return nil, err
		}
		return m, nil

	case TypeUpdatePosition:
		var m UpdatePosition
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		if err := requireIDs(m.PlayerID, m.TeamID, m.LeagueName); err != nil {
			return nil, err
		}
		if m.Position == "" {
			return nil, fmt.Errorf("%w: position", ErrMissingField)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// DecodeServer parses a message sent by the server; used by the client
// library's read loop.
func DecodeServer(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch env.Type {
	case TypeJoinedRoom:
		var m JoinedRoom
		return m, unmarshalPayload(env.Payload, &m)
	case TypeBoardSnapshot:
		var m BoardSnapshot
		return m, unmarshalPayload(env.Payload, &m)
	case TypePlayerDrafted:
		var m PlayerDrafted
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		if m.Player.ID == 0 {
			return nil, fmt.Errorf("%w: player.id", ErrMissingField)
		}
		return m, nil
	case TypePlayerRemoved:
		var m PlayerRemoved
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		if m.Player.ID == 0 {
			return nil, fmt.Errorf("%w: player.id", ErrMissingField)
		}
		return m, nil
	case TypePositionUpdated:
		var m PositionUpdated
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		if m.Player.ID == 0 {
			return nil, fmt.Errorf("%w: player.id", ErrMissingField)
		}
		return m, nil
	case TypeDraftError:
		var m DraftError
		return m, unmarshalPayload(env.Payload, &m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty payload", ErrBadPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

func requireIDs(playerID, teamID int, league string) error {
	if playerID == 0 {
		return fmt.Errorf("%w: player_id", ErrMissingField)
	}
	if teamID == 0 {
		return fmt.Errorf("%w: team_id", ErrMissingField)
	}
	if league == "" {
		return fmt.Errorf("%w: league_name", ErrMissingField)
	}
	return nil
}
