package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecs-league/draftboard/internal/board"
	"github.com/ecs-league/draftboard/internal/room"
	"github.com/ecs-league/draftboard/internal/store"
	"github.com/ecs-league/draftboard/internal/wire"
)

const commandTimeout = 3 * time.Second

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := getBody(r, &req); err != nil {
		sendResponse(w, httpResp{Status: http.StatusBadRequest, IsError: true, Error: err.Error()})
		return
	}

	if pass, ok := a.Creds[req.Username]; !ok || pass != req.Password {
		sendResponse(w, httpResp{Status: http.StatusUnauthorized, IsError: true, Error: "invalid credentials"})
		return
	}

	token, err := a.Auth.IssueToken(r.Context(), req.Username)
	if err != nil {
		a.Log.Error("issue token", zap.Error(err))
		sendResponse(w, httpResp{Status: http.StatusInternalServerError, IsError: true, Error: "could not issue token"})
		return
	}
	sendResponse(w, httpResp{Status: http.StatusOK, Data: map[string]string{"token": token}})
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(ctxKeyToken).(string)
	if token != "" {
		if err := a.Auth.RevokeToken(r.Context(), token); err != nil {
			a.Log.Warn("revoke token", zap.Error(err))
		}
	}
	sendResponse(w, httpResp{Status: http.StatusOK, Data: map[string]string{"message": "logged out"}})
}

// GetBoard serves the full snapshot: initial page state and the re-sync
// target after a lost connection.
func (a *API) GetBoard(w http.ResponseWriter, r *http.Request) {
	league := chi.URLParam(r, "league")

	rm, err := a.Hub.Ensure(r.Context(), league, a.Boards)
	if err != nil {
		sendResponse(w, httpResp{Status: http.StatusNotFound, IsError: true, Error: err.Error()})
		return
	}

	reply := make(chan room.View, 1)
	rm.Inbox() <- room.GetState{Reply: reply}
	select {
	case view := <-reply:
		sendResponse(w, httpResp{Status: http.StatusOK, Data: wire.BoardSnapshot{
			Version:    view.Version,
			LeagueName: league,
			State:      view.State,
		}})
	case <-time.After(commandTimeout):
		sendResponse(w, httpResp{Status: http.StatusGatewayTimeout, IsError: true, Error: "room did not respond"})
	}
}

// DraftPlayer is the REST fallback for the draft_player_enhanced socket
// operation, used by clients with no live connection.
func (a *API) DraftPlayer(w http.ResponseWriter, r *http.Request) {
	var req wire.DraftPlayer
	if err := getBody(r, &req); err != nil {
		sendResponse(w, httpResp{Status: http.StatusBadRequest, IsError: true, Error: err.Error()})
		return
	}
	a.execCommand(w, r, board.Command{
		Type:     board.CmdDraftPlayer,
		PlayerID: req.PlayerID,
		TeamID:   req.TeamID,
		Position: board.Position(req.Position),
	})
}

func (a *API) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	var req wire.RemovePlayer
	if err := getBody(r, &req); err != nil {
		sendResponse(w, httpResp{Status: http.StatusBadRequest, IsError: true, Error: err.Error()})
		return
	}
	a.execCommand(w, r, board.Command{
		Type:     board.CmdRemovePlayer,
		PlayerID: req.PlayerID,
		TeamID:   req.TeamID,
	})
}

func (a *API) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	var req wire.UpdatePosition
	if err := getBody(r, &req); err != nil {
		sendResponse(w, httpResp{Status: http.StatusBadRequest, IsError: true, Error: err.Error()})
		return
	}
	a.execCommand(w, r, board.Command{
		Type:     board.CmdUpdatePosition,
		PlayerID: req.PlayerID,
		TeamID:   req.TeamID,
		Position: board.Position(req.Position),
	})
}

func (a *API) execCommand(w http.ResponseWriter, r *http.Request, cmd board.Command) {
	if cmd.PlayerID == 0 || cmd.TeamID == 0 {
		sendResponse(w, httpResp{Status: http.StatusBadRequest, IsError: true, Error: "player_id and team_id are required"})
		return
	}

	league := chi.URLParam(r, "league")
	rm, err := a.Hub.Ensure(r.Context(), league, a.Boards)
	if err != nil {
		sendResponse(w, httpResp{Status: http.StatusNotFound, IsError: true, Error: err.Error()})
		return
	}

	if err := runCommand(r.Context(), rm, cmd); err != nil {
		sendResponse(w, httpResp{Status: http.StatusConflict, IsError: true, Error: err.Error()})
		return
	}
	sendResponse(w, httpResp{Status: http.StatusOK, Data: map[string]any{
		"player_id": cmd.PlayerID,
		"team_id":   cmd.TeamID,
	}})
}

// runCommand joins the room as a transient client so the rejection path
// (draft_error targets the originator) works the same as over the
// socket, then waits for the room's verdict.
func runCommand(ctx context.Context, rm *room.Room, cmd board.Command) error {
	clientID := "rest-" + uuid.NewString()
	out := make(chan wire.Message, 16)
	rm.Inbox() <- room.Join{ClientID: clientID, Outbox: out}
	defer func() { rm.Inbox() <- room.Leave{ClientID: clientID} }()

	rm.Inbox() <- room.FromClient{ClientID: clientID, Cmd: cmd}

	timeout := time.After(commandTimeout)
	for {
		select {
		case msg, ok := <-out:
			if !ok {
				return errors.New("draft room closed")
			}
			switch m := msg.(type) {
			case wire.DraftError:
				return errors.New(m.Message)
			case wire.PlayerDrafted:
				if m.Player.ID == cmd.PlayerID {
					return nil
				}
			case wire.PlayerRemoved:
				if m.Player.ID == cmd.PlayerID {
					return nil
				}
			case wire.PositionUpdated:
				if m.Player.ID == cmd.PlayerID {
					return nil
				}
			}
		case <-timeout:
			return errors.New("timed out waiting for draft confirmation")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *API) ListPicks(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		sendResponse(w, httpResp{Status: http.StatusServiceUnavailable, IsError: true, Error: "persistence disabled"})
		return
	}
	league := chi.URLParam(r, "league")
	picks, err := a.Store.ListPicks(r.Context(), league)
	if err != nil {
		a.storeError(w, err)
		return
	}
	sendResponse(w, httpResp{Status: http.StatusOK, Data: picks})
}

func (a *API) GetPlayer(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		sendResponse(w, httpResp{Status: http.StatusServiceUnavailable, IsError: true, Error: "persistence disabled"})
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		sendResponse(w, httpResp{Status: http.StatusBadRequest, IsError: true, Error: "invalid player id"})
		return
	}
	player, err := a.Store.GetPlayer(r.Context(), id)
	if err != nil {
		a.storeError(w, err)
		return
	}
	sendResponse(w, httpResp{Status: http.StatusOK, Data: player})
}

func (a *API) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		sendResponse(w, httpResp{Status: http.StatusServiceUnavailable, IsError: true, Error: "persistence disabled"})
		return
	}
	players, err := a.Store.SearchPlayers(r.Context(),
		r.URL.Query().Get("q"), r.URL.Query().Get("league"))
	if err != nil {
		a.storeError(w, err)
		return
	}
	sendResponse(w, httpResp{Status: http.StatusOK, Data: players})
}

func (a *API) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		sendResponse(w, httpResp{Status: http.StatusNotFound, IsError: true, Error: err.Error()})
		return
	}
	a.Log.Error("store query failed", zap.Error(err))
	sendResponse(w, httpResp{Status: http.StatusInternalServerError, IsError: true, Error: "internal error"})
}
