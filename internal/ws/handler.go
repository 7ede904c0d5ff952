package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecs-league/draftboard/internal/auth"
	"github.com/ecs-league/draftboard/internal/board"
	"github.com/ecs-league/draftboard/internal/hub"
	"github.com/ecs-league/draftboard/internal/room"
	"github.com/ecs-league/draftboard/internal/wire"
)

const writeTimeout = 3 * time.Second

// Handler upgrades the connection and bridges it to a draft room. The
// client joins a room by sending join_draft_room; draft commands before
// that are rejected with a draft_error.
func Handler(h *hub.Hub, boards hub.BoardLoader, authsvc *auth.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if authsvc != nil {
			token := r.URL.Query().Get("token")
			if token == "" {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}
			if _, err := authsvc.ValidateToken(r.Context(), token); err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out := make(chan wire.Message, 16)
		clog := log.With(zap.String("client_id", clientID))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := wire.Encode(msg)
				if err != nil {
					clog.Error("encode outbound message", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		var joined *room.Room
		defer func() {
			if joined != nil {
				joined.Inbox() <- room.Leave{ClientID: clientID}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			msg, err := wire.DecodeClient(data)
			if err != nil {
				clog.Debug("rejected client message", zap.Error(err))
				writeDirect(r.Context(), conn, wire.DraftError{Message: err.Error()})
				continue
			}

			switch m := msg.(type) {
			case wire.JoinDraftRoom:
				rm, err := h.Ensure(r.Context(), m.LeagueName, boards)
				if err != nil {
					clog.Warn("join draft room failed",
						zap.String("league", m.LeagueName), zap.Error(err))
					writeDirect(r.Context(), conn, wire.DraftError{
						Message: "League " + m.LeagueName + " not found",
					})
					continue
				}
				if joined != nil {
					joined.Inbox() <- room.Leave{ClientID: clientID}
				}
				joined = rm
				rm.Inbox() <- room.Join{ClientID: clientID, Outbox: out}

			case wire.DraftPlayer:
				if !sendCommand(joined, clientID, m.LeagueName, board.Command{
					Type:     board.CmdDraftPlayer,
					PlayerID: m.PlayerID,
					TeamID:   m.TeamID,
					Position: board.Position(m.Position),
				}) {
					writeDirect(r.Context(), conn, notJoinedError())
				}

			case wire.RemovePlayer:
				if !sendCommand(joined, clientID, m.LeagueName, board.Command{
					Type:     board.CmdRemovePlayer,
					PlayerID: m.PlayerID,
					TeamID:   m.TeamID,
				}) {
					writeDirect(r.Context(), conn, notJoinedError())
				}

			case wire.UpdatePosition:
				if !sendCommand(joined, clientID, m.LeagueName, board.Command{
					Type:     board.CmdUpdatePosition,
					PlayerID: m.PlayerID,
					TeamID:   m.TeamID,
					Position: board.Position(m.Position),
				}) {
					writeDirect(r.Context(), conn, notJoinedError())
				}
			}
		}
	}
}

// sendCommand forwards a command to the joined room; false when the
// client has not joined the league it is operating on.
func sendCommand(joined *room.Room, clientID, league string, cmd board.Command) bool {
	if joined == nil || joined.League() != league {
		return false
	}
	joined.Inbox() <- room.FromClient{ClientID: clientID, Cmd: cmd}
	return true
}

func notJoinedError() wire.DraftError {
	return wire.DraftError{Message: "Join a draft room before sending draft commands"}
}

func writeDirect(ctx context.Context, conn *websocket.Conn, msg wire.Message) {
	payload, err := wire.Encode(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
