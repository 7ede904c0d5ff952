// Package room runs one actor goroutine per league draft room. All
// board mutations for a league flow through its room loop, so commands
// apply one at a time and every connected client sees the same event
// order.
package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/ecs-league/draftboard/internal/board"
	"github.com/ecs-league/draftboard/internal/locks"
	"github.com/ecs-league/draftboard/internal/wire"
)

type Msg interface{ isRoomMsg() }

// FromClient carries a decoded command. ClientID routes draft_error
// replies back to the sender only; accepted events go to everyone.
type FromClient struct {
	ClientID string
	Cmd      board.Command
}

func (FromClient) isRoomMsg() {}

type Join struct {
	ClientID string
	Outbox   chan wire.Message
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

// View reflects internal state for tests without data races.
type View struct {
	Version    int
	NumClients int
	State      board.State
}

// Persister stores accepted events. The room keeps serving on persist
// failure; the board in memory stays authoritative for the session.
type Persister interface {
	PersistEvent(ctx context.Context, league string, ev board.Event) error
}

type nopPersister struct{}

func (nopPersister) PersistEvent(context.Context, string, board.Event) error { return nil }

// NopPersister is used when the server runs without a database and in
// tests.
func NopPersister() Persister { return nopPersister{} }

type Room struct {
	league  string
	inbox   chan Msg
	state   board.State
	version int
	clients map[string]chan wire.Message
	locks   locks.Manager
	persist Persister
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

type Deps struct {
	Locks   locks.Manager
	Persist Persister
	Log     *zap.Logger
}

func New(parent context.Context, league string, initial board.State, deps Deps) *Room {
	ctx, cancel := context.WithCancel(parent)

	if deps.Locks == nil {
		deps.Locks = locks.NewMemory()
	}
	if deps.Persist == nil {
		deps.Persist = NopPersister()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	r := &Room{
		league:  league,
		inbox:   make(chan Msg, 64),
		state:   initial,
		version: 0,
		clients: make(map[string]chan wire.Message),
		locks:   deps.Locks,
		persist: deps.Persist,
		log:     deps.Log.With(zap.String("league", league)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) League() string { return r.league }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = msg.Outbox
				r.sendTo(msg.ClientID, wire.JoinedRoom{Room: "draft_" + r.league, League: r.league})
				r.sendTo(msg.ClientID, wire.BoardSnapshot{
					Version:    r.version,
					LeagueName: r.league,
					State:      r.state,
				})

			case Leave:
				delete(r.clients, msg.ClientID)

			case FromClient:
				r.handleCommand(msg)

			case GetState:
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					State:      r.state,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleCommand(msg FromClient) {
	release, err := r.locks.Acquire(r.ctx, msg.Cmd.PlayerID)
	if err != nil {
		r.log.Warn("draft lock not acquired",
			zap.Int("player_id", msg.Cmd.PlayerID), zap.Error(err))
		r.sendTo(msg.ClientID, wire.DraftError{
			Message: "Draft operation in progress for this player, please wait",
		})
		return
	}
	defer release()

	events, newState, err := board.Apply(r.state, msg.Cmd)
	if err != nil {
		// Rejections go to the requester only; peers never proposed it.
		r.sendTo(msg.ClientID, wire.DraftError{Message: err.Error()})
		return
	}

	r.state = newState
	r.version++

	for _, ev := range events {
		if err := r.persist.PersistEvent(r.ctx, r.league, ev); err != nil {
			r.log.Error("persist event failed",
				zap.String("event", string(ev.Type)),
				zap.Int("player_id", ev.PlayerID),
				zap.Error(err))
		}
		if out, ok := r.eventMessage(ev); ok {
			r.broadcast(out)
		}
	}
}

// eventMessage enriches a board event with the player and team data
// clients need to render it without another fetch. A removed player's
// card is re-synthesized from this payload on the client.
func (r *Room) eventMessage(ev board.Event) (wire.Message, bool) {
	player, ok := r.state.Players[ev.PlayerID]
	if !ok {
		r.log.Warn("event for unknown player dropped", zap.Int("player_id", ev.PlayerID))
		return nil, false
	}
	teamName := r.state.Teams[ev.TeamID].Name

	switch ev.Type {
	case board.EvtPlayerDrafted:
		return wire.PlayerDrafted{
			Player:     player,
			TeamID:     ev.TeamID,
			TeamName:   teamName,
			Position:   ev.Position,
			LeagueName: r.league,
			Seq:        ev.Seq,
		}, true
	case board.EvtPlayerRemoved:
		return wire.PlayerRemoved{
			Player:     player,
			TeamID:     ev.TeamID,
			TeamName:   teamName,
			LeagueName: r.league,
			Seq:        ev.Seq,
		}, true
	case board.EvtPositionUpdated:
		return wire.PositionUpdated{
			Player:     player,
			TeamID:     ev.TeamID,
			TeamName:   teamName,
			Position:   ev.Position,
			LeagueName: r.league,
			Seq:        ev.Seq,
		}, true
	default:
		return nil, false
	}
}

func (r *Room) sendTo(clientID string, msg wire.Message) {
	ch, ok := r.clients[clientID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(r.clients, clientID)
	}
}

func (r *Room) broadcast(msg wire.Message) {
	for id, ch := range r.clients {
		select {
		case ch <- msg:
		default:
			close(ch)
			delete(r.clients, id)
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}
