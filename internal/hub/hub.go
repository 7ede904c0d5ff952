package hub

import (
	"context"

	"github.com/ecs-league/draftboard/internal/board"
	"github.com/ecs-league/draftboard/internal/room"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	League string
	State  board.State
	Reply  chan *room.Room
}

type GetRoom struct {
	League string
	Reply  chan *room.Room
}

type EnsureRoom struct {
	League string
	State  board.State // only used if creation happens
	Reply  chan *room.Room
}

type RemoveRoom struct {
	League string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the league -> room registry. Rooms are created with the
// shared dependencies (locks, persister, logger) handed over at
// construction.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	deps   room.Deps
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, deps room.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if r := h.rooms[msg.League]; r != nil {
					msg.Reply <- r
					break
				}
				r := room.New(h.ctx, msg.League, msg.State, h.deps)
				h.rooms[msg.League] = r
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- h.rooms[msg.League] // May be nil

			case EnsureRoom:
				if r := h.rooms[msg.League]; r != nil {
					msg.Reply <- r
					break
				}
				r := room.New(h.ctx, msg.League, msg.State, h.deps)
				h.rooms[msg.League] = r
				msg.Reply <- r

			case RemoveRoom:
				delete(h.rooms, msg.League)

			case ShutdownHub:
				for _, r := range h.rooms {
					r.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}
