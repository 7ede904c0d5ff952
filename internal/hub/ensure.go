package hub

import (
	"context"

	"github.com/ecs-league/draftboard/internal/board"
	"github.com/ecs-league/draftboard/internal/room"
)

// BoardLoader supplies a league's initial board state when its room is
// first created.
type BoardLoader interface {
	LoadBoard(ctx context.Context, league string) (board.State, error)
}

type LoaderFunc func(ctx context.Context, league string) (board.State, error)

func (f LoaderFunc) LoadBoard(ctx context.Context, league string) (board.State, error) {
	return f(ctx, league)
}

// Ensure returns the league's room, creating it from the loader's state
// when it does not exist yet. The load happens outside the hub loop so
// a slow database never stalls the registry.
func (h *Hub) Ensure(ctx context.Context, league string, loader BoardLoader) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	h.inbox <- GetRoom{League: league, Reply: reply}
	if r := <-reply; r != nil {
		return r, nil
	}

	state, err := loader.LoadBoard(ctx, league)
	if err != nil {
		return nil, err
	}

	reply = make(chan *room.Room, 1)
	h.inbox <- EnsureRoom{League: league, State: state, Reply: reply}
	return <-reply, nil
}
