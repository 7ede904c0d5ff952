package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/ecs-league/draftboard/internal/board"
	"github.com/ecs-league/draftboard/internal/room"
)

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, room.Deps{})
	reply := make(chan *room.Room, 1)

	state := board.NewState(board.Rules{})
	h.Inbox() <- CreateRoom{League: "premier", State: state, Reply: reply}
	r1 := <-reply

	h.Inbox() <- GetRoom{League: "premier", Reply: reply}
	r2 := <-reply

	if r1 == nil || r2 == nil || r1 != r2 {
		t.Fatalf("expected same room pointer")
	}
}

func TestHub_Get_UnknownLeagueIsNil(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, room.Deps{})
	reply := make(chan *room.Room, 1)

	h.Inbox() <- GetRoom{League: "nope", Reply: reply}
	if r := <-reply; r != nil {
		t.Fatalf("expected nil room for unknown league, got %v", r)
	}
}

func TestHub_Ensure_LoadsOnce(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, room.Deps{})

	loads := 0
	loader := LoaderFunc(func(context.Context, string) (board.State, error) {
		loads++
		return board.NewState(board.Rules{}), nil
	})

	r1, err := h.Ensure(ctx, "premier", loader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := h.Ensure(ctx, "premier", loader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r1 != r2 {
		t.Fatalf("expected same room from both Ensure calls")
	}
	if loads != 1 {
		t.Fatalf("loader should run once, ran %d times", loads)
	}
}

func TestHub_Ensure_LoaderErrorPropagates(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, room.Deps{})

	wantErr := errors.New("league not found")
	loader := LoaderFunc(func(context.Context, string) (board.State, error) {
		return board.State{}, wantErr
	})

	if _, err := h.Ensure(ctx, "ghost", loader); !errors.Is(err, wantErr) {
		t.Fatalf("want loader error, got %v", err)
	}
}
