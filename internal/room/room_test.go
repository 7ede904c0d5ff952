package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ecs-league/draftboard/internal/board"
	"github.com/ecs-league/draftboard/internal/wire"
)

// helper: receive one message with a timeout so tests never hang
func recvMsg(t *testing.T, ch <-chan wire.Message, within time.Duration) wire.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return nil // unreachable
	}
}

func recvNoMsg(t *testing.T, ch <-chan wire.Message, within time.Duration) {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no message within %v, but got: %+v", within, m)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func newTestBoard() board.State {
	s := board.NewState(board.Rules{})
	s.Players[7] = board.Player{ID: 7, Name: "Alex Kim"}
	s.Players[8] = board.Player{ID: 8, Name: "Sam Ortiz"}
	s.Teams[3] = board.Team{ID: 3, Name: "Maroon"}
	return s
}

func TestRoom_JoinSendsRoomAckAndSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(ctx, "premier", newTestBoard(), Deps{})

	out := make(chan wire.Message, 4)
	r.Inbox() <- Join{ClientID: "c1", Outbox: out}

	first := recvMsg(t, out, 100*time.Millisecond)
	ack, ok := first.(wire.JoinedRoom)
	if !ok {
		t.Fatalf("want JoinedRoom first, got %T", first)
	}
	if ack.Room != "draft_premier" || ack.League != "premier" {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	second := recvMsg(t, out, 100*time.Millisecond)
	snap, ok := second.(wire.BoardSnapshot)
	if !ok {
		t.Fatalf("want BoardSnapshot second, got %T", second)
	}
	if snap.Version != 0 {
		t.Fatalf("after join: want version=0, got %d", snap.Version)
	}
	if len(snap.State.Players) != 2 {
		t.Fatalf("snapshot should carry the player pool, got %+v", snap.State.Players)
	}
}

func TestRoom_DraftBroadcastsToAllClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(ctx, "premier", newTestBoard(), Deps{})

	out1 := make(chan wire.Message, 8)
	out2 := make(chan wire.Message, 8)
	r.Inbox() <- Join{ClientID: "c1", Outbox: out1}
	r.Inbox() <- Join{ClientID: "c2", Outbox: out2}
	recvMsg(t, out1, 100*time.Millisecond) // ack
	recvMsg(t, out1, 100*time.Millisecond) // snapshot
	recvMsg(t, out2, 100*time.Millisecond)
	recvMsg(t, out2, 100*time.Millisecond)

	r.Inbox() <- FromClient{ClientID: "c1", Cmd: board.Command{
		Type: board.CmdDraftPlayer, PlayerID: 7, TeamID: 3, Position: board.PosST,
	}}

	for _, out := range []chan wire.Message{out1, out2} {
		msg := recvMsg(t, out, 100*time.Millisecond)
		ev, ok := msg.(wire.PlayerDrafted)
		if !ok {
			t.Fatalf("want PlayerDrafted, got %T", msg)
		}
		if ev.Player.ID != 7 || ev.TeamID != 3 || ev.TeamName != "Maroon" || ev.Position != board.PosST {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.Seq != 1 {
			t.Fatalf("want seq=1, got %d", ev.Seq)
		}
	}

	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)
	if view.Version != 1 {
		t.Fatalf("after draft: want version=1, got %d", view.Version)
	}
	if got := board.TeamCount(view.State, 3); got != 1 {
		t.Fatalf("team count: want 1, got %d", got)
	}
}

func TestRoom_RejectionGoesToOriginatorOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(ctx, "premier", newTestBoard(), Deps{})

	out1 := make(chan wire.Message, 8)
	out2 := make(chan wire.Message, 8)
	r.Inbox() <- Join{ClientID: "c1", Outbox: out1}
	r.Inbox() <- Join{ClientID: "c2", Outbox: out2}
	recvMsg(t, out1, 100*time.Millisecond)
	recvMsg(t, out1, 100*time.Millisecond)
	recvMsg(t, out2, 100*time.Millisecond)
	recvMsg(t, out2, 100*time.Millisecond)

	r.Inbox() <- FromClient{ClientID: "c1", Cmd: board.Command{
		Type: board.CmdDraftPlayer, PlayerID: 99, TeamID: 3,
	}}

	msg := recvMsg(t, out1, 100*time.Millisecond)
	if _, ok := msg.(wire.DraftError); !ok {
		t.Fatalf("originator should get a DraftError, got %T", msg)
	}
	recvNoMsg(t, out2, 50*time.Millisecond)

	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	if view := recvView(t, reply, 100*time.Millisecond); view.Version != 0 {
		t.Fatalf("rejected command must not bump version, got %d", view.Version)
	}
}

func TestRoom_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(ctx, "premier", newTestBoard(), Deps{})

	// Room for the ack but not the snapshot; the join itself overflows
	// the outbox and the client is dropped.
	out := make(chan wire.Message, 1)
	r.Inbox() <- Join{ClientID: "c1", Outbox: out}

	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)
	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
}

type failingPersister struct{ calls int }

func (f *failingPersister) PersistEvent(context.Context, string, board.Event) error {
	f.calls++
	return errors.New("database down")
}

func TestRoom_PersistFailureStillBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persist := &failingPersister{}
	r := New(ctx, "premier", newTestBoard(), Deps{Persist: persist})

	out := make(chan wire.Message, 8)
	r.Inbox() <- Join{ClientID: "c1", Outbox: out}
	recvMsg(t, out, 100*time.Millisecond)
	recvMsg(t, out, 100*time.Millisecond)

	r.Inbox() <- FromClient{ClientID: "c1", Cmd: board.Command{
		Type: board.CmdDraftPlayer, PlayerID: 7, TeamID: 3,
	}}

	msg := recvMsg(t, out, 100*time.Millisecond)
	if _, ok := msg.(wire.PlayerDrafted); !ok {
		t.Fatalf("event should broadcast despite persist failure, got %T", msg)
	}
	if persist.calls != 1 {
		t.Fatalf("persister should have been called once, got %d", persist.calls)
	}
}

func TestRoom_ShutdownClosesClientOutboxes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(ctx, "premier", newTestBoard(), Deps{})

	out := make(chan wire.Message, 8)
	r.Inbox() <- Join{ClientID: "c1", Outbox: out}
	recvMsg(t, out, 100*time.Millisecond)
	recvMsg(t, out, 100*time.Millisecond)

	r.Inbox() <- Shutdown{}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected outbox to be closed without further messages")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for outbox close")
	}
}
