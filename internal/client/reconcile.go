package client

import (
	"go.uber.org/zap"

	"github.com/ecs-league/draftboard/internal/wire"
)

// Reconciler applies server-authoritative messages on top of whatever
// optimistic state the coordinator produced. Events are committed facts
// and are applied without re-running eligibility checks; the only
// filter is the per-player sequence guard against stale delivery.
type Reconciler struct {
	proj   *Projection
	notify Notifier
	log    *zap.Logger
}

func NewReconciler(proj *Projection, notify Notifier, log *zap.Logger) *Reconciler {
	if notify == nil {
		notify = NopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{proj: proj, notify: notify, log: log}
}

// HandleMessage dispatches one inbound server message.
func (r *Reconciler) HandleMessage(msg wire.Message) {
	switch m := msg.(type) {
	case wire.BoardSnapshot:
		r.proj.LoadSnapshot(m)

	case wire.PlayerDrafted:
		if r.stale(m.Player.ID, m.Seq) {
			return
		}
		r.proj.Place(m.Player, Destination{TeamID: m.TeamID, Position: m.Position})
		r.bumpSeq(m.Player.ID, m.Seq)

	case wire.PlayerRemoved:
		if r.stale(m.Player.ID, m.Seq) {
			return
		}
		// The payload carries the full player so the pool card can be
		// re-synthesized even if this client never rendered it.
		r.proj.Place(m.Player, Pool)
		r.bumpSeq(m.Player.ID, m.Seq)

	case wire.PositionUpdated:
		if r.stale(m.Player.ID, m.Seq) {
			return
		}
		r.proj.Place(m.Player, Destination{TeamID: m.TeamID, Position: m.Position})
		r.bumpSeq(m.Player.ID, m.Seq)

	case wire.DraftError:
		// Surfaced only; the optimistic change is not rolled back. A
		// corrective event or a board refresh resolves the mismatch.
		r.notify.Error(m.Message)

	case wire.JoinedRoom:
		r.log.Info("joined draft room", zap.String("room", m.Room))

	default:
		r.log.Debug("unhandled server message")
	}
}

// stale reports whether the event was already superseded for this
// player. Events without a sequence (Seq 0) fall back to last-write-
// wins and are always applied.
func (r *Reconciler) stale(playerID, seq int) bool {
	if seq == 0 {
		return false
	}
	if last := r.proj.SeqOf(playerID); seq <= last {
		r.log.Debug("stale event dropped",
			zap.Int("player_id", playerID), zap.Int("seq", seq), zap.Int("last", last))
		return true
	}
	return false
}

func (r *Reconciler) bumpSeq(playerID, seq int) {
	if seq > 0 {
		r.proj.setSeq(playerID, seq)
	}
}
