package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ecs-league/draftboard/internal/board"
	"github.com/ecs-league/draftboard/internal/wire"
)

// Source tags where an operation came from. Click, drag and remote
// events all funnel into the same canonical Op and the same pipeline.
type Source string

const (
	SourceClick  Source = "click"
	SourceDrag   Source = "drag"
	SourceRemote Source = "remote"
)

// Op is the canonical "assign player to destination" operation. A pool
// destination means unassign.
type Op struct {
	PlayerID int
	Dest     Destination
	Source   Source
}

// Notifier is the toast surface. Implementations must not block.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// NopNotifier drops everything; useful headless.
type NopNotifier struct{}

func (NopNotifier) Info(string)  {}
func (NopNotifier) Warn(string)  {}
func (NopNotifier) Error(string) {}

// Confirmer is asked before assigning a player who already belongs to
// another team. Returning false aborts the operation. This is a UX
// safeguard, not a data constraint.
type Confirmer interface {
	ConfirmCrossTeam(player board.Player, existingTeams []string) bool
}

// AlwaysConfirm never prompts.
type AlwaysConfirm struct{}

func (AlwaysConfirm) ConfirmCrossTeam(board.Player, []string) bool { return true }

// Publisher sends an operation to the server: the live socket when
// connected, the REST fallback otherwise.
type Publisher interface {
	Publish(ctx context.Context, msg wire.Message) error
}

// Coordinator runs the local-input policy pipeline: eligibility check,
// optimistic projection update, outbound publish. Remote events bypass
// it and go straight to the Reconciler.
type Coordinator struct {
	proj    *Projection
	pub     Publisher
	notify  Notifier
	confirm Confirmer
	league  string
	log     *zap.Logger

	mu sync.Mutex
	// Fallback for hosts that do not surface the drag payload on drop.
	dragPlayerID int
}

func NewCoordinator(proj *Projection, pub Publisher, league string, notify Notifier, confirm Confirmer, log *zap.Logger) *Coordinator {
	if notify == nil {
		notify = NopNotifier{}
	}
	if confirm == nil {
		confirm = AlwaysConfirm{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		proj:    proj,
		pub:     pub,
		notify:  notify,
		confirm: confirm,
		league:  league,
		log:     log,
	}
}

// AssignFromClick is the click-to-assign modality: the team picker has
// confirmed a target.
func (c *Coordinator) AssignFromClick(ctx context.Context, playerID, teamID int, pos board.Position) error {
	return c.Submit(ctx, Op{
		PlayerID: playerID,
		Dest:     Destination{TeamID: teamID, Position: pos},
		Source:   SourceClick,
	})
}

// DragStart records the dragged player id locally so DropOn can recover
// it when the platform payload goes missing.
func (c *Coordinator) DragStart(playerID int) {
	c.mu.Lock()
	c.dragPlayerID = playerID
	c.mu.Unlock()
}

func (c *Coordinator) DragEnd() {
	c.mu.Lock()
	c.dragPlayerID = 0
	c.mu.Unlock()
}

// DropOn is the drag-and-drop modality: payload is whatever the drop
// surface handed over ("player:<id>" or a bare id). A malformed payload
// with no fallback is logged and the drop ignored.
func (c *Coordinator) DropOn(ctx context.Context, payload string, dest Destination) error {
	playerID, ok := parseDragPayload(payload)
	if !ok {
		c.mu.Lock()
		playerID = c.dragPlayerID
		c.mu.Unlock()
	}
	if playerID == 0 {
		c.log.Warn("drop ignored: no recoverable player id", zap.String("payload", payload))
		return nil
	}
	return c.Submit(ctx, Op{PlayerID: playerID, Dest: dest, Source: SourceDrag})
}

// Submit runs the policy pipeline for a locally originated operation.
func (c *Coordinator) Submit(ctx context.Context, op Op) error {
	player, ok := c.proj.Player(op.PlayerID)
	if !ok {
		c.log.Warn("operation on unknown player ignored", zap.Int("player_id", op.PlayerID))
		return nil
	}

	current, onBoard := c.proj.Location(op.PlayerID)

	// Already in the exact destination: no-op, not an error.
	if onBoard && current == op.Dest {
		return nil
	}

	if op.Dest.IsPool() {
		return c.submitRemove(ctx, player, current, onBoard)
	}

	// Cross-team move: ask before stacking or stealing assignments.
	if onBoard && !current.IsPool() && current.TeamID != op.Dest.TeamID {
		existing := []string{teamLabel(c.proj, current.TeamID)}
		if !c.confirm.ConfirmCrossTeam(player, existing) {
			return nil
		}
	}

	// Advisory capacity: warn, never gate.
	if max := board.RecommendedMax(op.Dest.Position); max > 0 {
		if n := c.proj.SlotCount(op.Dest.TeamID, op.Dest.Position); n >= max {
			c.notify.Warn(fmt.Sprintf("%s already has %d player(s) at %s (recommended max %d)",
				teamLabel(c.proj, op.Dest.TeamID), n, op.Dest.Position, max))
		}
	}

	// Optimistic local update, then publish.
	c.proj.Place(player, op.Dest)

	msg := wire.DraftPlayer{
		PlayerID:   op.PlayerID,
		TeamID:     op.Dest.TeamID,
		LeagueName: c.league,
		PlayerName: player.Name,
		Position:   string(op.Dest.Position),
	}
	if err := c.pub.Publish(ctx, msg); err != nil {
		// The optimistic change stays in place; the user refreshes or a
		// later authoritative event corrects it.
		c.notify.Error("No connection to the draft server - refresh the page and try again")
		c.log.Warn("publish failed", zap.Int("player_id", op.PlayerID), zap.Error(err))
		return err
	}
	return nil
}

// MovePosition changes a player's slot within their current team (pitch
// view drag between slots).
func (c *Coordinator) MovePosition(ctx context.Context, playerID int, pos board.Position) error {
	player, ok := c.proj.Player(playerID)
	if !ok {
		c.log.Warn("position move for unknown player ignored", zap.Int("player_id", playerID))
		return nil
	}
	current, onBoard := c.proj.Location(playerID)
	if !onBoard || current.IsPool() {
		c.log.Warn("position move for unassigned player ignored", zap.Int("player_id", playerID))
		return nil
	}
	if current.Position == pos {
		return nil
	}

	if max := board.RecommendedMax(pos); max > 0 {
		if n := c.proj.SlotCount(current.TeamID, pos); n >= max {
			c.notify.Warn(fmt.Sprintf("%s already has %d player(s) at %s (recommended max %d)",
				teamLabel(c.proj, current.TeamID), n, pos, max))
		}
	}

	c.proj.Place(player, Destination{TeamID: current.TeamID, Position: pos})

	msg := wire.UpdatePosition{
		PlayerID:   playerID,
		TeamID:     current.TeamID,
		Position:   string(pos),
		LeagueName: c.league,
	}
	if err := c.pub.Publish(ctx, msg); err != nil {
		c.notify.Error("No connection to the draft server - refresh the page and try again")
		c.log.Warn("publish failed", zap.Int("player_id", playerID), zap.Error(err))
		return err
	}
	return nil
}

func (c *Coordinator) submitRemove(ctx context.Context, player board.Player, current Destination, onBoard bool) error {
	if !onBoard || current.IsPool() {
		// Not assigned anywhere: removing is a no-op.
		return nil
	}

	c.proj.Remove(player.ID, true)

	msg := wire.RemovePlayer{
		PlayerID:   player.ID,
		TeamID:     current.TeamID,
		LeagueName: c.league,
	}
	if err := c.pub.Publish(ctx, msg); err != nil {
		c.notify.Error("No connection to the draft server - refresh the page and try again")
		c.log.Warn("publish failed", zap.Int("player_id", player.ID), zap.Error(err))
		return err
	}
	return nil
}

func teamLabel(proj *Projection, teamID int) string {
	if t, ok := proj.Team(teamID); ok && t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("team %d", teamID)
}

// parseDragPayload accepts "player:<id>" or a bare integer.
func parseDragPayload(payload string) (int, bool) {
	s := strings.TrimSpace(payload)
	s = strings.TrimPrefix(s, "player:")
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
