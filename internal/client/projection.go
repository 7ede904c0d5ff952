// Package client is the board-synchronization side of the draft UI: a
// local mirror of one league's board (Projection), a single pipeline
// for every input modality (Coordinator), and the layer that applies
// server-authoritative events on top of optimistic state (Reconciler).
package client

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ecs-league/draftboard/internal/board"
	"github.com/ecs-league/draftboard/internal/wire"
)

// Destination is one container on the board: a team (optionally a
// pitch slot) or the available pool.
type Destination struct {
	TeamID   int            `json:"team_id"`
	Position board.Position `json:"position,omitempty"`
}

// Pool is the available-pool sentinel destination.
var Pool = Destination{}

func (d Destination) IsPool() bool { return d.TeamID == 0 }

// Projection mirrors what the server has confirmed plus local
// optimistic changes. It holds one location per player; placing a
// player anywhere removes the previous location first, and all counts
// are derived from the location map on demand, never cached.
type Projection struct {
	mu      sync.Mutex
	players map[int]board.Player
	teams   map[int]board.Team
	loc     map[int]Destination
	seq     map[int]int
	log     *zap.Logger
}

func NewProjection(log *zap.Logger) *Projection {
	if log == nil {
		log = zap.NewNop()
	}
	return &Projection{
		players: make(map[int]board.Player),
		teams:   make(map[int]board.Team),
		loc:     make(map[int]Destination),
		seq:     make(map[int]int),
		log:     log,
	}
}

// LoadSnapshot replaces the whole projection with the server's board;
// this is the re-sync path on join and reconnect. A multi-team player
// is shown at their most recent assignment, this board renders one
// location per player.
func (p *Projection) LoadSnapshot(snap wire.BoardSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.players = make(map[int]board.Player, len(snap.State.Players))
	p.teams = make(map[int]board.Team, len(snap.State.Teams))
	p.loc = make(map[int]Destination, len(snap.State.Players))
	p.seq = make(map[int]int, len(snap.State.Seq))

	for id, player := range snap.State.Players {
		p.players[id] = player
		p.loc[id] = Pool
	}
	for id, team := range snap.State.Teams {
		p.teams[id] = team
	}
	for id, assigns := range snap.State.Assignments {
		if len(assigns) == 0 {
			continue
		}
		last := assigns[len(assigns)-1]
		p.loc[id] = Destination{TeamID: last.TeamID, Position: last.Position}
	}
	for id, n := range snap.State.Seq {
		p.seq[id] = n
	}
}

// Place puts the player's card at dest, registering the player if the
// board has never seen them (a removed-event payload re-synthesizes the
// card). Any previous location is dropped by the same write.
func (p *Projection) Place(player board.Player, dest Destination) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !dest.IsPool() {
		if _, ok := p.teams[dest.TeamID]; !ok {
			// Stale or unknown container: log and no-op, the next
			// authoritative snapshot heals the board.
			p.log.Warn("place into unknown team ignored",
				zap.Int("player_id", player.ID), zap.Int("team_id", dest.TeamID))
			return
		}
	}
	p.players[player.ID] = player
	p.loc[player.ID] = dest
}

// Remove takes the player off the board. With toPool set the card is
// re-inserted into the available pool (the pitch view does this on
// explicit removal); otherwise it disappears entirely. Removing an
// absent player is a no-op.
func (p *Projection) Remove(playerID int, toPool bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.loc[playerID]; !ok {
		return
	}
	if toPool {
		p.loc[playerID] = Pool
		return
	}
	delete(p.loc, playerID)
}

// Location reports where the player's card currently sits.
func (p *Projection) Location(playerID int) (Destination, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.loc[playerID]
	return d, ok
}

// Player returns the profile the board knows for the id.
func (p *Projection) Player(playerID int) (board.Player, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.players[playerID]
	return pl, ok
}

// Team returns the team the board knows for the id.
func (p *Projection) Team(teamID int) (board.Team, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.teams[teamID]
	return t, ok
}

// TeamCount derives a team's roster size by scanning locations.
func (p *Projection) TeamCount(teamID int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, d := range p.loc {
		if d.TeamID == teamID {
			n++
		}
	}
	return n
}

// SlotCount derives one (team, position) slot's occupancy.
func (p *Projection) SlotCount(teamID int, pos board.Position) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, d := range p.loc {
		if d.TeamID == teamID && d.Position == pos {
			n++
		}
	}
	return n
}

// Available lists the pool, sorted by name for stable rendering.
func (p *Projection) Available() []board.Player {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]board.Player, 0)
	for id, d := range p.loc {
		if d.IsPool() {
			out = append(out, p.players[id])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SeqOf is the last applied authoritative sequence for the player; 0
// when only optimistic state exists.
func (p *Projection) SeqOf(playerID int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq[playerID]
}

func (p *Projection) setSeq(playerID, seq int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq[playerID] = seq
}
