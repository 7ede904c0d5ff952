package board

// Position is a formation slot on the pitch view. The simple draft board
// only ever uses PosBench.
type Position string

const (
	PosGK    Position = "gk"
	PosLB    Position = "lb"
	PosCB    Position = "cb"
	PosRB    Position = "rb"
	PosLWB   Position = "lwb"
	PosRWB   Position = "rwb"
	PosCDM   Position = "cdm"
	PosCM    Position = "cm"
	PosCAM   Position = "cam"
	PosLW    Position = "lw"
	PosRW    Position = "rw"
	PosST    Position = "st"
	PosBench Position = "bench"
)

var validPositions = map[Position]bool{
	PosGK: true, PosLB: true, PosCB: true, PosRB: true,
	PosLWB: true, PosRWB: true, PosCDM: true, PosCM: true,
	PosCAM: true, PosLW: true, PosRW: true, PosST: true,
	PosBench: true,
}

// Recommended occupancy per slot. Advisory only: exceeding it warns the
// user but never blocks the assignment. Zero means unbounded.
var recommendedMax = map[Position]int{
	PosGK:  1,
	PosLB:  1,
	PosCB:  2,
	PosRB:  1,
	PosLWB: 1,
	PosRWB: 1,
	PosCDM: 2,
	PosCM:  3,
	PosCAM: 2,
	PosLW:  1,
	PosRW:  1,
	PosST:  2,
}

func ParsePosition(s string) (Position, bool) {
	p := Position(s)
	if !validPositions[p] {
		return "", false
	}
	return p, true
}

// RecommendedMax returns the advisory cap for a slot, or 0 when the slot
// is unbounded (bench).
func RecommendedMax(p Position) int {
	return recommendedMax[p]
}
