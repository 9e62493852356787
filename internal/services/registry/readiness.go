package registry

import "github.com/mcoot/iq180/internal/model"

// MinReadyPlayers is the number of ready players that must be exceeded
// for a multi-player game to be startable
const MinReadyPlayers = 1

// IsReady reports whether more than MinReadyPlayers players are ready
func IsReady(players []model.Player) bool {
	return CountReady(players) > MinReadyPlayers
}

// CountReady returns the number of players with the ready flag set
func CountReady(players []model.Player) int {
	count := 0
	for _, p := range players {
		if p.Ready {
			count++
		}
	}
	return count
}

// ReadinessTracker deduplicates the readiness aggregate so that consecutive
// identical values are reported only once. The aggregate starts out not ready.
type ReadinessTracker struct {
	ready bool
}

// Update recomputes readiness from a registry snapshot and reports whether it changed
func (t *ReadinessTracker) Update(players []model.Player) (ready bool, changed bool) {
	ready = IsReady(players)
	changed = ready != t.ready
	t.ready = ready
	return ready, changed
}

// Ready returns the last computed aggregate
func (t *ReadinessTracker) Ready() bool {
	return t.ready
}
