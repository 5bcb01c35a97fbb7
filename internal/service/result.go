package service

import "github.com/jtec/maintenance-service/internal/domain"

// SideEffect names a dependent secondary write (ticket status mirroring)
// performed after a successful primary write. The two writes are not
// transactional: a failed side effect never rolls back the primary result
// and is surfaced as a warning, not an error.
type SideEffect struct {
	Name string
	Err  error
}

// MissionResult is the outcome of a mission-primary operation: the record
// plus the list of secondary writes with their independent outcomes.
type MissionResult struct {
	Mission     *domain.Mission
	SideEffects []SideEffect
}

// Warning returns a human-readable description of the first failed side
// effect, or the empty string when all secondary writes succeeded.
func (r *MissionResult) Warning() string {
	if r == nil {
		return ""
	}
	for _, effect := range r.SideEffects {
		if effect.Err != nil {
			return effect.Name + " failed: " + effect.Err.Error()
		}
	}
	return ""
}
