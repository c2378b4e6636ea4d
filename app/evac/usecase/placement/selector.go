package placement

import (
	"github.com/chanyoung/evac/app/evac/domain/model/object"
)

// Select picks the destination shark for the given object and reserves
// the object's size on it before returning. Constraints, applied in
// order: never the evacuated source shark, never a shark already
// holding a replica, never a fault domain already holding a replica,
// and the candidate must have size*headroom bytes available. Among the
// survivors the one with maximum available capacity wins; ties break
// to the lowest shark ID for determinism.
//
// Reserving under the same lock as filtering is what makes concurrent
// selection safe: two objects selected at the same time cannot
// over-subscribe one shark.
func (l *Ledger) Select(obj *object.Object, source string, exclude []string) (string, error) {
	need := uint64(float64(obj.Size) * l.headroom)

	l.mu.Lock()
	defer l.mu.Unlock()

	var winner *Candidate
	for _, c := range l.sharks {
		if c.ID == source {
			continue
		}
		if excluded(c.ID, exclude) {
			continue
		}
		if obj.HasReplicaOn(c.ID) {
			continue
		}
		if obj.HasReplicaIn(c.FaultDomain) {
			continue
		}
		if c.Available < need {
			continue
		}

		if winner == nil {
			winner = c
			continue
		}
		if c.Available > winner.Available {
			winner = c
		} else if c.Available == winner.Available && c.ID < winner.ID {
			winner = c
		}
	}

	if winner == nil {
		return "", ErrNoDestination
	}

	winner.Available -= obj.Size
	return winner.ID, nil
}

func excluded(shark string, exclude []string) bool {
	for _, e := range exclude {
		if e == shark {
			return true
		}
	}
	return false
}
