package placement

import (
	"fmt"
	"sync"

	"github.com/chanyoung/evac/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// ErrNoDestination means no candidate shark survived the placement
// constraints. The object is skipped, not retried within the job.
var ErrNoDestination = errors.New("no destination available")

// Candidate is one shark eligible to receive evacuated data.
type Candidate struct {
	ID          string
	FaultDomain string
	Addr        string
	Total       uint64
	Available   uint64
}

// Ledger is the capacity ledger of destination candidates. It is the
// only cluster-wide mutable shared state of the pipeline; all
// reserve and release calls are serialized by its mutex so that
// read-then-decrement is indivisible and no candidate's available
// capacity ever goes negative.
type Ledger struct {
	headroom float64

	mu     sync.Mutex
	sharks map[string]*Candidate
}

// NewLedger creates an empty ledger with the given headroom factor.
// An object of size S reserves S bytes but requires S*headroom bytes
// of available capacity on the candidate.
func NewLedger(headroom float64) (*Ledger, error) {
	logger = mlog.GetPackageLogger("app/evac/usecase/placement")

	if headroom < 1.0 {
		return nil, fmt.Errorf("headroom factor must be >= 1.0: got %f", headroom)
	}

	return &Ledger{
		headroom: headroom,
		sharks:   make(map[string]*Candidate),
	}, nil
}

// Init populates the candidates from a telemetry snapshot. Called once
// at job setup; the ledger is not re-synced mid-job, capacity drift
// from concurrent external activity is an accepted approximation.
func (l *Ledger) Init(snapshot []Candidate) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sharks = make(map[string]*Candidate, len(snapshot))
	for _, c := range snapshot {
		c := c
		l.sharks[c.ID] = &c
	}
}

// Release restores the reserved capacity of an invalidated reservation:
// the assignment was rejected or the object failed before transfer.
func (l *Ledger) Release(shark string, size uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.sharks[shark]
	if !ok {
		logger.Errorf("release on unknown shark: %s", shark)
		return
	}

	c.Available += size
	if c.Available > c.Total {
		c.Available = c.Total
	}
}

// Addr returns the agent address of the given candidate shark.
func (l *Ledger) Addr(shark string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.sharks[shark]
	if !ok {
		return "", fmt.Errorf("unknown shark: %s", shark)
	}
	return c.Addr, nil
}
