package assignment

import (
	"sync/atomic"
	"time"

	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/app/evac/usecase/placement"
	"github.com/chanyoung/evac/pkg/util/mlog"
	"github.com/chanyoung/evac/pkg/util/uuid"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// Bounds seal an open assignment: object count, byte size or age,
// whichever is reached first.
type Bounds struct {
	MaxObjects int
	MaxBytes   uint64
	MaxOpen    time.Duration
}

// Manager consumes discovered objects, asks the selector for a
// destination and batches accepted objects into per-shark assignments.
type Manager struct {
	jobID  string
	source string
	bounds Bounds

	selector Selector
	recorder Recorder
	store    Repository

	in       <-chan *object.Object
	retryCh  chan *item
	sealedCh chan *Assignment
	resolved chan *Assignment

	open    map[string]*Assignment
	sealedQ []*Assignment

	// Assignments handed to the posters and not yet resolved, and
	// rejected objects on their way back through retryCh. Both must
	// drain before the manager may exit.
	inFlight     int
	pendingRetry int32

	aborted bool
}

// NewManager creates an assignment manager for one job.
func NewManager(jobID, source string, bounds Bounds, sel Selector, rec Recorder, store Repository, in <-chan *object.Object, queue int) *Manager {
	logger = mlog.GetPackageLogger("app/evac/usecase/assignment")

	return &Manager{
		jobID:    jobID,
		source:   source,
		bounds:   bounds,
		selector: sel,
		recorder: rec,
		store:    store,
		in:       in,
		retryCh:  make(chan *item, queue),
		sealedCh: make(chan *Assignment, queue),
		resolved: make(chan *Assignment, queue),
		open:     make(map[string]*Assignment),
	}
}

// Sealed is the channel of sealed assignments consumed by the posters.
// Closed when the manager has drained.
func (m *Manager) Sealed() <-chan *Assignment {
	return m.sealedCh
}

// Run drives the manager until discovery is exhausted and every
// assignment and retry has resolved, then closes the sealed channel.
func (m *Manager) Run(stop <-chan struct{}) {
	ctxLogger := mlog.GetMethodLogger(logger, "Manager.Run")

	ticker := time.NewTicker(m.tickEvery())
	defer ticker.Stop()

	in := m.in
	for {
		// The main select picks among ready cases at random; abort
		// must win before another placement can reserve capacity.
		if stop != nil {
			select {
			case <-stop:
				stop = nil
				ctxLogger.Info("draining on abort")
				m.aborted = true
				m.sealAll()
			default:
			}
		}

		// Offer the head of the sealed backlog while staying
		// receptive to retries and resolutions; posters must never
		// be able to deadlock the manager.
		var sendCh chan *Assignment
		var head *Assignment
		if len(m.sealedQ) > 0 {
			sendCh = m.sealedCh
			head = m.sealedQ[0]
		}

		// Stop pulling fresh objects while the backlog is deep; the
		// bounded channels upstream then block discovery.
		recvCh := in
		if len(m.sealedQ) > cap(m.sealedCh) {
			recvCh = nil
		}

		select {
		case obj, ok := <-recvCh:
			if !ok {
				in = nil
				m.sealAll()
				break
			}
			m.place(&item{obj: obj})

		case it := <-m.retryCh:
			atomic.AddInt32(&m.pendingRetry, -1)
			m.place(it)

		case <-m.resolved:
			m.inFlight--

		case sendCh <- head:
			m.sealedQ = m.sealedQ[1:]

		case <-ticker.C:
			m.sealAged()

		case <-stop:
			stop = nil
			ctxLogger.Info("draining on abort")
			m.aborted = true
			m.sealAll()
		}

		if in == nil && m.inFlight == 0 && len(m.open) == 0 &&
			len(m.sealedQ) == 0 && len(m.retryCh) == 0 &&
			atomic.LoadInt32(&m.pendingRetry) == 0 {
			close(m.sealedCh)
			return
		}
	}
}

func (m *Manager) tickEvery() time.Duration {
	tick := m.bounds.MaxOpen / 2
	if tick <= 0 {
		tick = time.Second
	}
	return tick
}

// place selects a destination for the item and appends it to the open
// assignment of that destination. The selector reserved the capacity
// before returning, so a failure past this point must release it.
func (m *Manager) place(it *item) {
	if m.aborted {
		// No new reservations while draining; the object stays
		// Pending and is picked up by a resume run.
		return
	}

	dst, err := m.selector.Select(it.obj, m.source, it.exclude)
	if err == placement.ErrNoDestination {
		m.recorder.MarkSkipped(it.obj.Key)
		return
	}
	if err != nil {
		m.recorder.Fatal(err)
		return
	}

	a, ok := m.open[dst]
	if !ok {
		a = &Assignment{
			ID:       uuid.Gen(),
			Shark:    dst,
			Status:   Building,
			openedAt: time.Now(),
		}
		m.open[dst] = a
	}

	if err := m.store.SetAssigned(repository.NotTx, m.jobID, it.obj.Key, dst, a.ID); err != nil {
		m.selector.Release(dst, it.obj.Size)
		m.recorder.Fatal(err)
		return
	}
	it.obj.Status = object.Assigned
	it.obj.AssignedShark = dst

	a.items = append(a.items, it)
	a.Bytes += it.obj.Size

	if len(a.items) >= m.bounds.MaxObjects || a.Bytes >= m.bounds.MaxBytes {
		m.seal(a)
	}
}

func (m *Manager) seal(a *Assignment) {
	delete(m.open, a.Shark)
	if len(a.items) == 0 {
		return
	}
	m.inFlight++
	m.sealedQ = append(m.sealedQ, a)
}

func (m *Manager) sealAll() {
	for _, a := range m.open {
		m.seal(a)
	}
}

func (m *Manager) sealAged() {
	now := time.Now()
	for _, a := range m.open {
		if now.Sub(a.openedAt) >= m.bounds.MaxOpen {
			m.seal(a)
		}
	}
}
