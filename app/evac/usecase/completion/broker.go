package completion

import (
	"net/rpc"
	"sync"
	"time"

	"github.com/chanyoung/evac/pkg/evacrpc"
	"github.com/chanyoung/evac/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// Obj is one posted object awaiting its completion report.
type Obj struct {
	Key  string
	Size uint64
}

// Sink finalizes objects on behalf of one job: terminal status marks
// through the job tracker and capacity release on the ledger. No other
// path may touch either.
type Sink interface {
	MarkCompleted(key string)
	MarkFailed(key string, reconcile bool)
	Release(shark string, size uint64)
}

// MetaFunc updates the authoritative replica record of an object.
type MetaFunc func(objectKey, addShark, removeShark string) error

// MetaUpdater returns a MetaFunc which updates the metadata store over rpc.
func MetaUpdater(addr string, timeout time.Duration) MetaFunc {
	return func(objectKey, addShark, removeShark string) error {
		conn, err := evacrpc.Dial(addr, evacrpc.RPCEvac, timeout)
		if err != nil {
			return errors.Wrap(err, "failed to dial")
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(timeout))

		req := &evacrpc.MDMUpdateLocationRequest{
			ObjectKey:   objectKey,
			AddShark:    addShark,
			RemoveShark: removeShark,
		}
		res := &evacrpc.MDMUpdateLocationResponse{}

		cli := rpc.NewClient(conn)
		defer cli.Close()
		return cli.Call(evacrpc.MetaUpdateLocation.String(), req, res)
	}
}

// batch is one accepted assignment awaiting per-object reports.
type batch struct {
	jobID  string
	shark  string
	source string
	objs   map[string]uint64
	sink   Sink
	timer  *time.Timer
}

// Broker consumes per-object completion reports from agents, updates
// the metadata store and finalizes object status.
type Broker struct {
	meta         MetaFunc
	removeSource bool

	// expire bounds how long an accepted assignment may stay silent.
	// No stage blocks indefinitely waiting on an agent.
	expire time.Duration

	mu       sync.Mutex
	inflight map[string]*batch
	pending  map[string]int
	waiters  map[string][]chan struct{}
}

// NewBroker creates a completion broker with necessary dependencies.
func NewBroker(meta MetaFunc, removeSource bool, expire time.Duration) *Broker {
	logger = mlog.GetPackageLogger("app/evac/usecase/completion")

	return &Broker{
		meta:         meta,
		removeSource: removeSource,
		expire:       expire,
		inflight:     make(map[string]*batch),
		pending:      make(map[string]int),
		waiters:      make(map[string][]chan struct{}),
	}
}

// Register starts completion tracking of an accepted assignment.
func (b *Broker) Register(jobID, assignmentID, shark, source string, objs []Obj, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bt := &batch{
		jobID:  jobID,
		shark:  shark,
		source: source,
		objs:   make(map[string]uint64, len(objs)),
		sink:   sink,
	}
	for _, o := range objs {
		bt.objs[o.Key] = o.Size
	}
	bt.timer = time.AfterFunc(b.expire, func() {
		b.expireBatch(assignmentID)
	})

	b.inflight[assignmentID] = bt
	b.pending[jobID]++
}

// Report handles one per-object completion report from an agent.
func (b *Broker) Report(req *evacrpc.EVCReportRequest, res *evacrpc.EVCReportResponse) error {
	ctxLogger := mlog.GetMethodLogger(logger, "Broker.Report")

	b.mu.Lock()
	bt, ok := b.inflight[req.AssignmentID]
	if !ok {
		b.mu.Unlock()
		// Late or duplicated report; the batch already resolved.
		ctxLogger.Infof("report for unknown assignment %s, object %s", req.AssignmentID, req.ObjectKey)
		return nil
	}
	size, ok := bt.objs[req.ObjectKey]
	if !ok {
		b.mu.Unlock()
		ctxLogger.Infof("duplicated report for object %s", req.ObjectKey)
		return nil
	}
	delete(bt.objs, req.ObjectKey)
	b.mu.Unlock()

	if req.Success {
		b.finishMoved(bt, req.ObjectKey)
	} else {
		// Transfer failed: the reservation is invalid.
		ctxLogger.Errorf("agent %s failed to move %s: %s", bt.shark, req.ObjectKey, req.Error)
		bt.sink.Release(bt.shark, size)
		bt.sink.MarkFailed(req.ObjectKey, false)
	}

	b.resolveIfDone(req.AssignmentID, bt)
	return nil
}

// finishMoved updates the metadata record of a moved object. A failed
// update leaves data moved but the record stale; that object is marked
// Failed with the reconcile flag and is never retried silently, since
// an automatic retry risks duplicate replicas.
func (b *Broker) finishMoved(bt *batch, key string) {
	removeShark := ""
	if b.removeSource {
		removeShark = bt.source
	}

	if err := b.meta(key, bt.shark, removeShark); err != nil {
		logger.Errorf("metadata update for %s failed, manual reconciliation required: %v", key, err)
		bt.sink.MarkFailed(key, true)
		return
	}

	bt.sink.MarkCompleted(key)
}

// expireBatch fails every unreported object of a silent assignment.
func (b *Broker) expireBatch(assignmentID string) {
	ctxLogger := mlog.GetMethodLogger(logger, "Broker.expireBatch")

	b.mu.Lock()
	bt, ok := b.inflight[assignmentID]
	if !ok {
		b.mu.Unlock()
		return
	}
	remain := bt.objs
	bt.objs = make(map[string]uint64)
	b.mu.Unlock()

	for key, size := range remain {
		ctxLogger.Errorf("no completion report for %s within %v", key, b.expire)
		bt.sink.Release(bt.shark, size)
		bt.sink.MarkFailed(key, false)
	}

	b.resolveIfDone(assignmentID, bt)
}

func (b *Broker) resolveIfDone(assignmentID string, bt *batch) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.inflight[assignmentID]; !ok || len(bt.objs) != 0 {
		return
	}

	bt.timer.Stop()
	delete(b.inflight, assignmentID)

	b.pending[bt.jobID]--
	if b.pending[bt.jobID] > 0 {
		return
	}

	delete(b.pending, bt.jobID)
	for _, ch := range b.waiters[bt.jobID] {
		close(ch)
	}
	delete(b.waiters, bt.jobID)
}

// WaitJob blocks until every registered assignment of the job has
// resolved. Call it after the assignment pipeline has drained; no new
// registrations for the job may follow.
func (b *Broker) WaitJob(jobID string) {
	b.mu.Lock()
	if b.pending[jobID] == 0 {
		b.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	b.waiters[jobID] = append(b.waiters[jobID], ch)
	b.mu.Unlock()

	<-ch
}
