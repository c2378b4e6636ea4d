package job

import (
	"sync"

	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/pkg/util/mlog"
	"github.com/pkg/errors"
)

// ObjectInserter durably registers discovered objects.
type ObjectInserter interface {
	InsertObject(txid repository.TxID, jobID string, obj *object.Object) error
}

// Tracker is the single writer of result counters and terminal object
// statuses for one job. Every other stage reports through it, so a
// counter increment and its status write always land in one
// transaction and each object is counted exactly once.
type Tracker struct {
	jobID string
	store Repository
	objs  ObjectInserter

	stopOnce sync.Once
	stopCh   chan struct{}

	mu      sync.Mutex
	fatal   error
	aborted bool
}

// NewTracker creates a tracker for the given job.
func NewTracker(jobID string, store Repository, objs ObjectInserter) *Tracker {
	logger = mlog.GetPackageLogger("app/evac/usecase/job")

	return &Tracker{
		jobID:  jobID,
		store:  store,
		objs:   objs,
		stopCh: make(chan struct{}),
	}
}

// Stop is closed on abort or on the first fatal error. Pipeline stages
// select on it to drain cooperatively.
func (t *Tracker) Stop() <-chan struct{} {
	return t.stopCh
}

// Abort requests a cooperative drain of the pipeline.
func (t *Tracker) Abort() {
	t.mu.Lock()
	t.aborted = true
	t.mu.Unlock()

	t.stopOnce.Do(func() { close(t.stopCh) })
}

// Aborted reports whether the operator requested an abort.
func (t *Tracker) Aborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted
}

// Fatal records an unrecoverable job error and triggers the drain.
// Only the first error is kept.
func (t *Tracker) Fatal(err error) {
	ctxLogger := mlog.GetMethodLogger(logger, "Tracker.Fatal")
	ctxLogger.Errorf("job %s fatal: %v", t.jobID, err)

	t.mu.Lock()
	if t.fatal == nil {
		t.fatal = err
	}
	t.mu.Unlock()

	t.stopOnce.Do(func() { close(t.stopCh) })
}

// Err returns the recorded fatal error, if any.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fatal
}

// ObjectDiscovered inserts a freshly discovered object and counts it
// toward total in the same transaction. A duplicated crawler record
// returns repository.ErrDuplicateEntry without counting.
func (t *Tracker) ObjectDiscovered(obj *object.Object) error {
	txid, err := t.store.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}

	if err := t.objs.InsertObject(txid, t.jobID, obj); err != nil {
		t.store.Rollback(txid)
		return err
	}
	if err := t.store.IncrCounter(txid, t.jobID, CounterTotal); err != nil {
		t.store.Rollback(txid)
		return errors.Wrap(err, "failed to increment total")
	}

	return t.store.Commit(txid)
}

// ObjectResumed re-registers a non-terminal object of a resumed job.
// The object was counted by its original run; nothing is written.
func (t *Tracker) ObjectResumed(obj *object.Object) error {
	return nil
}

// MarkSkipped finalizes an object with no valid destination.
func (t *Tracker) MarkSkipped(key string) {
	t.terminal(key, object.Skipped, false, CounterSkipped)
}

// MarkCompleted finalizes a moved and recorded object.
func (t *Tracker) MarkCompleted(key string) {
	t.terminal(key, object.Completed, false, CounterComplete)
}

// MarkFailed finalizes a failed object. Reconcile is set when the data
// moved but the metadata update did not land.
func (t *Tracker) MarkFailed(key string, reconcile bool) {
	t.terminal(key, object.Failed, reconcile, CounterFailed)
}

// terminal writes the final status and its counter in one transaction.
// The job result must stay consistent, so a write failure here is
// job-fatal.
func (t *Tracker) terminal(key string, status object.Status, reconcile bool, c Counter) {
	txid, err := t.store.Begin()
	if err != nil {
		t.Fatal(errors.Wrap(err, "failed to start transaction"))
		return
	}

	if err := t.store.SetObjectStatus(txid, t.jobID, key, status, reconcile); err != nil {
		t.store.Rollback(txid)
		t.Fatal(errors.Wrapf(err, "failed to finalize object %s", key))
		return
	}
	if err := t.store.IncrCounter(txid, t.jobID, c); err != nil {
		t.store.Rollback(txid)
		t.Fatal(errors.Wrapf(err, "failed to count object %s", key))
		return
	}

	if err := t.store.Commit(txid); err != nil {
		t.Fatal(errors.Wrapf(err, "failed to finalize object %s", key))
	}
}
