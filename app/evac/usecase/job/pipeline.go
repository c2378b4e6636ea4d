package job

import (
	"sync"

	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/app/evac/usecase/assignment"
	"github.com/chanyoung/evac/app/evac/usecase/completion"
	"github.com/chanyoung/evac/app/evac/usecase/discovery"
	"github.com/chanyoung/evac/app/evac/usecase/placement"
	"github.com/chanyoung/evac/pkg/evacrpc"
	"github.com/chanyoung/evac/pkg/util/mlog"
	"github.com/pkg/errors"
)

// run drives one job through Setup and Running to its terminal state.
// Each stage is a goroutine; the bounded channels between them carry
// the backpressure, the tracker carries the stop signal.
func (h *handlers) run(j *Job, t *Tracker) {
	ctxLogger := mlog.GetMethodLogger(logger, "handlers.run")

	defer func() {
		h.mu.Lock()
		delete(h.active, j.ID)
		h.mu.Unlock()
	}()

	p, err := h.setup(j, t)
	if err != nil {
		ctxLogger.Errorf("setup of job %s failed: %v", j.ID, err)
		h.transition(j, Failed)
		return
	}

	if err := h.transition(j, Running); err != nil {
		ctxLogger.Errorf("job %s could not enter running: %v", j.ID, err)
		h.transition(j, Failed)
		return
	}

	sink := &pipelineSink{tracker: t, ledger: p.ledger}
	reg := &completionRegistry{
		jobID:  j.ID,
		source: j.SourceShark,
		broker: h.broker,
		sink:   sink,
	}

	// Discovery joins the same wait group as the posters; its fatal
	// must be recorded before the terminal state is decided.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.adapter.Run(t.Stop(), p.objects, t); err != nil {
			t.Fatal(err)
		}
	}()
	go p.manager.Run(t.Stop())

	for i := 0; i < h.tun.postWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assignment.NewPoster(p.manager, h.tun.postRetry, h.probes.Post, reg, h.reportAddr).Run()
		}()
	}

	wg.Wait()
	h.broker.WaitJob(j.ID)

	final := Complete
	if t.Err() != nil || t.Aborted() {
		final = Failed
	}
	h.transition(j, final)
	ctxLogger.Infof("job %s finished: %s", j.ID, final)
}

// pipeline is the assembled but not yet started stage set of one job.
type pipeline struct {
	ledger  *placement.Ledger
	adapter *discovery.Adapter
	objects chan *object.Object
	manager *assignment.Manager
}

func (h *handlers) setup(j *Job, t *Tracker) (*pipeline, error) {
	if err := h.transition(j, Setup); err != nil {
		return nil, err
	}

	ledger, err := placement.NewLedger(h.tun.headroom)
	if err != nil {
		return nil, err
	}
	snapshot, err := h.probes.Snapshot()
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch capacity snapshot")
	}
	ledger.Init(snapshot)

	mode := discovery.Live
	var fetch discovery.FetchFunc
	if j.Mode == evacrpc.SourceResume {
		mode = discovery.Resume
	} else {
		fetch = h.probes.Fetcher(j.SourceShark)
	}
	adapter, err := discovery.NewAdapter(mode, j.ID, h.objects, fetch, h.tun.batch, h.tun.retry, h.tun.backoff)
	if err != nil {
		return nil, err
	}

	objects := make(chan *object.Object, h.tun.queue)
	bounds := assignment.Bounds{
		MaxObjects: h.tun.maxObjects,
		MaxBytes:   h.tun.maxBytes,
		MaxOpen:    h.tun.maxOpen,
	}
	mgr := assignment.NewManager(j.ID, j.SourceShark, bounds, ledger, t, h.asgn, objects, h.tun.queue)

	return &pipeline{
		ledger:  ledger,
		adapter: adapter,
		objects: objects,
		manager: mgr,
	}, nil
}

// transition durably records a job state change before exposing it.
func (h *handlers) transition(j *Job, s State) error {
	if err := h.store.UpdateJobState(repository.NotTx, j.ID, s); err != nil {
		logger.Errorf("failed to record job %s state %s: %v", j.ID, s, err)
		return err
	}
	j.State = s
	return nil
}

// pipelineSink finalizes objects on completion reports: terminal marks
// through the tracker, capacity release on the ledger.
type pipelineSink struct {
	tracker *Tracker
	ledger  *placement.Ledger
}

func (s *pipelineSink) MarkCompleted(key string) {
	s.tracker.MarkCompleted(key)
}

func (s *pipelineSink) MarkFailed(key string, reconcile bool) {
	s.tracker.MarkFailed(key, reconcile)
}

func (s *pipelineSink) Release(shark string, size uint64) {
	s.ledger.Release(shark, size)
}

// completionRegistry binds accepted assignments of one job to the
// completion broker.
type completionRegistry struct {
	jobID  string
	source string
	broker *completion.Broker
	sink   completion.Sink
}

func (r *completionRegistry) Register(assignmentID, shark string, objs []assignment.InflightObject) {
	co := make([]completion.Obj, 0, len(objs))
	for _, o := range objs {
		co = append(co, completion.Obj{Key: o.Key, Size: o.Size})
	}
	r.broker.Register(r.jobID, assignmentID, shark, r.source, co, r.sink)
}
