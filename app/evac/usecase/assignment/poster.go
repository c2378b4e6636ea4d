package assignment

import (
	"sync/atomic"

	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/pkg/evacrpc"
	"github.com/chanyoung/evac/pkg/util/mlog"
)

// Poster transmits sealed assignments to destination agents and
// interprets accept/reject. Several posters share one manager.
type Poster struct {
	mgr *Manager

	retry      int
	post       PostFunc
	registry   Registry
	reportAddr string
}

// NewPoster creates an assignment poster attached to the manager.
func NewPoster(mgr *Manager, retry int, post PostFunc, registry Registry, reportAddr string) *Poster {
	return &Poster{
		mgr:        mgr,
		retry:      retry,
		post:       post,
		registry:   registry,
		reportAddr: reportAddr,
	}
}

// Run posts sealed assignments until the manager drains.
func (p *Poster) Run() {
	for a := range p.mgr.Sealed() {
		p.handle(a)
		p.mgr.resolved <- a
	}
}

func (p *Poster) handle(a *Assignment) {
	ctxLogger := mlog.GetMethodLogger(logger, "Poster.handle")

	addr, err := p.mgr.selector.Addr(a.Shark)
	if err != nil {
		ctxLogger.Errorf("no agent address for %s: %v", a.Shark, err)
		p.reject(a)
		return
	}

	req := &evacrpc.AGTAssignRequest{
		AssignmentID: a.ID,
		SourceShark:  p.mgr.source,
		ReportAddr:   p.reportAddr,
		Objects:      make([]evacrpc.AGTObject, 0, len(a.items)),
	}
	for _, it := range a.items {
		req.Objects = append(req.Objects, evacrpc.AGTObject{
			Key:  it.obj.Key,
			Size: it.obj.Size,
		})
	}

	a.Status = Posted

	// Agent communication timeouts are retried up to the configured
	// bound before the assignment counts as rejected.
	res := &evacrpc.AGTAssignResponse{}
	var postErr error
	for i := 0; i <= p.retry; i++ {
		*res = evacrpc.AGTAssignResponse{}
		if postErr = p.post(addr, req, res); postErr == nil {
			break
		}
		ctxLogger.Errorf("post %s to %s failed: %v", a.ID, a.Shark, postErr)
	}

	if postErr != nil || !res.Accepted {
		if postErr == nil {
			ctxLogger.Infof("agent %s rejected %s: %s", a.Shark, a.ID, res.Reason)
		}
		p.reject(a)
		return
	}

	if err := p.mgr.store.SetPosted(repository.NotTx, p.mgr.jobID, a.ID, a.Keys()); err != nil {
		p.mgr.recorder.Fatal(err)
		p.reject(a)
		return
	}

	objs := make([]InflightObject, 0, len(a.items))
	for _, it := range a.items {
		it.obj.Status = object.Posted
		objs = append(objs, InflightObject{Key: it.obj.Key, Size: it.obj.Size})
	}

	a.Status = Accepted
	p.registry.Register(a.ID, a.Shark, objs)
}

// reject invalidates the capacity reservations of the assignment and
// returns its objects to the selector once; twice-rejected objects
// are skipped.
func (p *Poster) reject(a *Assignment) {
	a.Status = Rejected

	for _, it := range a.items {
		p.mgr.selector.Release(a.Shark, it.obj.Size)

		switch {
		case p.mgr.recorder.Aborted():
			// Draining: leave the object Pending for a resume run.
			p.setPending(it)

		case it.retried:
			p.mgr.recorder.MarkSkipped(it.obj.Key)

		default:
			it.retried = true
			it.exclude = append(it.exclude, a.Shark)
			if !p.setPending(it) {
				continue
			}
			atomic.AddInt32(&p.mgr.pendingRetry, 1)
			p.mgr.retryCh <- it
		}
	}
}

func (p *Poster) setPending(it *item) bool {
	if err := p.mgr.store.SetPending(repository.NotTx, p.mgr.jobID, it.obj.Key); err != nil {
		p.mgr.recorder.Fatal(err)
		return false
	}
	it.obj.Status = object.Pending
	it.obj.AssignedShark = ""
	return true
}
