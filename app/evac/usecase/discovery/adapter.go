package discovery

import (
	"fmt"
	"net/rpc"
	"time"

	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/pkg/evacrpc"
	"github.com/chanyoung/evac/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// Mode is the object source of a job, fixed at job setup.
type Mode int

const (
	// Live : consume the record stream of the discovery crawler.
	Live Mode = iota
	// Resume : read non-terminal objects of an interrupted job from
	// the job state store. Live discovery must never be re-run
	// mid-job; it would duplicate discovery.
	Resume
)

// Recorder records discovered objects on behalf of the job controller.
// It owns the total counter and the outstanding object count.
type Recorder interface {
	// ObjectDiscovered durably inserts a newly discovered object.
	ObjectDiscovered(obj *object.Object) error
	// ObjectResumed re-registers a non-terminal object of a resumed
	// job without counting it again.
	ObjectResumed(obj *object.Object) error
}

// FetchFunc fetches the next batch of crawler records from the given
// marker position.
type FetchFunc func(marker string, limit int) (*evacrpc.SPTNextResponse, error)

// Adapter produces the finite sequence of evacuate object candidates
// for one job, either from the live crawler or from the state store.
type Adapter struct {
	mode  Mode
	jobID string
	store Repository
	fetch FetchFunc

	batch   int
	retry   int
	backoff time.Duration
}

// NewAdapter creates a discovery adapter for one job.
func NewAdapter(mode Mode, jobID string, store Repository, fetch FetchFunc, batch, retry int, backoff time.Duration) (*Adapter, error) {
	logger = mlog.GetPackageLogger("app/evac/usecase/discovery")

	if store == nil {
		return nil, fmt.Errorf("invalid arguments")
	}
	if mode == Live && fetch == nil {
		return nil, fmt.Errorf("live discovery requires a fetcher")
	}
	if batch <= 0 {
		return nil, fmt.Errorf("invalid batch size: %d", batch)
	}

	return &Adapter{
		mode:    mode,
		jobID:   jobID,
		store:   store,
		fetch:   fetch,
		batch:   batch,
		retry:   retry,
		backoff: backoff,
	}, nil
}

// LiveFetcher returns a FetchFunc which pages crawler records over rpc.
func LiveFetcher(addr, sourceShark string, timeout time.Duration) FetchFunc {
	return func(marker string, limit int) (*evacrpc.SPTNextResponse, error) {
		conn, err := evacrpc.Dial(addr, evacrpc.RPCEvac, timeout)
		if err != nil {
			return nil, errors.Wrap(err, "failed to dial")
		}
		defer conn.Close()

		req := &evacrpc.SPTNextRequest{
			SourceShark: sourceShark,
			Marker:      marker,
			Limit:       limit,
		}
		res := &evacrpc.SPTNextResponse{}

		cli := rpc.NewClient(conn)
		defer cli.Close()
		if err := cli.Call(evacrpc.SpotterNext.String(), req, res); err != nil {
			return nil, err
		}
		return res, nil
	}
}

// Run emits every candidate object into out, then closes it. Sending
// blocks when the downstream stage is slow; stop cuts the stream short
// on abort. The returned error is job-fatal: discovery retries were
// exhausted or a durable store write failed.
func (a *Adapter) Run(stop <-chan struct{}, out chan<- *object.Object, rec Recorder) error {
	defer close(out)

	switch a.mode {
	case Live:
		return a.runLive(stop, out, rec)
	case Resume:
		return a.runResume(stop, out, rec)
	default:
		return fmt.Errorf("unknown discovery mode: %d", a.mode)
	}
}

func (a *Adapter) runLive(stop <-chan struct{}, out chan<- *object.Object, rec Recorder) error {
	ctxLogger := mlog.GetMethodLogger(logger, "Adapter.runLive")

	marker := ""
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		res, err := a.fetchWithRetry(marker)
		if err != nil {
			return errors.Wrap(err, "discovery retries exhausted")
		}

		for _, r := range res.Records {
			obj := &object.Object{
				Key:      r.Key,
				Size:     r.Size,
				Replicas: make([]object.Replica, 0, len(r.Replicas)),
				Status:   object.Pending,
			}
			for _, rep := range r.Replicas {
				obj.Replicas = append(obj.Replicas, object.Replica{
					Shark:       rep.Shark,
					FaultDomain: rep.FaultDomain,
				})
			}

			if err := rec.ObjectDiscovered(obj); err != nil {
				if errors.Cause(err) == repository.ErrDuplicateEntry {
					// A crawler retry re-delivered the record.
					continue
				}
				return errors.Wrap(err, "failed to record discovered object")
			}

			select {
			case out <- obj:
			case <-stop:
				return nil
			}
		}

		if res.EOF {
			ctxLogger.Infof("discovery exhausted at marker %q", res.Marker)
			return nil
		}
		marker = res.Marker
	}
}

func (a *Adapter) fetchWithRetry(marker string) (*evacrpc.SPTNextResponse, error) {
	var err error
	for i := 0; i <= a.retry; i++ {
		if i > 0 {
			time.Sleep(a.backoff * time.Duration(i))
		}

		var res *evacrpc.SPTNextResponse
		if res, err = a.fetch(marker, a.batch); err == nil {
			return res, nil
		}
		logger.Errorf("transient discovery error: %v", err)
	}
	return nil, err
}

func (a *Adapter) runResume(stop <-chan struct{}, out chan<- *object.Object, rec Recorder) error {
	if err := a.store.ResetNonTerminal(repository.NotTx, a.jobID); err != nil {
		return errors.Wrap(err, "failed to reset non-terminal objects")
	}

	objs, err := a.store.FindNonTerminal(repository.NotTx, a.jobID)
	if err != nil {
		return errors.Wrap(err, "failed to read resume objects")
	}

	for _, obj := range objs {
		obj.Status = object.Pending
		obj.AssignedShark = ""

		if err := rec.ObjectResumed(obj); err != nil {
			return errors.Wrap(err, "failed to record resumed object")
		}

		select {
		case out <- obj:
		case <-stop:
			return nil
		}
	}

	return nil
}
