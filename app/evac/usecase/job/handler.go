package job

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/app/evac/usecase/assignment"
	"github.com/chanyoung/evac/app/evac/usecase/completion"
	"github.com/chanyoung/evac/app/evac/usecase/discovery"
	"github.com/chanyoung/evac/app/evac/usecase/placement"
	"github.com/chanyoung/evac/pkg/evacrpc"
	"github.com/chanyoung/evac/pkg/util/config"
	"github.com/chanyoung/evac/pkg/util/mlog"
	"github.com/chanyoung/evac/pkg/util/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// Probes are the outbound calls of the pipeline. Nil fields fall back
// to the rpc implementations built from the configuration.
type Probes struct {
	Snapshot func() ([]placement.Candidate, error)
	Fetcher  func(sourceShark string) discovery.FetchFunc
	Post     assignment.PostFunc
}

// tuning is the parsed pipeline configuration.
type tuning struct {
	batch   int
	retry   int
	backoff time.Duration

	maxObjects int
	maxBytes   uint64
	maxOpen    time.Duration

	postWorkers int
	postRetry   int
	postTimeout time.Duration

	headroom float64
	queue    int
}

type handlers struct {
	cfg *config.Evac
	tun tuning

	store   Repository
	objects discovery.Repository
	asgn    assignment.Repository
	broker  *completion.Broker
	probes  Probes

	reportAddr string

	mu     sync.Mutex
	active map[string]*Tracker
}

// NewHandlers creates a job handlers with necessary dependencies.
func NewHandlers(cfg *config.Evac, store Repository, objects discovery.Repository, asgn assignment.Repository, broker *completion.Broker, probes Probes) (Handlers, error) {
	logger = mlog.GetPackageLogger("app/evac/usecase/job")

	tun, err := parseTuning(cfg)
	if err != nil {
		return nil, err
	}

	if probes.Snapshot == nil {
		probes.Snapshot = placement.Telemetry(cfg.TelemetryAddr, cfg.AgentPort, tun.postTimeout)
	}
	if probes.Fetcher == nil {
		probes.Fetcher = func(sourceShark string) discovery.FetchFunc {
			return discovery.LiveFetcher(cfg.SpotterAddr, sourceShark, tun.postTimeout)
		}
	}
	if probes.Post == nil {
		probes.Post = assignment.AgentPoster(tun.postTimeout)
	}

	return &handlers{
		cfg:        cfg,
		tun:        tun,
		store:      store,
		objects:    objects,
		asgn:       asgn,
		broker:     broker,
		probes:     probes,
		reportAddr: net.JoinHostPort(cfg.ServerAddr, cfg.ServerPort),
		active:     make(map[string]*Tracker),
	}, nil
}

func parseTuning(cfg *config.Evac) (tun tuning, err error) {
	if tun.batch, err = strconv.Atoi(cfg.DiscoveryBatch); err != nil {
		return tun, errors.Wrap(err, "invalid discovery batch")
	}
	if tun.retry, err = strconv.Atoi(cfg.DiscoveryRetry); err != nil {
		return tun, errors.Wrap(err, "invalid discovery retry")
	}
	if tun.backoff, err = time.ParseDuration(cfg.DiscoveryBackoff); err != nil {
		return tun, errors.Wrap(err, "invalid discovery backoff")
	}
	if tun.maxObjects, err = strconv.Atoi(cfg.AssignmentMaxObjects); err != nil {
		return tun, errors.Wrap(err, "invalid assignment object bound")
	}
	if tun.maxBytes, err = strconv.ParseUint(cfg.AssignmentMaxBytes, 10, 64); err != nil {
		return tun, errors.Wrap(err, "invalid assignment byte bound")
	}
	if tun.maxOpen, err = time.ParseDuration(cfg.AssignmentMaxOpen); err != nil {
		return tun, errors.Wrap(err, "invalid assignment age bound")
	}
	if tun.postWorkers, err = strconv.Atoi(cfg.PostWorkers); err != nil {
		return tun, errors.Wrap(err, "invalid post workers")
	}
	if tun.postRetry, err = strconv.Atoi(cfg.PostRetry); err != nil {
		return tun, errors.Wrap(err, "invalid post retry")
	}
	if tun.postTimeout, err = time.ParseDuration(cfg.PostTimeout); err != nil {
		return tun, errors.Wrap(err, "invalid post timeout")
	}
	if tun.headroom, err = strconv.ParseFloat(cfg.CapacityHeadroom, 64); err != nil {
		return tun, errors.Wrap(err, "invalid capacity headroom")
	}
	if tun.queue, err = strconv.Atoi(cfg.QueueSize); err != nil {
		return tun, errors.Wrap(err, "invalid queue size")
	}
	if tun.postWorkers < 1 {
		return tun, fmt.Errorf("post workers must be >= 1: got %d", tun.postWorkers)
	}
	if tun.queue < 1 {
		return tun, fmt.Errorf("queue size must be >= 1: got %d", tun.queue)
	}
	return tun, nil
}

// Start launches a new evacuation job, or resumes the named job if a
// non-terminal record of it exists. Starting an already running job is
// a no-op returning its id.
func (h *handlers) Start(req *evacrpc.EVJStartRequest, res *evacrpc.EVJStartResponse) error {
	ctxLogger := mlog.GetMethodLogger(logger, "handlers.Start")

	if req.JobID == "" {
		req.JobID = uuid.Gen()
	}

	h.mu.Lock()
	_, running := h.active[req.JobID]
	h.mu.Unlock()
	if running {
		res.JobID = req.JobID
		return nil
	}

	j, err := h.store.GetJob(repository.NotTx, req.JobID)
	if err == repository.ErrNotExist {
		j, err = h.newJob(req)
		if err != nil {
			return err
		}
	} else if err != nil {
		return errors.Wrap(err, "failed to look up job")
	} else {
		if j.State == Complete {
			return fmt.Errorf("job %s is already complete", j.ID)
		}
		// Interrupted or failed job: restart it from the durable
		// object table instead of re-running discovery.
		j.Mode = evacrpc.SourceResume
		if err := h.store.UpdateJobState(repository.NotTx, j.ID, Init); err != nil {
			return errors.Wrap(err, "failed to reset job state")
		}
		j.State = Init
	}

	t := NewTracker(j.ID, h.store, h.objects)

	h.mu.Lock()
	if _, running := h.active[j.ID]; running {
		h.mu.Unlock()
		res.JobID = j.ID
		return nil
	}
	h.active[j.ID] = t
	h.mu.Unlock()

	ctxLogger.Infof("starting job %s: evacuate %s (%s)", j.ID, j.SourceShark, j.Mode)
	go h.run(j, t)

	res.JobID = j.ID
	return nil
}

func (h *handlers) newJob(req *evacrpc.EVJStartRequest) (*Job, error) {
	if req.SourceShark == "" {
		return nil, fmt.Errorf("source shark required")
	}
	if req.Mode == evacrpc.SourceResume {
		return nil, fmt.Errorf("cannot resume unknown job %s", req.JobID)
	}
	if req.Mode != "" && req.Mode != evacrpc.SourceLive {
		return nil, fmt.Errorf("unknown job mode: %s", req.Mode)
	}

	j := &Job{
		ID:          req.JobID,
		SourceShark: req.SourceShark,
		Mode:        evacrpc.SourceLive,
		State:       Init,
	}
	if err := h.store.InsertJob(repository.NotTx, j); err != nil {
		return nil, errors.Wrap(err, "failed to create job")
	}
	return j, nil
}

// Status returns the state and result counters of the job.
func (h *handlers) Status(req *evacrpc.EVJStatusRequest, res *evacrpc.EVJStatusResponse) error {
	j, err := h.store.GetJob(repository.NotTx, req.JobID)
	if err == repository.ErrNotExist {
		return fmt.Errorf("no such job: %s", req.JobID)
	} else if err != nil {
		return errors.Wrap(err, "failed to look up job")
	}

	res.State = j.State.String()
	res.Total = j.Counters.Total
	res.Skipped = j.Counters.Skipped
	res.Complete = j.Counters.Complete
	res.Failed = j.Counters.Failed
	return nil
}

// Abort requests a graceful drain of a running job. Unassigned objects
// stay Pending and the job ends Failed, resumable later.
func (h *handlers) Abort(req *evacrpc.EVJAbortRequest, res *evacrpc.EVJAbortResponse) error {
	h.mu.Lock()
	t, ok := h.active[req.JobID]
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("job %s is not running", req.JobID)
	}

	logger.Infof("abort requested for job %s", req.JobID)
	t.Abort()
	return nil
}

// ListObjects returns the per-object table of the job.
func (h *handlers) ListObjects(req *evacrpc.EVJListObjectsRequest, res *evacrpc.EVJListObjectsResponse) error {
	objs, err := h.store.ListObjects(repository.NotTx, req.JobID, req.NonTerminalOnly)
	if err != nil {
		return errors.Wrap(err, "failed to list objects")
	}

	res.Objects = make([]evacrpc.ObjectRecord, 0, len(objs))
	for _, o := range objs {
		res.Objects = append(res.Objects, evacrpc.ObjectRecord{
			Key:            o.Key,
			Size:           o.Size,
			Status:         o.Status.String(),
			AssignedShark:  o.AssignedShark,
			NeedsReconcile: o.NeedsReconcile,
		})
	}
	return nil
}

// Handlers is the interface that provides job control rpc handlers.
type Handlers interface {
	Start(req *evacrpc.EVJStartRequest, res *evacrpc.EVJStartResponse) error
	Status(req *evacrpc.EVJStatusRequest, res *evacrpc.EVJStatusResponse) error
	Abort(req *evacrpc.EVJAbortRequest, res *evacrpc.EVJAbortResponse) error
	ListObjects(req *evacrpc.EVJListObjectsRequest, res *evacrpc.EVJListObjectsResponse) error
}
