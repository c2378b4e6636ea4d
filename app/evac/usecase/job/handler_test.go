package job

import (
	"sync"
	"testing"
	"time"

	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/app/evac/usecase/assignment"
	"github.com/chanyoung/evac/app/evac/usecase/completion"
	"github.com/chanyoung/evac/app/evac/usecase/discovery"
	"github.com/chanyoung/evac/app/evac/usecase/placement"
	"github.com/chanyoung/evac/pkg/evacrpc"
	"github.com/chanyoung/evac/pkg/util/config"
	"github.com/pkg/errors"
)

// memStore is an in-memory stand-in for the mysql job state store. It
// backs all three repository interfaces of the pipeline.
type memStore struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	objects map[string]*object.Object

	stateErr map[State]error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:    make(map[string]*Job),
		objects: make(map[string]*object.Object),
	}
}

func (s *memStore) Begin() (repository.TxID, error)     { return repository.TxID("tx"), nil }
func (s *memStore) Rollback(txid repository.TxID) error { return nil }
func (s *memStore) Commit(txid repository.TxID) error   { return nil }

func (s *memStore) InsertJob(txid repository.TxID, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return repository.ErrDuplicateEntry
	}
	c := *j
	s.jobs[j.ID] = &c
	return nil
}

func (s *memStore) GetJob(txid repository.TxID, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, repository.ErrNotExist
	}
	c := *j
	return &c, nil
}

func (s *memStore) UpdateJobState(txid repository.TxID, id string, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.stateErr[st]; err != nil {
		return err
	}
	s.jobs[id].State = st
	return nil
}

func (s *memStore) IncrCounter(txid repository.TxID, id string, c Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.jobs[id]
	switch c {
	case CounterTotal:
		j.Counters.Total++
	case CounterSkipped:
		j.Counters.Skipped++
	case CounterComplete:
		j.Counters.Complete++
	case CounterFailed:
		j.Counters.Failed++
	}
	return nil
}

func (s *memStore) SetObjectStatus(txid repository.TxID, jobID, key string, status object.Status, reconcile bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.objects[key]
	o.Status = status
	o.NeedsReconcile = reconcile
	return nil
}

func (s *memStore) ListObjects(txid repository.TxID, jobID string, nonTerminalOnly bool) ([]*object.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs := make([]*object.Object, 0, len(s.objects))
	for _, o := range s.objects {
		if nonTerminalOnly && o.Status.Terminal() {
			continue
		}
		c := *o
		objs = append(objs, &c)
	}
	return objs, nil
}

func (s *memStore) InsertObject(txid repository.TxID, jobID string, obj *object.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[obj.Key]; ok {
		return repository.ErrDuplicateEntry
	}
	c := *obj
	s.objects[obj.Key] = &c
	return nil
}

func (s *memStore) FindNonTerminal(txid repository.TxID, jobID string) ([]*object.Object, error) {
	return s.ListObjects(txid, jobID, true)
}

func (s *memStore) ResetNonTerminal(txid repository.TxID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.objects {
		if !o.Status.Terminal() {
			o.Status = object.Pending
			o.AssignedShark = ""
		}
	}
	return nil
}

func (s *memStore) SetAssigned(txid repository.TxID, jobID, key, shark, assignmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.objects[key]
	o.Status = object.Assigned
	o.AssignedShark = shark
	return nil
}

func (s *memStore) SetPosted(txid repository.TxID, jobID, assignmentID string, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.objects[key].Status = object.Posted
	}
	return nil
}

func (s *memStore) SetPending(txid repository.TxID, jobID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.objects[key]
	o.Status = object.Pending
	o.AssignedShark = ""
	return nil
}

func testConfig() *config.Evac {
	return &config.Evac{
		ServerAddr:           "127.0.0.1",
		ServerPort:           "7740",
		DiscoveryBatch:       "2",
		DiscoveryRetry:       "1",
		DiscoveryBackoff:     "1ms",
		AssignmentMaxObjects: "2",
		AssignmentMaxBytes:   "1000000",
		AssignmentMaxOpen:    "1h",
		PostWorkers:          "2",
		PostRetry:            "0",
		PostTimeout:          "1s",
		CapacityHeadroom:     "1.0",
		QueueSize:            "4",
	}
}

func testProbes(broker *completion.Broker, records []evacrpc.SPTRecord) Probes {
	return Probes{
		Snapshot: func() ([]placement.Candidate, error) {
			return []placement.Candidate{
				{ID: "shark-01", FaultDomain: "rack-a", Addr: "10.0.0.1:7700", Total: 1 << 20, Available: 1 << 20},
				{ID: "shark-02", FaultDomain: "rack-b", Addr: "10.0.0.2:7700", Total: 1 << 20, Available: 1 << 20},
			}, nil
		},
		Fetcher: func(sourceShark string) discovery.FetchFunc {
			served := false
			return func(marker string, limit int) (*evacrpc.SPTNextResponse, error) {
				if served {
					return &evacrpc.SPTNextResponse{EOF: true}, nil
				}
				served = true
				return &evacrpc.SPTNextResponse{Records: records, EOF: true}, nil
			}
		},
		Post: acceptAndReport(broker),
	}
}

// acceptAndReport plays the destination agent: accept every assignment
// and report per-object success shortly after.
func acceptAndReport(broker *completion.Broker) assignment.PostFunc {
	return func(addr string, req *evacrpc.AGTAssignRequest, res *evacrpc.AGTAssignResponse) error {
		res.Accepted = true
		objs := make([]evacrpc.AGTObject, len(req.Objects))
		copy(objs, req.Objects)
		id := req.AssignmentID
		go func() {
			time.Sleep(50 * time.Millisecond)
			for _, o := range objs {
				broker.Report(&evacrpc.EVCReportRequest{
					AssignmentID: id,
					ObjectKey:    o.Key,
					Success:      true,
				}, &evacrpc.EVCReportResponse{})
			}
		}()
		return nil
	}
}

func waitTerminal(t *testing.T, h Handlers, jobID string) *evacrpc.EVJStatusResponse {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		res := &evacrpc.EVJStatusResponse{}
		if err := h.Status(&evacrpc.EVJStatusRequest{JobID: jobID}, res); err != nil {
			t.Fatal(err)
		}
		if res.State == Complete.String() || res.State == Failed.String() {
			return res
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func TestJobHappyPath(t *testing.T) {
	store := newMemStore()
	broker := completion.NewBroker(
		func(objectKey, addShark, removeShark string) error { return nil },
		true, time.Hour,
	)
	records := []evacrpc.SPTRecord{
		{Key: "k1", Size: 100},
		{Key: "k2", Size: 200},
		{Key: "k3", Size: 300},
	}

	h, err := NewHandlers(testConfig(), store, store, store, broker, testProbes(broker, records))
	if err != nil {
		t.Fatal(err)
	}

	res := &evacrpc.EVJStartResponse{}
	if err := h.Start(&evacrpc.EVJStartRequest{JobID: "job-1", SourceShark: "shark-00"}, res); err != nil {
		t.Fatal(err)
	}

	status := waitTerminal(t, h, "job-1")
	if status.State != Complete.String() {
		t.Fatalf("expected job complete: got %s", status.State)
	}
	if status.Total != 3 || status.Complete != 3 || status.Skipped != 0 || status.Failed != 0 {
		t.Errorf("expected counters 3/0/3/0: got %+v", status)
	}

	listed := &evacrpc.EVJListObjectsResponse{}
	if err := h.ListObjects(&evacrpc.EVJListObjectsRequest{JobID: "job-1"}, listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Objects) != 3 {
		t.Fatalf("expected 3 object records: got %d", len(listed.Objects))
	}
	for _, o := range listed.Objects {
		if o.Status != object.Completed.String() {
			t.Errorf("expected %s completed: got %s", o.Key, o.Status)
		}
	}
}

func TestJobResume(t *testing.T) {
	store := newMemStore()
	store.jobs["job-r"] = &Job{
		ID:          "job-r",
		SourceShark: "shark-00",
		Mode:        evacrpc.SourceLive,
		State:       Failed,
		Counters:    Counters{Total: 2},
	}
	store.objects["k1"] = &object.Object{Key: "k1", Size: 100, Status: object.Pending}
	store.objects["k2"] = &object.Object{Key: "k2", Size: 200, Status: object.Assigned, AssignedShark: "shark-09"}

	broker := completion.NewBroker(
		func(objectKey, addShark, removeShark string) error { return nil },
		true, time.Hour,
	)

	h, err := NewHandlers(testConfig(), store, store, store, broker, testProbes(broker, nil))
	if err != nil {
		t.Fatal(err)
	}

	res := &evacrpc.EVJStartResponse{}
	if err := h.Start(&evacrpc.EVJStartRequest{JobID: "job-r"}, res); err != nil {
		t.Fatal(err)
	}

	status := waitTerminal(t, h, "job-r")
	if status.State != Complete.String() {
		t.Fatalf("expected resumed job complete: got %s", status.State)
	}
	if status.Total != 2 || status.Complete != 2 {
		t.Errorf("expected resumed objects finished without re-counting: got %+v", status)
	}
}

func TestJobAbort(t *testing.T) {
	store := newMemStore()
	broker := completion.NewBroker(
		func(objectKey, addShark, removeShark string) error { return nil },
		true, time.Hour,
	)

	probes := testProbes(broker, nil)
	// Endless discovery, one record at a time.
	probes.Fetcher = func(sourceShark string) discovery.FetchFunc {
		return func(marker string, limit int) (*evacrpc.SPTNextResponse, error) {
			time.Sleep(5 * time.Millisecond)
			return &evacrpc.SPTNextResponse{
				Records: []evacrpc.SPTRecord{{Key: "k" + marker + "x", Size: 10}},
				Marker:  marker + "x",
			}, nil
		}
	}

	h, err := NewHandlers(testConfig(), store, store, store, broker, probes)
	if err != nil {
		t.Fatal(err)
	}

	res := &evacrpc.EVJStartResponse{}
	if err := h.Start(&evacrpc.EVJStartRequest{JobID: "job-a", SourceShark: "shark-00"}, res); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := h.Abort(&evacrpc.EVJAbortRequest{JobID: "job-a"}, &evacrpc.EVJAbortResponse{}); err != nil {
		t.Fatal(err)
	}

	status := waitTerminal(t, h, "job-a")
	if status.State != Failed.String() {
		t.Errorf("expected aborted job failed: got %s", status.State)
	}
}

func TestJobDiscoveryFailureFails(t *testing.T) {
	store := newMemStore()
	broker := completion.NewBroker(
		func(objectKey, addShark, removeShark string) error { return nil },
		true, time.Hour,
	)

	probes := testProbes(broker, nil)
	probes.Fetcher = func(sourceShark string) discovery.FetchFunc {
		return func(marker string, limit int) (*evacrpc.SPTNextResponse, error) {
			return nil, errors.New("crawler unreachable")
		}
	}

	h, err := NewHandlers(testConfig(), store, store, store, broker, probes)
	if err != nil {
		t.Fatal(err)
	}

	res := &evacrpc.EVJStartResponse{}
	if err := h.Start(&evacrpc.EVJStartRequest{JobID: "job-d", SourceShark: "shark-00"}, res); err != nil {
		t.Fatal(err)
	}

	status := waitTerminal(t, h, "job-d")
	if status.State != Failed.String() {
		t.Errorf("expected discovery retry exhaustion to fail the job: got %s", status.State)
	}
}

func TestJobRunningWriteFailureFails(t *testing.T) {
	store := newMemStore()
	store.stateErr = map[State]error{Running: errors.New("connection lost")}
	broker := completion.NewBroker(
		func(objectKey, addShark, removeShark string) error { return nil },
		true, time.Hour,
	)

	h, err := NewHandlers(testConfig(), store, store, store, broker, testProbes(broker, nil))
	if err != nil {
		t.Fatal(err)
	}

	res := &evacrpc.EVJStartResponse{}
	if err := h.Start(&evacrpc.EVJStartRequest{JobID: "job-w", SourceShark: "shark-00"}, res); err != nil {
		t.Fatal(err)
	}

	status := waitTerminal(t, h, "job-w")
	if status.State != Failed.String() {
		t.Errorf("expected a failed running transition to fail the job: got %s", status.State)
	}
}

func TestStartValidation(t *testing.T) {
	store := newMemStore()
	store.jobs["job-done"] = &Job{ID: "job-done", SourceShark: "shark-00", State: Complete}

	broker := completion.NewBroker(
		func(objectKey, addShark, removeShark string) error { return nil },
		true, time.Hour,
	)
	h, err := NewHandlers(testConfig(), store, store, store, broker, testProbes(broker, nil))
	if err != nil {
		t.Fatal(err)
	}

	res := &evacrpc.EVJStartResponse{}
	if err := h.Start(&evacrpc.EVJStartRequest{JobID: "job-done", SourceShark: "shark-00"}, res); err == nil {
		t.Errorf("expected error starting a complete job")
	}
	if err := h.Start(&evacrpc.EVJStartRequest{JobID: "job-x"}, res); err == nil {
		t.Errorf("expected error starting without a source shark")
	}
	if err := h.Start(&evacrpc.EVJStartRequest{JobID: "job-y", SourceShark: "shark-00", Mode: evacrpc.SourceResume}, res); err == nil {
		t.Errorf("expected error resuming an unknown job")
	}
	if err := h.Status(&evacrpc.EVJStatusRequest{JobID: "job-z"}, &evacrpc.EVJStatusResponse{}); err == nil {
		t.Errorf("expected error for an unknown job status")
	}
	if err := h.Abort(&evacrpc.EVJAbortRequest{JobID: "job-z"}, &evacrpc.EVJAbortResponse{}); err == nil {
		t.Errorf("expected error aborting a job that is not running")
	}
}
