package discovery

import (
	"testing"
	"time"

	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/pkg/evacrpc"
	"github.com/pkg/errors"
)

type fakeObjectStore struct {
	nonTerminal []*object.Object
	resets      int
}

func (s *fakeObjectStore) InsertObject(txid repository.TxID, jobID string, obj *object.Object) error {
	return nil
}

func (s *fakeObjectStore) FindNonTerminal(txid repository.TxID, jobID string) ([]*object.Object, error) {
	return s.nonTerminal, nil
}

func (s *fakeObjectStore) ResetNonTerminal(txid repository.TxID, jobID string) error {
	s.resets++
	return nil
}

type fakeRec struct {
	discovered []string
	resumed    []string
	duplicates map[string]bool
}

func (r *fakeRec) ObjectDiscovered(obj *object.Object) error {
	if r.duplicates[obj.Key] {
		return repository.ErrDuplicateEntry
	}
	r.discovered = append(r.discovered, obj.Key)
	return nil
}

func (r *fakeRec) ObjectResumed(obj *object.Object) error {
	r.resumed = append(r.resumed, obj.Key)
	return nil
}

// pagedFetcher serves the given pages in order, the last one with EOF.
func pagedFetcher(t *testing.T, pages [][]evacrpc.SPTRecord) FetchFunc {
	page := 0
	return func(marker string, limit int) (*evacrpc.SPTNextResponse, error) {
		if page >= len(pages) {
			t.Errorf("fetched past EOF at marker %q", marker)
			return &evacrpc.SPTNextResponse{EOF: true}, nil
		}
		res := &evacrpc.SPTNextResponse{
			Records: pages[page],
			Marker:  marker + "+",
			EOF:     page == len(pages)-1,
		}
		page++
		return res, nil
	}
}

func collect(t *testing.T, a *Adapter, rec Recorder) ([]*object.Object, error) {
	out := make(chan *object.Object, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(make(chan struct{}), out, rec)
	}()

	objs := make([]*object.Object, 0)
	for o := range out {
		objs = append(objs, o)
	}
	return objs, <-errCh
}

func TestLiveDiscoveryPaging(t *testing.T) {
	fetch := pagedFetcher(t, [][]evacrpc.SPTRecord{
		{
			{Key: "k1", Size: 10, Replicas: []evacrpc.SPTReplica{{Shark: "shark-01", FaultDomain: "rack-a"}}},
			{Key: "k2", Size: 20},
		},
		{
			{Key: "k3", Size: 30},
		},
	})

	store := &fakeObjectStore{}
	rec := &fakeRec{}
	a, err := NewAdapter(Live, "job-1", store, fetch, 2, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	objs, err := collect(t, a, rec)
	if err != nil {
		t.Fatal(err)
	}

	if len(objs) != 3 {
		t.Fatalf("expected 3 objects: got %d", len(objs))
	}
	if len(rec.discovered) != 3 {
		t.Errorf("expected 3 discovered records: got %v", rec.discovered)
	}
	if objs[0].Status != object.Pending {
		t.Errorf("expected discovered objects pending: got %s", objs[0].Status)
	}
	if !objs[0].HasReplicaOn("shark-01") {
		t.Errorf("expected replica locations carried over")
	}
}

func TestLiveDiscoverySkipsDuplicates(t *testing.T) {
	fetch := pagedFetcher(t, [][]evacrpc.SPTRecord{
		{{Key: "k1", Size: 10}, {Key: "k2", Size: 20}},
	})

	store := &fakeObjectStore{}
	rec := &fakeRec{duplicates: map[string]bool{"k1": true}}
	a, err := NewAdapter(Live, "job-1", store, fetch, 2, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	objs, err := collect(t, a, rec)
	if err != nil {
		t.Fatal(err)
	}

	if len(objs) != 1 || objs[0].Key != "k2" {
		t.Errorf("expected only k2 emitted: got %d objects", len(objs))
	}
}

func TestLiveDiscoveryRetry(t *testing.T) {
	calls := 0
	fetch := func(marker string, limit int) (*evacrpc.SPTNextResponse, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return &evacrpc.SPTNextResponse{
			Records: []evacrpc.SPTRecord{{Key: "k1", Size: 10}},
			EOF:     true,
		}, nil
	}

	store := &fakeObjectStore{}
	rec := &fakeRec{}
	a, err := NewAdapter(Live, "job-1", store, fetch, 2, 3, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	objs, err := collect(t, a, rec)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 {
		t.Errorf("expected recovery after transient errors: got %d objects", len(objs))
	}
}

func TestLiveDiscoveryRetryExhaustion(t *testing.T) {
	fetch := func(marker string, limit int) (*evacrpc.SPTNextResponse, error) {
		return nil, errors.New("connection refused")
	}

	store := &fakeObjectStore{}
	rec := &fakeRec{}
	a, err := NewAdapter(Live, "job-1", store, fetch, 2, 1, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := collect(t, a, rec); err == nil {
		t.Errorf("expected a fatal error after retry exhaustion")
	}
}

func TestResumeDiscovery(t *testing.T) {
	store := &fakeObjectStore{
		nonTerminal: []*object.Object{
			{Key: "k1", Size: 10, Status: object.Assigned, AssignedShark: "shark-03"},
			{Key: "k2", Size: 20, Status: object.Posted, AssignedShark: "shark-04"},
		},
	}
	rec := &fakeRec{}
	a, err := NewAdapter(Resume, "job-1", store, nil, 2, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	objs, err := collect(t, a, rec)
	if err != nil {
		t.Fatal(err)
	}

	if store.resets != 1 {
		t.Errorf("expected one durable reset before resuming: got %d", store.resets)
	}
	if len(objs) != 2 {
		t.Fatalf("expected 2 resumed objects: got %d", len(objs))
	}
	for _, o := range objs {
		if o.Status != object.Pending || o.AssignedShark != "" {
			t.Errorf("expected %s reset to pending with no destination: got %s on %q",
				o.Key, o.Status, o.AssignedShark)
		}
	}
	if len(rec.resumed) != 2 || len(rec.discovered) != 0 {
		t.Errorf("expected resumed objects not re-counted: got %v, %v", rec.resumed, rec.discovered)
	}
}

func TestNewAdapterValidation(t *testing.T) {
	store := &fakeObjectStore{}

	if _, err := NewAdapter(Live, "job-1", nil, nil, 2, 0, 0); err == nil {
		t.Errorf("expected error for nil store")
	}
	if _, err := NewAdapter(Live, "job-1", store, nil, 2, 0, 0); err == nil {
		t.Errorf("expected error for live mode without a fetcher")
	}
	if _, err := NewAdapter(Resume, "job-1", store, nil, 0, 0, 0); err == nil {
		t.Errorf("expected error for non-positive batch size")
	}
}
