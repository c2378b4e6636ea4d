package assignment

import (
	"net/rpc"
	"time"

	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/pkg/evacrpc"
)

// Status represents the current state of an assignment.
type Status string

const (
	// Building : open, still collecting objects.
	Building Status = "Building"
	// Posted : sealed and transmitted to the destination agent.
	Posted Status = "Posted"
	// Accepted : the agent accepted; completion is asynchronous.
	Accepted Status = "Accepted"
	// Rejected : the agent rejected or timed out past the retry bound.
	Rejected Status = "Rejected"
	// Completed : every object of the assignment has reported.
	Completed Status = "Completed"
)

// Assignment is a batch of objects destined for one shark. Built
// incrementally, sealed on a size or age bound, handed to the poster
// exactly once.
type Assignment struct {
	ID     string
	Shark  string
	Bytes  uint64
	Status Status

	items    []*item
	openedAt time.Time
}

// item wraps an object while it travels through the pipeline. An
// object rejected by an agent is offered to the selector once more
// with the rejecting shark excluded; the second failure skips it.
type item struct {
	obj     *object.Object
	exclude []string
	retried bool
}

// Keys returns the object keys of the assignment in order.
func (a *Assignment) Keys() []string {
	keys := make([]string, 0, len(a.items))
	for _, it := range a.items {
		keys = append(keys, it.obj.Key)
	}
	return keys
}

// Selector selects and reserves destinations on the capacity ledger.
type Selector interface {
	Select(obj *object.Object, source string, exclude []string) (string, error)
	Release(shark string, size uint64)
	Addr(shark string) (string, error)
}

// Recorder is the job tracker's mutation surface used by this stage.
// Terminal marks and fatal errors go nowhere else.
type Recorder interface {
	MarkSkipped(key string)
	Fatal(err error)
	Aborted() bool
}

// InflightObject is one posted object awaiting its completion report.
type InflightObject struct {
	Key  string
	Size uint64
}

// Registry accepts accepted assignments for completion tracking.
type Registry interface {
	Register(assignmentID, shark string, objs []InflightObject)
}

// PostFunc transmits an assignment to a destination agent.
type PostFunc func(addr string, req *evacrpc.AGTAssignRequest, res *evacrpc.AGTAssignResponse) error

// AgentPoster returns a PostFunc which posts assignments over rpc.
// The deadline covers both the dial and the accept/reject exchange.
func AgentPoster(timeout time.Duration) PostFunc {
	return func(addr string, req *evacrpc.AGTAssignRequest, res *evacrpc.AGTAssignResponse) error {
		conn, err := evacrpc.Dial(addr, evacrpc.RPCEvac, timeout)
		if err != nil {
			return err
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(timeout))

		cli := rpc.NewClient(conn)
		defer cli.Close()
		return cli.Call(evacrpc.AgentAssign.String(), req, res)
	}
}
