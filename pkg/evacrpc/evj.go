package evacrpc

// Object source modes of an evacuation job.
const (
	// SourceLive discovers objects from the crawler.
	SourceLive = "live"
	// SourceResume reads non-terminal objects of an interrupted job
	// from the job state store.
	SourceResume = "resume"
)

// EVJStartRequest requests to start an evacuation job for the given
// source shark. JobID may name an existing job, which is resumed
// instead of duplicated.
type EVJStartRequest struct {
	JobID       string
	SourceShark string
	Mode        string
}

// EVJStartResponse contains the id of the started or resumed job.
type EVJStartResponse struct {
	JobID string
}

// EVJStatusRequest requests the state and counters of a job.
type EVJStatusRequest struct {
	JobID string
}

// EVJStatusResponse contains the job state and the four result counters.
type EVJStatusResponse struct {
	State    string
	Total    uint64
	Skipped  uint64
	Complete uint64
	Failed   uint64
}

// EVJAbortRequest requests a graceful drain of the job.
type EVJAbortRequest struct {
	JobID string
}

// EVJAbortResponse is a response message to the abort request.
type EVJAbortResponse struct{}

// EVJListObjectsRequest requests the per-object table of a job.
// NonTerminalOnly narrows the listing to objects which are not yet
// Completed, Skipped or Failed.
type EVJListObjectsRequest struct {
	JobID           string
	NonTerminalOnly bool
}

// EVJListObjectsResponse contains the object records of a job.
type EVJListObjectsResponse struct {
	Objects []ObjectRecord
}

// ObjectRecord is one row of the per-object table.
type ObjectRecord struct {
	Key            string
	Size           uint64
	Status         string
	AssignedShark  string
	NeedsReconcile bool
}
