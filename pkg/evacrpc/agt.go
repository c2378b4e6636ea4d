package evacrpc

// AGTObject is one object of an assignment.
type AGTObject struct {
	Key  string
	Size uint64
}

// AGTAssignRequest offers a batch of objects to a destination shark agent.
// The agent pulls each object's data from the source shark.
type AGTAssignRequest struct {
	AssignmentID string
	SourceShark  string
	ReportAddr   string
	Objects      []AGTObject
}

// AGTAssignResponse replies whether the agent accepted the assignment.
type AGTAssignResponse struct {
	Accepted bool
	Reason   string
}

// EVCReportRequest reports the transfer outcome of one object of an
// accepted assignment. Sent by the destination agent, asynchronously,
// some time after the accept.
type EVCReportRequest struct {
	AssignmentID string
	ObjectKey    string
	Success      bool
	Error        string
}

// EVCReportResponse is a response message to the completion report.
type EVCReportResponse struct{}
