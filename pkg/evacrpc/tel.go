package evacrpc

// TELShark is the capacity record of one shark.
type TELShark struct {
	ID          string
	FaultDomain string
	Addr        string
	Total       uint64
	Available   uint64
}

// TELUsageRequest requests a capacity snapshot of all known sharks.
type TELUsageRequest struct{}

// TELUsageResponse contains the capacity snapshot.
type TELUsageResponse struct {
	Sharks []TELShark
}
