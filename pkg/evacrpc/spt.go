package evacrpc

// SPTReplica is the location of one replica of a crawled object.
type SPTReplica struct {
	Shark       string
	FaultDomain string
}

// SPTRecord is one object record produced by the discovery crawler.
type SPTRecord struct {
	Key      string
	Size     uint64
	Replicas []SPTReplica
}

// SPTNextRequest requests the next batch of object records which have
// a replica on the given source shark. Marker is the opaque resume
// position returned by the previous call, empty on the first call.
type SPTNextRequest struct {
	SourceShark string
	Marker      string
	Limit       int
}

// SPTNextResponse contains a batch of records and the next marker.
// EOF is set when the crawler inventory is exhausted.
type SPTNextResponse struct {
	Records []SPTRecord
	Marker  string
	EOF     bool
}
