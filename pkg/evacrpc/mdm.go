package evacrpc

// MDMUpdateLocationRequest updates the authoritative replica set of an
// object: add the new shark and, if RemoveShark is not empty, drop the
// evacuated source shark.
type MDMUpdateLocationRequest struct {
	ObjectKey   string
	AddShark    string
	RemoveShark string
}

// MDMUpdateLocationResponse is a response message to the update request.
type MDMUpdateLocationResponse struct{}
