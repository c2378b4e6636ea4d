package object

// Status is the lifecycle status of an evacuate object.
type Status string

const (
	// Pending : discovered, not yet placed.
	Pending Status = "Pending"
	// Assigned : placed into an open assignment.
	Assigned Status = "Assigned"
	// Posted : its assignment is accepted by the destination agent.
	Posted Status = "Posted"
	// Completed : data moved and metadata record updated.
	Completed Status = "Completed"
	// Skipped : no valid destination exists, not retried within the job.
	Skipped Status = "Skipped"
	// Failed : transfer or metadata update failed.
	Failed Status = "Failed"
)

// String returns a string of the object status.
func (s Status) String() string {
	switch s {
	case Pending, Assigned, Posted, Completed, Skipped, Failed:
		return string(s)
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is an end state.
// Objects in a terminal status are never offered to the pipeline again.
func (s Status) Terminal() bool {
	return s == Completed || s == Skipped || s == Failed
}

// Replica is the location of one existing replica of the object.
type Replica struct {
	Shark       string
	FaultDomain string
}

// Object is one object discovered for an evacuation job.
// Created by discovery, placed by the assignment manager, finished by
// the completion broker. Never deleted; kept for audit and resume.
type Object struct {
	Key      string
	Size     uint64
	Replicas []Replica

	// AssignedShark is empty until a destination is selected.
	AssignedShark string
	Status        Status

	// NeedsReconcile marks the half-moved state: data transferred but
	// the metadata record was not updated.
	NeedsReconcile bool
}

// HasReplicaOn reports whether a replica of the object lives on the
// given shark.
func (o *Object) HasReplicaOn(shark string) bool {
	for _, r := range o.Replicas {
		if r.Shark == shark {
			return true
		}
	}
	return false
}

// HasReplicaIn reports whether a replica of the object lives in the
// given fault domain.
func (o *Object) HasReplicaIn(faultDomain string) bool {
	for _, r := range o.Replicas {
		if r.FaultDomain == faultDomain {
			return true
		}
	}
	return false
}
