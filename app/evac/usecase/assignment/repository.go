package assignment

import (
	"github.com/chanyoung/evac/app/evac/repository"
)

// Repository provides access to repository database.
type Repository interface {
	// SetAssigned records the selected destination and open assignment
	// of an object and moves it to the Assigned status.
	SetAssigned(txid repository.TxID, jobID, key, shark, assignmentID string) error

	// SetPosted moves every given object of the accepted assignment to
	// the Posted status.
	SetPosted(txid repository.TxID, jobID, assignmentID string, keys []string) error

	// SetPending puts an object of a rejected assignment back to the
	// Pending status with no destination.
	SetPending(txid repository.TxID, jobID, key string) error
}
