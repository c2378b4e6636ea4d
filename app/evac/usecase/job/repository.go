package job

import (
	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
)

// Repository provides access to the job state store.
type Repository interface {
	Begin() (repository.TxID, error)
	Rollback(repository.TxID) error
	Commit(repository.TxID) error

	InsertJob(txid repository.TxID, j *Job) error
	GetJob(txid repository.TxID, id string) (*Job, error)
	UpdateJobState(txid repository.TxID, id string, s State) error
	IncrCounter(txid repository.TxID, id string, c Counter) error

	SetObjectStatus(txid repository.TxID, jobID, key string, status object.Status, reconcile bool) error
	ListObjects(txid repository.TxID, jobID string, nonTerminalOnly bool) ([]*object.Object, error)
}
