package discovery

import (
	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
)

// Repository provides access to repository database.
type Repository interface {
	InsertObject(txid repository.TxID, jobID string, obj *object.Object) error

	// FindNonTerminal returns the objects of the job which have not
	// reached a terminal status, for resume mode discovery.
	FindNonTerminal(txid repository.TxID, jobID string) ([]*object.Object, error)

	// ResetNonTerminal puts every non-terminal object of the job back
	// to Pending with no destination, so a resumed run re-places them
	// against the fresh capacity ledger.
	ResetNonTerminal(txid repository.TxID, jobID string) error
}
