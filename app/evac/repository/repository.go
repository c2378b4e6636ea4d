package repository

import "database/sql"

// TxID is a handle of an opened store transaction.
type TxID string

// NotTx means the query runs outside of any transaction.
const NotTx = TxID("")

// Store is a persistent data store for the evacuation orchestrator.
// Writes the job controller depends on for correctness must be
// synchronously durable before being acted upon elsewhere.
type Store interface {
	Query(txid TxID, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(txid TxID, query string, args ...interface{}) *sql.Row
	Execute(txid TxID, query string, args ...interface{}) (sql.Result, error)
	Begin() (TxID, error)
	Rollback(TxID) error
	Commit(TxID) error
	Close() error
}
