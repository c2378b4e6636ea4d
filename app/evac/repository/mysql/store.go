package mysql

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/pkg/util/config"
	"github.com/chanyoung/evac/pkg/util/mlog"
	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// Store is a mysql store, which stores the evacuation job state:
// the job records, the per-object status table and the resume
// checkpoints reconstructed from them.
type Store struct {
	// Configuration.
	cfg *config.Evac

	// Mysql store.
	db *sql.DB

	// Opened transactions, keyed by their ID.
	txs map[repository.TxID]*sql.Tx
	mu  sync.Mutex
}

// New creates a Store object with the opened db.
func New(cfg *config.Evac) (*Store, error) {
	logger = mlog.GetPackageLogger("app/evac/repository/mysql")

	db, err := sql.Open(
		"mysql",
		fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			cfg.MySQLUser,
			cfg.MySQLPassword,
			cfg.MySQLHost,
			cfg.MySQLPort,
			cfg.MySQLDatabase,
		),
	)
	if err != nil {
		return nil, err
	}

	s := &Store{
		cfg: cfg,
		db:  db,
		txs: make(map[repository.TxID]*sql.Tx),
	}
	if err = s.init(); err != nil {
		s.db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) init() error {
	// Generates base tables.
	for _, q := range generateSQLBase {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// Close closes mysql database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin opens a transaction and returns its ID.
func (s *Store) Begin() (repository.TxID, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return repository.NotTx, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txid := repository.TxID(fmt.Sprintf("%p", tx))
	s.txs[txid] = tx
	return txid, nil
}

// Rollback rollbacks the transaction with the given ID.
func (s *Store) Rollback(txid repository.TxID) error {
	tx, err := s.take(txid)
	if err != nil {
		return err
	}
	return tx.Rollback()
}

// Commit commits the transaction with the given ID.
// Auto remove the transaction only when the transaction has been succeeded.
func (s *Store) Commit(txid repository.TxID) error {
	tx, err := s.take(txid)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) take(txid repository.TxID) (*sql.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[txid]
	if !ok {
		return nil, fmt.Errorf("no such transaction: %s", txid)
	}
	delete(s.txs, txid)
	return tx, nil
}

func (s *Store) tx(txid repository.TxID) *sql.Tx {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.txs[txid]
}

// QueryRow executes a query that is expected to return at most one row.
func (s *Store) QueryRow(txid repository.TxID, query string, args ...interface{}) *sql.Row {
	if txid != repository.NotTx {
		if tx := s.tx(txid); tx != nil {
			return tx.QueryRow(query, args...)
		}
	}
	return s.db.QueryRow(query, args...)
}

// Query executes a query that returns rows.
func (s *Store) Query(txid repository.TxID, query string, args ...interface{}) (*sql.Rows, error) {
	if txid != repository.NotTx {
		tx := s.tx(txid)
		if tx == nil {
			return nil, fmt.Errorf("no such transaction: %s", txid)
		}
		return tx.Query(query, args...)
	}
	return s.db.Query(query, args...)
}

// Execute executes a query.
func (s *Store) Execute(txid repository.TxID, query string, args ...interface{}) (sql.Result, error) {
	if txid != repository.NotTx {
		tx := s.tx(txid)
		if tx == nil {
			return nil, fmt.Errorf("no such transaction: %s", txid)
		}
		return tx.Exec(query, args...)
	}
	return s.db.Exec(query, args...)
}
