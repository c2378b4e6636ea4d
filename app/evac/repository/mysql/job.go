package mysql

import (
	"database/sql"
	"fmt"

	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/app/evac/usecase/job"
)

type jobStore struct {
	*Store
}

// NewJobRepository returns a new instance of a mysql job repository.
func NewJobRepository(s *Store) job.Repository {
	return &jobStore{
		Store: s,
	}
}

func (s *jobStore) InsertJob(txid repository.TxID, j *job.Job) error {
	q := `
		INSERT INTO evacuate_job
			(ej_id, ej_source, ej_state, ej_mode, ej_created_at, ej_updated_at)
		VALUES
			(?, ?, ?, ?, NOW(), NOW())
	`
	_, err := s.Execute(txid, q, j.ID, j.SourceShark, j.State.String(), j.Mode)
	return err
}

func (s *jobStore) GetJob(txid repository.TxID, id string) (*job.Job, error) {
	q := `
		SELECT
			ej_id,
			ej_source,
			ej_state,
			ej_mode,
			ej_total,
			ej_skipped,
			ej_complete,
			ej_failed,
			ej_created_at,
			ej_updated_at
		FROM
			evacuate_job
		WHERE
			ej_id = ?
	`

	j := &job.Job{}
	var state string
	err := s.QueryRow(txid, q, id).Scan(
		&j.ID, &j.SourceShark, &state, &j.Mode,
		&j.Counters.Total, &j.Counters.Skipped,
		&j.Counters.Complete, &j.Counters.Failed,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	j.State = job.State(state)
	return j, nil
}

func (s *jobStore) UpdateJobState(txid repository.TxID, id string, st job.State) error {
	q := `
		UPDATE evacuate_job
		SET ej_state = ?, ej_updated_at = NOW()
		WHERE ej_id = ?
	`
	r, err := s.Execute(txid, q, st.String(), id)
	if err != nil {
		return err
	}
	if affected, err := r.RowsAffected(); err == nil && affected == 0 {
		// State writes are idempotent; an unknown job is not.
		if _, err := s.GetJob(txid, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *jobStore) IncrCounter(txid repository.TxID, id string, c job.Counter) error {
	var column string
	switch c {
	case job.CounterTotal:
		column = "ej_total"
	case job.CounterSkipped:
		column = "ej_skipped"
	case job.CounterComplete:
		column = "ej_complete"
	case job.CounterFailed:
		column = "ej_failed"
	default:
		return fmt.Errorf("unknown counter: %v", c)
	}

	q := fmt.Sprintf(
		`
		UPDATE evacuate_job
		SET %s = %s + 1, ej_updated_at = NOW()
		WHERE ej_id = ?
		`, column, column,
	)
	_, err := s.Execute(txid, q, id)
	return err
}

func (s *jobStore) SetObjectStatus(txid repository.TxID, jobID, key string, status object.Status, reconcile bool) error {
	q := `
		UPDATE evacuate_object
		SET eo_status = ?, eo_reconcile = ?
		WHERE eo_job = ? AND eo_key = ?
	`
	_, err := s.Execute(txid, q, status.String(), reconcile, jobID, key)
	return err
}

func (s *jobStore) ListObjects(txid repository.TxID, jobID string, nonTerminalOnly bool) ([]*object.Object, error) {
	q := `
		SELECT
			eo_key,
			eo_size,
			eo_replicas,
			eo_status,
			eo_destination,
			eo_reconcile
		FROM
			evacuate_object
		WHERE
			eo_job = ?
	`
	if nonTerminalOnly {
		q += ` AND eo_status NOT IN ('Completed', 'Skipped', 'Failed')`
	}

	rows, err := s.Query(txid, q, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objs []*object.Object
	for rows.Next() {
		o := &object.Object{}
		var replicas, status string

		if err = rows.Scan(&o.Key, &o.Size, &replicas, &status, &o.AssignedShark, &o.NeedsReconcile); err != nil {
			return nil, err
		}

		if o.Replicas, err = decodeReplicas(replicas); err != nil {
			return nil, err
		}
		o.Status = object.Status(status)

		objs = append(objs, o)
	}

	return objs, rows.Err()
}
