package mysql

import (
	"strings"

	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/app/evac/usecase/assignment"
)

type assignmentStore struct {
	*Store
}

// NewAssignmentRepository returns a new instance of a mysql assignment repository.
func NewAssignmentRepository(s *Store) assignment.Repository {
	return &assignmentStore{
		Store: s,
	}
}

func (s *assignmentStore) SetAssigned(txid repository.TxID, jobID, key, shark, assignmentID string) error {
	q := `
		UPDATE evacuate_object
		SET eo_status = 'Assigned', eo_destination = ?, eo_assignment = ?
		WHERE eo_job = ? AND eo_key = ?
	`
	_, err := s.Execute(txid, q, shark, assignmentID, jobID, key)
	return err
}

func (s *assignmentStore) SetPosted(txid repository.TxID, jobID, assignmentID string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	q := `
		UPDATE evacuate_object
		SET eo_status = 'Posted'
		WHERE eo_job = ? AND eo_assignment = ?
			AND eo_key IN (?` + strings.Repeat(", ?", len(keys)-1) + `)
	`

	args := make([]interface{}, 0, len(keys)+2)
	args = append(args, jobID, assignmentID)
	for _, k := range keys {
		args = append(args, k)
	}

	_, err := s.Execute(txid, q, args...)
	return err
}

func (s *assignmentStore) SetPending(txid repository.TxID, jobID, key string) error {
	q := `
		UPDATE evacuate_object
		SET eo_status = 'Pending', eo_destination = '', eo_assignment = ''
		WHERE eo_job = ? AND eo_key = ?
	`
	_, err := s.Execute(txid, q, jobID, key)
	return err
}
