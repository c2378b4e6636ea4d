package mysql

import (
	"encoding/json"

	"github.com/chanyoung/evac/app/evac/domain/model/object"
	"github.com/chanyoung/evac/app/evac/repository"
	"github.com/chanyoung/evac/app/evac/usecase/discovery"
	"github.com/go-sql-driver/mysql"
)

type discoveryStore struct {
	*Store
}

// NewDiscoveryRepository returns a new instance of a mysql discovery repository.
func NewDiscoveryRepository(s *Store) discovery.Repository {
	return &discoveryStore{
		Store: s,
	}
}

func (s *discoveryStore) InsertObject(txid repository.TxID, jobID string, obj *object.Object) error {
	replicas, err := encodeReplicas(obj.Replicas)
	if err != nil {
		return err
	}

	q := `
		INSERT INTO evacuate_object
			(eo_job, eo_key, eo_size, eo_replicas, eo_status)
		VALUES
			(?, ?, ?, ?, ?)
	`
	_, err = s.Execute(txid, q, jobID, obj.Key, obj.Size, replicas, obj.Status.String())
	if err == nil {
		return nil
	}

	mysqlError, ok := err.(*mysql.MySQLError)
	if !ok {
		return err
	}
	switch mysqlError.Number {
	case 1062:
		return repository.ErrDuplicateEntry
	default:
		return err
	}
}

func (s *discoveryStore) FindNonTerminal(txid repository.TxID, jobID string) ([]*object.Object, error) {
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
			AND eo_status NOT IN ('Completed', 'Skipped', 'Failed')
	`

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

func (s *discoveryStore) ResetNonTerminal(txid repository.TxID, jobID string) error {
	q := `
		UPDATE evacuate_object
		SET eo_status = 'Pending', eo_destination = '', eo_assignment = ''
		WHERE eo_job = ?
			AND eo_status NOT IN ('Completed', 'Skipped', 'Failed')
	`
	_, err := s.Execute(txid, q, jobID)
	return err
}

func encodeReplicas(replicas []object.Replica) (string, error) {
	b, err := json.Marshal(replicas)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeReplicas(encoded string) ([]object.Replica, error) {
	var replicas []object.Replica
	if err := json.Unmarshal([]byte(encoded), &replicas); err != nil {
		return nil, err
	}
	return replicas, nil
}
