package scheduler

import (
	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

const (
	jobsTable   = "jobs"
	idIndex     = "id"     // index for looking up jobs by id
	tenantIndex = "tenant" // index for looking up the jobs of a given tenant
)

// JobDb stores the set of active jobs, i.e., jobs currently holding a slot.
// It allows for efficiently looking up jobs by id and counting the active jobs of a tenant.
// JobDb is implemented on top of https://github.com/hashicorp/go-memdb which is a simple in-memory database built on
// immutable radix trees.
type JobDb struct {
	// In-memory database. Stores *schedulerobjects.Job.
	Db *memdb.MemDB
}

func NewJobDb() (*JobDb, error) {
	db, err := memdb.NewMemDB(jobDbSchema())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &JobDb{
		Db: db,
	}, nil
}

// Upsert will insert the given jobs if they don't already exist or update them if they do.
// Any jobs passed to this function *must not* be subsequently modified.
func (jobDb *JobDb) Upsert(txn *memdb.Txn, jobs []*schedulerobjects.Job) error {
	for _, job := range jobs {
		if err := txn.Insert(jobsTable, job); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// GetById returns the job with the given id or nil if no such job exists.
// The job returned by this function *must not* be subsequently modified.
func (jobDb *JobDb) GetById(txn *memdb.Txn, id string) (*schedulerobjects.Job, error) {
	obj, err := txn.First(jobsTable, idIndex, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*schedulerobjects.Job), nil
}

// Delete removes the job with the given id and returns it, or returns nil if there was no such job.
func (jobDb *JobDb) Delete(txn *memdb.Txn, id string) (*schedulerobjects.Job, error) {
	// memdb returns an unhelpful error when deleting a missing object, so check explicitly first.
	job, err := jobDb.GetById(txn, id)
	if err != nil || job == nil {
		return nil, err
	}
	if err := txn.Delete(jobsTable, job); err != nil {
		return nil, errors.WithStack(err)
	}
	return job, nil
}

// Count returns the total number of jobs in the database.
func (jobDb *JobDb) Count(txn *memdb.Txn) (int, error) {
	iter, err := txn.Get(jobsTable, idIndex)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return countResults(iter), nil
}

// CountByTenant returns the number of jobs in the database belonging to tenantId.
func (jobDb *JobDb) CountByTenant(txn *memdb.Txn, tenantId string) (int, error) {
	iter, err := txn.Get(jobsTable, tenantIndex, tenantId)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return countResults(iter), nil
}

// GetAll returns all jobs in the database, ordered by id.
// The jobs returned by this function *must not* be subsequently modified.
func (jobDb *JobDb) GetAll(txn *memdb.Txn) ([]*schedulerobjects.Job, error) {
	iter, err := txn.Get(jobsTable, idIndex)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	result := make([]*schedulerobjects.Job, 0)
	for obj := iter.Next(); obj != nil; obj = iter.Next() {
		result = append(result, obj.(*schedulerobjects.Job))
	}
	return result, nil
}

// ReadTxn returns a read-only transaction.
// Multiple read-only transactions can access the db concurrently.
func (jobDb *JobDb) ReadTxn() *memdb.Txn {
	return jobDb.Db.Txn(false)
}

// WriteTxn returns a writeable transaction.
// Only a single write transaction may access the db at any given time.
func (jobDb *JobDb) WriteTxn() *memdb.Txn {
	return jobDb.Db.Txn(true)
}

func countResults(iter memdb.ResultIterator) int {
	n := 0
	for obj := iter.Next(); obj != nil; obj = iter.Next() {
		n++
	}
	return n
}

// jobDbSchema() creates the database schema.
// This is a simple schema consisting of a single "jobs" table with indexes for fast lookups.
func jobDbSchema() *memdb.DBSchema {
	indexes := make(map[string]*memdb.IndexSchema)
	indexes[idIndex] = &memdb.IndexSchema{
		Name:    idIndex, // lookup by primary key
		Unique:  true,
		Indexer: &memdb.StringFieldIndex{Field: "Id"},
	}
	indexes[tenantIndex] = &memdb.IndexSchema{
		Name:    tenantIndex, // lookup active jobs for a given tenant
		Unique:  false,
		Indexer: &memdb.StringFieldIndex{Field: "TenantId"},
	}
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			jobsTable: {
				Name:    jobsTable,
				Indexes: indexes,
			},
		},
	}
}
