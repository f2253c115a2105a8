package proc

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-memdb"
	"go.uber.org/multierr"
)

var (
	ErrNotFound = errors.New("proc not found")
	ErrExists   = errors.New("proc exists")
)

var Schema = memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"proc": {
			Name: "proc",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: PIDIndexer{},
				},
			},
		},
	},
}

// Registry tracks running guests by PID.
type Registry struct {
	db *memdb.MemDB
}

func NewRegistry() (*Registry, error) {
	db, err := memdb.NewMemDB(&Schema)
	if err != nil {
		return nil, err
	}

	return &Registry{db: db}, nil
}

func (r *Registry) Add(p *P) error {
	tx := r.db.Txn(true)
	defer tx.Abort()

	if v, err := tx.First("proc", "id", p.PID()); err != nil {
		return err
	} else if v != nil {
		return fmt.Errorf("%w: %s", ErrExists, p)
	}

	if err := tx.Insert("proc", p); err != nil {
		return err
	}

	tx.Commit()
	return nil
}

func (r *Registry) Get(id string) (*P, error) {
	pid, err := ParsePID(id)
	if err != nil {
		return nil, err
	}

	tx := r.db.Txn(false)
	defer tx.Abort()

	v, err := tx.First("proc", "id", pid)
	if err != nil {
		return nil, err
	} else if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return v.(*P), nil
}

// Remove the process from the registry and return it.  The caller is
// responsible for closing it.
func (r *Registry) Remove(id string) (*P, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	tx := r.db.Txn(true)
	defer tx.Abort()

	if err := tx.Delete("proc", p); errors.Is(err, memdb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id) // lost a race with another Remove
	} else if err != nil {
		return nil, err
	}

	tx.Commit()
	return p, nil
}

func (r *Registry) List() ([]*P, error) {
	tx := r.db.Txn(false)
	defer tx.Abort()

	it, err := tx.Get("proc", "id")
	if err != nil {
		return nil, err
	}

	var ps []*P
	for v := it.Next(); v != nil; v = it.Next() {
		ps = append(ps, v.(*P))
	}

	return ps, nil
}

// Close removes and closes every registered process.
func (r *Registry) Close(ctx context.Context) error {
	tx := r.db.Txn(true)
	defer tx.Abort()

	it, err := tx.Get("proc", "id")
	if err != nil {
		return err
	}

	var errs []error
	for v := it.Next(); v != nil; v = it.Next() {
		errs = append(errs, v.(*P).Close(ctx))
	}

	if _, err := tx.DeleteAll("proc", "id"); err != nil {
		errs = append(errs, err)
	}

	tx.Commit()
	return multierr.Combine(errs...)
}

// PIDIndexer indexes processes by the raw bytes of their PID.  Queries
// may pass a PID or its string form.
type PIDIndexer struct{}

func (PIDIndexer) FromArgs(args ...any) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
	}

	return indexPID(args[0])
}

func (PIDIndexer) FromObject(obj any) (bool, []byte, error) {
	index, err := indexPID(obj)
	if err != nil {
		return false, nil, err
	}

	return true, index, nil
}

func indexPID(v any) ([]byte, error) {
	var pid PID
	switch v := v.(type) {
	case PID:
		pid = v
	case *P:
		pid = v.PID()
	case string:
		var err error
		if pid, err = ParsePID(v); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported index type %T", v)
	}

	return pid[:], nil
}
