// Package catalog keeps a registry of named series, each backed by its own
// database file, in a pebble key-value store.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

const (
	idPrefix   = "series/id/"
	namePrefix = "series/name/"
)

var (
	// ErrNotFound is returned when no series matches an id or name
	ErrNotFound = errors.New("series not found")
	// ErrNameTaken is returned when registering a name that is already in use
	ErrNameTaken = errors.New("series name already registered")
	// ErrInvalidName is returned for empty series names
	ErrInvalidName = errors.New("invalid series name")
)

// Series describes one registered database file
type Series struct {
	ID        ksuid.KSUID `json:"id"`
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	Origin    time.Time   `json:"origin"`
	CreatedAt time.Time   `json:"created_at"`
}

// Catalog is a pebble-backed registry of series
type Catalog struct {
	db    *pebble.DB
	mutex sync.Mutex
}

// Open opens or creates a catalog in dir
func Open(dir string) (*Catalog, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Register records a new series and returns it with a freshly minted id
func (c *Catalog) Register(name, path string, origin time.Time) (*Series, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, err := c.lookupID(name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	series := &Series{
		ID:        ksuid.New(),
		Name:      name,
		Path:      path,
		Origin:    origin.UTC(),
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(series)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal series: %w", err)
	}

	batch := c.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(idKey(series.ID), data, nil); err != nil {
		return nil, err
	}
	if err := batch.Set(nameKey(name), series.ID.Bytes(), nil); err != nil {
		return nil, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("failed to commit series: %w", err)
	}

	return series, nil
}

// Get returns the series with the given id
func (c *Catalog) Get(id ksuid.KSUID) (*Series, error) {
	data, closer, err := c.db.Get(idKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	defer closer.Close()

	var series Series
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("failed to unmarshal series %s: %w", id, err)
	}
	return &series, nil
}

// Lookup returns the series registered under name
func (c *Catalog) Lookup(name string) (*Series, error) {
	id, err := c.lookupID(name)
	if err != nil {
		return nil, err
	}
	return c.Get(id)
}

// Resolve accepts either a series id or a series name
func (c *Catalog) Resolve(ref string) (*Series, error) {
	if id, err := ksuid.Parse(ref); err == nil {
		if series, err := c.Get(id); err == nil {
			return series, nil
		}
	}
	return c.Lookup(ref)
}

func (c *Catalog) lookupID(name string) (ksuid.KSUID, error) {
	data, closer, err := c.db.Get(nameKey(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ksuid.Nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return ksuid.Nil, err
	}
	defer closer.Close()

	id, err := ksuid.FromBytes(data)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("corrupt name entry for %s: %w", name, err)
	}
	return id, nil
}

// List returns every registered series ordered by id, which orders by creation time
func (c *Catalog) List() ([]*Series, error) {
	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(idPrefix),
		UpperBound: prefixUpperBound([]byte(idPrefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate catalog: %w", err)
	}
	defer iter.Close()

	list := []*Series{}
	for iter.First(); iter.Valid(); iter.Next() {
		var series Series
		if err := json.Unmarshal(iter.Value(), &series); err != nil {
			return nil, fmt.Errorf("failed to unmarshal series %s: %w", iter.Key(), err)
		}
		list = append(list, &series)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return list, nil
}

// Remove unregisters a series. The backing file is left alone.
func (c *Catalog) Remove(id ksuid.KSUID) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	series, err := c.Get(id)
	if err != nil {
		return err
	}

	batch := c.db.NewBatch()
	defer batch.Close()

	if err := batch.Delete(idKey(id), nil); err != nil {
		return err
	}
	if err := batch.Delete(nameKey(series.Name), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Close closes the underlying pebble database
func (c *Catalog) Close() error {
	return c.db.Close()
}

func idKey(id ksuid.KSUID) []byte {
	return []byte(idPrefix + id.String())
}

func nameKey(name string) []byte {
	return []byte(namePrefix + name)
}

// prefixUpperBound returns the smallest key greater than every key with prefix
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
