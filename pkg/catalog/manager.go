package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/enod/pkg/store"
)

// ManagerConfig holds configuration for a Manager
type ManagerConfig struct {
	DataDir string             // Root directory; the catalog and series files live below it
	Logger  logrus.FieldLogger // Optional
}

// Manager ties the catalog to the database files it describes and keeps one
// PhysicalDB per series open for reuse.
type Manager struct {
	catalog   *Catalog
	seriesDir string
	log       logrus.FieldLogger
	open      map[ksuid.KSUID]*store.PhysicalDB
	mutex     sync.Mutex
}

// NewManager opens the catalog under config.DataDir, creating directories as needed
func NewManager(config ManagerConfig) (*Manager, error) {
	seriesDir := filepath.Join(config.DataDir, "series")
	if err := os.MkdirAll(seriesDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create series dir: %w", err)
	}

	cat, err := Open(filepath.Join(config.DataDir, "catalog"))
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	return &Manager{
		catalog:   cat,
		seriesDir: seriesDir,
		log:       logger,
		open:      make(map[ksuid.KSUID]*store.PhysicalDB),
	}, nil
}

// Catalog returns the underlying registry
func (m *Manager) Catalog() *Catalog {
	return m.catalog
}

// Create registers a series and writes its empty database file. A nil
// origin means now.
func (m *Manager) Create(name string, origin *time.Time) (*Series, *store.PhysicalDB, error) {
	date := time.Now()
	if origin != nil {
		date = *origin
	}
	// Register what the header will actually hold
	date = date.UTC().Truncate(time.Second)

	if _, err := m.catalog.Lookup(name); err == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	path := filepath.Join(m.seriesDir, ksuid.New().String()+".db")
	db, err := store.Create(path, &date, store.WithLogger(m.log))
	if err != nil {
		return nil, nil, err
	}

	series, err := m.catalog.Register(name, path, date)
	if err != nil {
		_ = os.Remove(path)
		return nil, nil, err
	}

	m.mutex.Lock()
	m.open[series.ID] = db
	m.mutex.Unlock()

	m.log.WithFields(logrus.Fields{
		"series": series.Name,
		"id":     series.ID.String(),
	}).Info("created series")
	return series, db, nil
}

// Get resolves ref (id or name) and returns the series with its database
func (m *Manager) Get(ref string) (*Series, *store.PhysicalDB, error) {
	series, err := m.catalog.Resolve(ref)
	if err != nil {
		return nil, nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if db, ok := m.open[series.ID]; ok {
		return series, db, nil
	}

	db, err := store.Load(series.Path, store.WithLogger(m.log))
	if err != nil {
		return series, nil, err
	}
	m.open[series.ID] = db
	return series, db, nil
}

// Attach is Get for checking and repairing. A database whose header cannot
// be loaded is still returned, attached but uncached, and release closes it.
// For a healthy database release is a no-op.
func (m *Manager) Attach(ref string) (*Series, *store.PhysicalDB, func(), error) {
	series, db, err := m.Get(ref)
	if err == nil {
		return series, db, func() {}, nil
	}
	if series == nil {
		return nil, nil, nil, err
	}

	m.log.WithError(err).WithField("series", series.Name).Debug("attaching series that failed to load")
	db = store.Attach(series.Path, store.WithLogger(m.log))
	return series, db, func() {
		if err := db.Close(); err != nil {
			m.log.WithError(err).Warn("failed to close attached series")
		}
	}, nil
}

// List returns every registered series
func (m *Manager) List() ([]*Series, error) {
	return m.catalog.List()
}

// Remove unregisters a series and deletes its database file
func (m *Manager) Remove(ref string) error {
	series, err := m.catalog.Resolve(ref)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	if db, ok := m.open[series.ID]; ok {
		delete(m.open, series.ID)
		if err := db.Close(); err != nil {
			m.log.WithError(err).Warn("failed to close series before removal")
		}
	}
	m.mutex.Unlock()

	if err := m.catalog.Remove(series.ID); err != nil {
		return err
	}
	if err := os.Remove(series.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove series file: %w", err)
	}
	return nil
}

// Close closes every open database and the catalog
func (m *Manager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var firstErr error
	for id, db := range m.open {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.open, id)
	}
	if err := m.catalog.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
