package sqlite

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/interfaces"
)

// Manager bundles the storage interfaces over one SQLite connection
type Manager struct {
	db     *SQLiteDB
	jobs   interfaces.JobStorage
	queue  interfaces.QueueStorage
	logger arbor.ILogger
}

// NewManager opens the store and wires the storage implementations
func NewManager(logger arbor.ILogger, path string) (*Manager, error) {
	db, err := NewSQLiteDB(logger, path)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:     db,
		jobs:   NewJobStorage(db, logger),
		queue:  NewQueueStorage(db, logger),
		logger: logger,
	}, nil
}

// JobStorage returns the job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.jobs
}

// QueueStorage returns the queue storage interface
func (m *Manager) QueueStorage() interfaces.QueueStorage {
	return m.queue
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
