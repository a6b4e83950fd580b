// Package favorites owns the in-memory favorites collection. It is the only
// writer of the record store and drives avatar storage, garbage collection
// and migration of legacy data.
package favorites

import (
	"context"
	"sync"

	"github.com/Daskott/favdial/blobstore"
	"github.com/Daskott/favdial/colors"
	"github.com/Daskott/favdial/directory"
	"github.com/Daskott/favdial/gc"
	"github.com/Daskott/favdial/logger"
	"github.com/Daskott/favdial/migration"
	"github.com/Daskott/favdial/models"
	"github.com/Daskott/favdial/recordstore"
	"github.com/Daskott/favdial/resolver"
	"github.com/Daskott/favdial/work"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrNotLoaded       = errors.New("favorites not loaded")
	ErrMigrating       = errors.New("favorites migration in progress")
	ErrClosed          = errors.New("favorites manager is closed")
	ErrNotFound        = errors.New("favorite not found")
	ErrInvalidFavorite = errors.New("invalid favorite")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrDiscarded       = errors.New("result discarded")
)

type State int

const (
	Uninitialized State = iota
	Migrating
	Loaded
	Closed
)

func (s State) String() string {
	switch s {
	case Migrating:
		return "migrating"
	case Loaded:
		return "loaded"
	case Closed:
		return "closed"
	}
	return "uninitialized"
}

// Options wires a Manager to its collaborators. Directory and Pool are optional.
type Options struct {
	Records   *recordstore.Store
	Blobs     *blobstore.Store
	Directory directory.Directory
	Pool      *work.WorkerPool
	Logger    *zap.SugaredLogger
}

// Manager is the single owner of the favorites collection.
type Manager struct {
	records   *recordstore.Store
	blobs     *blobstore.Store
	directory directory.Directory
	collector *gc.Collector
	migrator  *migration.Engine
	resolver  *resolver.Resolver
	pool      *work.WorkerPool
	ownsPool  bool
	logg      *zap.SugaredLogger

	mu            sync.Mutex
	state         State
	favorites     models.Collection
	pendingRefs   map[string]bool
	lastMigration *migration.Report
}

func New(opts Options) (*Manager, error) {
	if opts.Records == nil || opts.Blobs == nil {
		return nil, errors.New("favorites.New: record store and blob store are required")
	}

	logg := logger.OrNop(opts.Logger)
	m := &Manager{
		records:     opts.Records,
		blobs:       opts.Blobs,
		directory:   opts.Directory,
		collector:   gc.New(opts.Blobs, logg),
		migrator:    migration.New(opts.Blobs, opts.Directory, logg),
		resolver:    resolver.New(logg),
		pool:        opts.Pool,
		logg:        logg,
		favorites:   models.Collection{},
		pendingRefs: map[string]bool{},
	}

	if m.pool == nil {
		m.pool = work.NewWorkerPool(work.DEFAULT_CONCURRENCY, logg)
		m.pool.Start()
		m.ownsPool = true
	}

	return m, nil
}

// State returns the lifecycle state of the manager.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastMigration returns the report of the migration run by the last Load, if any.
func (m *Manager) LastMigration() *migration.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMigration
}

// Load reads the persisted collection. Oversize or undecodable documents are
// migrated and saved back. Data that cannot be recovered leaves the manager
// with an empty collection instead of failing; only an unreadable slot is
// returned as an error.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case Migrating:
		m.mu.Unlock()
		return ErrMigrating
	case Closed:
		m.mu.Unlock()
		return ErrClosed
	}

	collection, assigned, err := m.records.LoadAssigningIDs()
	if err == nil {
		m.setLoadedLocked(collection, nil)
		if assigned {
			// Records are addressed by id, so fresh ids have to be persisted
			if err := m.records.Save(collection); err != nil {
				m.logg.Errorf("%sunable to save assigned favorite ids: %v", m.errPrefix(), err)
			}
		}
		m.mu.Unlock()
		return nil
	}

	var decodeErr *recordstore.DecodeError
	isDecodeErr := errors.As(err, &decodeErr)
	if !errors.Is(err, recordstore.ErrOversize) && !isDecodeErr {
		m.mu.Unlock()
		return errors.Wrap(err, "favorites.Load")
	}

	if isDecodeErr && !decodeErr.Document {
		m.logg.Errorf("%sstored favorites are unreadable, starting empty: %v", m.errPrefix(), err)
		m.setLoadedLocked(models.Collection{}, nil)
		m.mu.Unlock()
		return nil
	}

	m.logg.Warnf("%s%v, migrating", m.warnPrefix(), err)
	m.state = Migrating
	m.mu.Unlock()

	collection, report, err := m.migrate(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			m.state = Uninitialized
			return ctx.Err()
		}
		m.logg.Errorf("%smigration failed, starting empty: %v", m.errPrefix(), err)
		m.setLoadedLocked(models.Collection{}, report)
		return nil
	}

	m.setLoadedLocked(collection, report)
	if err := m.records.Save(collection); err != nil {
		// Kept in memory; the next successful mutation persists it.
		m.logg.Errorf("%sunable to save migrated favorites: %v", m.errPrefix(), err)
		return nil
	}
	m.reconcileLocked()

	return nil
}

func (m *Manager) migrate(ctx context.Context) (models.Collection, *migration.Report, error) {
	raw, exists, err := m.records.LoadRaw()
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return models.Collection{}, nil, nil
	}

	return m.migrator.Migrate(ctx, raw)
}

func (m *Manager) setLoadedLocked(collection models.Collection, report *migration.Report) {
	if collection == nil {
		collection = models.Collection{}
	}
	m.favorites = collection
	m.lastMigration = report
	m.state = Loaded
}

// Close cancels outstanding work. The manager cannot be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	m.state = Closed
	m.mu.Unlock()

	if m.ownsPool {
		m.pool.Stop()
	}
}

// CollectGarbage deletes every blob no record references.
func (m *Manager) CollectGarbage() (*gc.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoadedLocked(); err != nil {
		return nil, err
	}
	return m.collector.Reconcile(m.liveRefsLocked())
}

func (m *Manager) checkLoadedLocked() error {
	switch m.state {
	case Loaded:
		return nil
	case Migrating:
		return ErrMigrating
	case Closed:
		return ErrClosed
	}
	return ErrNotLoaded
}

// commitLocked saves next and makes it the live collection. The live
// collection only changes once the save has succeeded.
func (m *Manager) commitLocked(next models.Collection, collect bool) error {
	if err := m.records.Save(next); err != nil {
		return err
	}

	m.favorites = next
	if collect {
		m.reconcileLocked()
	}
	return nil
}

// liveRefsLocked is every blob that must survive a reconcile: the ones
// referenced by records plus the ones being written by avatar tasks.
func (m *Manager) liveRefsLocked() map[string]bool {
	refs := m.favorites.AvatarRefs()
	for ref := range m.pendingRefs {
		refs[ref] = true
	}
	return refs
}

func (m *Manager) reconcileLocked() {
	if _, err := m.collector.Reconcile(m.liveRefsLocked()); err != nil {
		m.logg.Errorf("%sgarbage collection failed: %v", m.errPrefix(), err)
	}
}

func (m *Manager) indexLocked(id string) (int, error) {
	if err := m.checkLoadedLocked(); err != nil {
		return -1, err
	}

	index := m.favorites.IndexOf(id)
	if index < 0 {
		return -1, errors.Wrapf(ErrNotFound, "%q", id)
	}
	return index, nil
}

func (m *Manager) warnPrefix() string {
	return colors.Prefix(colors.Yellow, "favorites")
}

func (m *Manager) errPrefix() string {
	return colors.Prefix(colors.Red, "favorites")
}

func (m *Manager) infoPrefix() string {
	return colors.Prefix(colors.Blue, "favorites")
}
