package favorites

import (
	"context"

	"github.com/Daskott/favdial/directory"
	"github.com/Daskott/favdial/models"
	"github.com/Daskott/favdial/work"
	"github.com/pkg/errors"
)

// List returns a copy of the collection in dial order.
func (m *Manager) List() (models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoadedLocked(); err != nil {
		return nil, err
	}
	return m.favorites.Clone(), nil
}

func (m *Manager) Get(id string) (models.FavoriteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.indexLocked(id)
	if err != nil {
		return models.FavoriteRecord{}, err
	}
	return m.favorites[index], nil
}

// Avatar returns the custom avatar of the favorite. found is false when the
// favorite has none or its blob is gone; callers then render the directory
// photo or the initials.
func (m *Manager) Avatar(id string) (data []byte, found bool, err error) {
	record, err := m.Get(id)
	if err != nil {
		return nil, false, err
	}

	if !record.HasAvatar() {
		return nil, false, nil
	}
	return m.blobs.Get(record.AvatarRef)
}

// Resolve returns the connection URI for the favorite's routing.
func (m *Manager) Resolve(id string) (string, error) {
	record, err := m.Get(id)
	if err != nil {
		return "", err
	}
	return m.resolver.ResolveRecord(record)
}

// Snapshot is the outcome of a lazy fetch. Contact is nil when the directory
// could not be reached; the record's cached names still apply.
type Snapshot struct {
	Record  models.FavoriteRecord
	Contact *directory.Contact
}

// LazyFetch looks the favorite up in the directory on the worker pool. Cached
// names that were never captured are filled in and saved; names already
// captured are kept. The result is discarded with ErrDiscarded if the
// favorite is removed before the lookup returns.
func (m *Manager) LazyFetch(id string) *work.Task {
	record, err := m.Get(id)
	if err != nil {
		return work.Completed(id, nil, err)
	}

	return m.pool.Submit(id, func(ctx context.Context) (interface{}, error) {
		contact, err := directory.FetchWithRetry(ctx, m.directory, record.ContactRef, directory.AllFields)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrDiscarded
			}
			m.logg.Warnf("%sdirectory lookup for %v failed, using cached names: %v", m.warnPrefix(), record.ContactRef, err)
			contact = nil
		}

		return m.applyFetch(ctx, id, contact)
	})
}

func (m *Manager) applyFetch(ctx context.Context, id string, contact *directory.Contact) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx.Err() != nil {
		return nil, ErrDiscarded
	}

	index, err := m.indexLocked(id)
	if err != nil {
		return nil, errors.Wrap(ErrDiscarded, err.Error())
	}

	record := m.favorites[index]
	if contact == nil || !namesMissing(record) {
		return &Snapshot{Record: record, Contact: contact}, nil
	}

	next := m.favorites.Clone()
	next[index].ContactGivenName = contact.GivenName
	next[index].ContactFamilyName = contact.FamilyName

	if err := m.commitLocked(next, true); err != nil {
		m.logg.Errorf("%sunable to save names for %v: %v", m.errPrefix(), id, err)
		return &Snapshot{Record: record, Contact: contact}, nil
	}

	return &Snapshot{Record: next[index], Contact: contact}, nil
}

func namesMissing(record models.FavoriteRecord) bool {
	return record.ContactGivenName == "" && record.ContactFamilyName == ""
}
