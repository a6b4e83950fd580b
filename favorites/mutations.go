package favorites

import (
	"context"
	"strings"

	"github.com/Daskott/favdial/blobstore"
	"github.com/Daskott/favdial/models"
	"github.com/Daskott/favdial/work"
	"github.com/pkg/errors"
)

// Add appends a favorite and returns its id. The same contact and number may
// be added more than once; every call creates a distinct record.
func (m *Manager) Add(input NewFavorite) (string, error) {
	input.ContactRef = strings.TrimSpace(input.ContactRef)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.EmailAddress = strings.TrimSpace(input.EmailAddress)

	if err := validate.Struct(input); err != nil {
		return "", errors.Wrap(ErrInvalidFavorite, err.Error())
	}

	record := models.FavoriteRecord{
		ID:                models.NewID(),
		ContactRef:        input.ContactRef,
		ContactGivenName:  strings.TrimSpace(input.GivenName),
		ContactFamilyName: strings.TrimSpace(input.FamilyName),
		PhoneNumber:       input.PhoneNumber,
		EmailAddress:      input.EmailAddress,
		DisplayName:       displayNameFor(input),
		Method:            models.MethodOrDefault(string(input.Method)),
		App:               models.AppOrDefault(string(input.App)),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoadedLocked(); err != nil {
		return "", err
	}

	next := append(m.favorites.Clone(), record)
	if err := m.commitLocked(next, true); err != nil {
		return "", errors.Wrap(err, "favorites.Add")
	}

	m.logg.Debugf("%sadded %v (%v)", m.infoPrefix(), record.ID, record.DisplayName)
	return record.ID, nil
}

// Remove deletes a favorite. Its avatar is collected by the following
// reconcile pass, and any lazy fetch or avatar task for it is cancelled.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.indexLocked(id)
	if err != nil {
		return err
	}

	if err := m.commitLocked(m.favorites.Remove(index), true); err != nil {
		return errors.Wrap(err, "favorites.Remove")
	}

	if cancelled := m.pool.CancelKey(id); cancelled > 0 {
		m.logg.Debugf("%scancelled %v task(s) for %v", m.infoPrefix(), cancelled, id)
	}
	return nil
}

// Move places the favorite at newIndex. Reordering never changes the set of
// referenced blobs, so no reconcile pass follows.
func (m *Manager) Move(id string, newIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.indexLocked(id)
	if err != nil {
		return err
	}

	if newIndex < 0 || newIndex >= len(m.favorites) {
		return errors.Wrapf(ErrIndexOutOfRange, "%v not in [0, %v)", newIndex, len(m.favorites))
	}

	if index == newIndex {
		return nil
	}

	if err := m.commitLocked(m.favorites.Move(index, newIndex), false); err != nil {
		return errors.Wrap(err, "favorites.Move")
	}
	return nil
}

// UpdateRouting changes how the favorite is contacted.
func (m *Manager) UpdateRouting(id string, routing Routing) error {
	if err := validate.Struct(routing); err != nil {
		return errors.Wrap(ErrInvalidFavorite, err.Error())
	}

	return m.update(id, "favorites.UpdateRouting", func(record *models.FavoriteRecord) {
		record.Method = routing.Method
		record.App = routing.App
	})
}

// Rename changes the display name shown for the favorite.
func (m *Manager) Rename(id string, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return errors.Wrap(ErrInvalidFavorite, "display name is required")
	}

	return m.update(id, "favorites.Rename", func(record *models.FavoriteRecord) {
		record.DisplayName = displayName
	})
}

func (m *Manager) update(id string, op string, mutate func(record *models.FavoriteRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.indexLocked(id)
	if err != nil {
		return err
	}

	next := m.favorites.Clone()
	mutate(&next[index])

	if err := m.commitLocked(next, true); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}

// UpdateAvatar stores data as the favorite's avatar, replacing any previous
// one. A nil data clears the avatar. The replaced blob is collected once the
// record has been saved.
func (m *Manager) UpdateAvatar(ctx context.Context, id string, data []byte) error {
	if len(data) == 0 {
		return m.update(id, "favorites.UpdateAvatar", func(record *models.FavoriteRecord) {
			record.AvatarRef = ""
		})
	}

	key, err := m.reserveAvatar(id)
	if err != nil {
		return err
	}
	defer m.releaseAvatar(key)

	return m.writeAvatar(ctx, id, key, data)
}

// UpdateAvatarAsync runs UpdateAvatar on the worker pool. The task is keyed
// by the record id and is cancelled when the record is removed.
func (m *Manager) UpdateAvatarAsync(id string, data []byte) *work.Task {
	if len(data) == 0 {
		return work.Completed(id, nil, m.UpdateAvatar(context.Background(), id, nil))
	}

	key, err := m.reserveAvatar(id)
	if err != nil {
		return work.Completed(id, nil, err)
	}

	task := m.pool.Submit(id, func(ctx context.Context) (interface{}, error) {
		return key, m.writeAvatar(ctx, id, key, data)
	})

	go func() {
		<-task.Done()
		m.releaseAvatar(key)
	}()

	return task
}

// reserveAvatar picks the blob key for a new avatar and protects it from
// reconcile passes until it has been written and saved.
func (m *Manager) reserveAvatar(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.indexLocked(id)
	if err != nil {
		return "", err
	}

	key := blobstore.NewKey(m.favorites[index].ContactRef)
	m.pendingRefs[key] = true
	return key, nil
}

func (m *Manager) releaseAvatar(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pendingRefs, key)
}

func (m *Manager) writeAvatar(ctx context.Context, id string, key string, data []byte) error {
	if err := m.blobs.PutKey(key, data); err != nil {
		return errors.Wrap(err, "favorites.UpdateAvatar")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pendingRefs, key)

	index, err := m.indexLocked(id)
	if err == nil && ctx.Err() != nil {
		err = ErrDiscarded
	}
	if err != nil {
		m.discardBlob(key)
		return err
	}

	next := m.favorites.Clone()
	next[index].AvatarRef = key

	if err := m.commitLocked(next, true); err != nil {
		m.discardBlob(key)
		return errors.Wrap(err, "favorites.UpdateAvatar")
	}
	return nil
}

func (m *Manager) discardBlob(key string) {
	if err := m.blobs.Delete(key); err != nil {
		m.logg.Errorf("%sunable to discard %v: %v", m.errPrefix(), key, err)
	}
}

func displayNameFor(input NewFavorite) string {
	if name := strings.TrimSpace(input.DisplayName); name != "" {
		return name
	}

	if name := strings.TrimSpace(input.GivenName + " " + input.FamilyName); name != "" {
		return name
	}

	if input.PhoneNumber != "" {
		return input.PhoneNumber
	}
	return input.EmailAddress
}
