package blobstore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	store, err := New(filepath.Join(t.TempDir(), "avatars"), nil)
	require.NoError(t, err)
	return store
}

func TestPutGetDelete(t *testing.T) {
	store := newTestStore(t)

	key, err := store.Put([]byte("jpeg-bytes"), "410FE041-5C4E:ABPerson")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^410FE041-5C4E-ABPerson_[0-9a-f]{32}\.jpg$`), key)

	data, found, err := store.Get(key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.True(t, store.Exists(key))

	require.NoError(t, store.Delete(key))
	assert.False(t, store.Exists(key))

	// Deleting again is not an error
	assert.NoError(t, store.Delete(key))
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	data, found, err := store.Get("nobody_0000.jpg")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)
}

func TestPutNeverReusesKeys(t *testing.T) {
	store := newTestStore(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		key, err := store.Put([]byte{byte(i)}, "same-owner")
		require.NoError(t, err)
		assert.False(t, seen[key], "key %v issued twice", key)
		seen[key] = true
	}

	keys, err := store.ListKeys()
	require.NoError(t, err)
	assert.Len(t, keys, 20)
}

func TestListKeysIgnoresForeignFiles(t *testing.T) {
	store := newTestStore(t)

	key, err := store.Put([]byte("x"), "")
	require.NoError(t, err)
	assert.Regexp(t, `^unknown_`, key)

	require.NoError(t, ioutil.WriteFile(filepath.Join(store.Dir(), ".partial.jpg"), []byte("x"), 0600))
	require.NoError(t, ioutil.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), "nested.jpg"), 0755))

	keys, err := store.ListKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}

func TestRejectsPathTraversal(t *testing.T) {
	store := newTestStore(t)

	cases := []string{"", "../favorites.json", "a/b.jpg", ".hidden.jpg"}
	for _, ref := range cases {
		_, _, err := store.Get(ref)
		assert.True(t, errors.Is(err, ErrInvalidKey), "ref %q", ref)
		assert.True(t, errors.Is(store.Delete(ref), ErrInvalidKey), "ref %q", ref)
	}
}

func TestPutKey(t *testing.T) {
	store := newTestStore(t)
	key := NewKey("ada")

	assert.False(t, store.Exists(key), "reserving a key writes nothing")

	require.NoError(t, store.PutKey(key, []byte("first")))
	assert.Error(t, store.PutKey(key, []byte("second")), "blobs are immutable")

	data, found, err := store.Get(key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "first", string(data))

	assert.True(t, errors.Is(store.PutKey("../escape.jpg", []byte("x")), ErrInvalidKey))
}
