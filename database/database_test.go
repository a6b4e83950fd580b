package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteSlot(t *testing.T) {
	slot, err := OpenSqliteSlot("passphrase", t.TempDir(), "")
	require.NoError(t, err)
	defer slot.Close()

	_, exists, err := slot.Size()
	require.NoError(t, err)
	assert.False(t, exists, "a fresh database has no slot")

	require.NoError(t, slot.Write([]byte(`[{"a":1}]`)))
	require.NoError(t, slot.Write([]byte(`[]`)))

	size, exists, err := slot.Size()
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(2), size)

	data, err := slot.Read()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.Equal(t, "sqlite:favorites", slot.Name())
}

func TestDbDSN(t *testing.T) {
	dir := t.TempDir()

	dsn, err := dbDSN("secret", dir)
	require.NoError(t, err)
	assert.Contains(t, dsn, "_pragma_key=secret")
	assert.Contains(t, dsn, DB_NAME)
}
