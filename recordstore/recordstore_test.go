package recordstore

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Daskott/favdial/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T, ceiling int64) (*Store, *FileSlot) {
	slot, err := NewFileSlot(filepath.Join(t.TempDir(), "store", "favorites.json"))
	require.NoError(t, err)
	return New(slot, ceiling, nil), slot
}

func sampleCollection(n int) models.Collection {
	c := models.Collection{}
	for i := 0; i < n; i++ {
		c = append(c, models.FavoriteRecord{
			ID:                models.NewID(),
			ContactRef:        fmt.Sprintf("contact-%v:ABPerson", i%3),
			ContactGivenName:  "Ada",
			ContactFamilyName: fmt.Sprintf("Lovelace %v", i),
			PhoneNumber:       "+1 (555) 010-0100",
			DisplayName:       fmt.Sprintf("Ada Lovelace %v", i),
			Method:            models.AllMethods[i%len(models.AllMethods)],
			App:               models.AllApps[i%len(models.AllApps)],
		})
		if i%2 == 0 {
			c[i].AvatarRef = fmt.Sprintf("contact-%v_abc.jpg", i)
		}
		if i%4 == 0 {
			c[i].EmailAddress = "ada@example.com"
		}
	}
	return c
}

func TestLoadEmptySlot(t *testing.T) {
	store, _ := newFileStore(t, 0)

	collection, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, collection)
	assert.Equal(t, DEFAULT_CEILING, store.Ceiling())
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 40} {
		t.Run(fmt.Sprintf("%v records", n), func(t *testing.T) {
			store, _ := newFileStore(t, 0)
			collection := sampleCollection(n)

			require.NoError(t, store.Save(collection))
			loaded, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, collection, loaded)
		})
	}
}

func TestSaveRefusesOversizeAndKeepsPriorState(t *testing.T) {
	store, slot := newFileStore(t, 2048)

	small := sampleCollection(2)
	require.NoError(t, store.Save(small))
	before, err := slot.Read()
	require.NoError(t, err)

	err = store.Save(sampleCollection(50))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOversize))

	var oversize *OversizeError
	require.True(t, errors.As(err, &oversize))
	assert.Equal(t, "save", oversize.Op)
	assert.Greater(t, oversize.Size, int64(2048))

	after, err := slot.Read()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, small, loaded)
}

func TestLoadOversizeDoesNotDecode(t *testing.T) {
	store, slot := newFileStore(t, 64)
	require.NoError(t, slot.Write([]byte("["+strings.Repeat(" ", 100)+"]")))

	_, err := store.Load()
	assert.True(t, errors.Is(err, ErrOversize))

	raw, exists, err := store.LoadRaw()
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Len(t, raw, 102)
}

func TestDecodeForwardFillsOptionalFields(t *testing.T) {
	store, slot := newFileStore(t, 0)

	require.NoError(t, slot.Write([]byte(`[
		{"contactIdentifier":"c1","phoneNumber":"555-0100","displayName":"Grace Hopper",
		 "contactGivenName":"Grace","contactFamilyName":"Hopper",
		 "communicationMethod":"hologram","communicationApp":"pager","favoriteColor":"blue"},
		{"id":"fixed","contactIdentifier":"c2","phoneNumber":"555-0101","displayName":"Alan Turing",
		 "contactGivenName":"Alan","contactFamilyName":"Turing",
		 "communicationMethod":"textMessage","communicationApp":"signal","customImageFileName":"c2_x.jpg"},
		{"id":"fixed","contactIdentifier":"c3","phoneNumber":"","displayName":"",
		 "contactGivenName":"","contactFamilyName":"","emailAddress":"x@example.com"}
	]`)))

	collection, assigned, err := store.LoadAssigningIDs()
	require.NoError(t, err)
	require.Len(t, collection, 3)
	assert.True(t, assigned)

	assert.NotEmpty(t, collection[0].ID)
	assert.Equal(t, models.VoiceCall, collection[0].Method)
	assert.Equal(t, models.PhoneApp, collection[0].App)
	assert.False(t, collection[0].HasAvatar())

	assert.Equal(t, "fixed", collection[1].ID)
	assert.Equal(t, models.TextMessage, collection[1].Method)
	assert.Equal(t, models.SignalApp, collection[1].App)
	assert.Equal(t, "c2_x.jpg", collection[1].AvatarRef)

	assert.NotEqual(t, "fixed", collection[2].ID, "duplicate ids are replaced")
	assert.Equal(t, "x@example.com", collection[2].EmailAddress)
}

func TestDecodeReportsAssignedIDs(t *testing.T) {
	record := `{"contactIdentifier":"c1","phoneNumber":"1","displayName":"A","contactGivenName":"A","contactFamilyName":"B"`

	cases := []struct {
		description string
		stored      string
		assigned    bool
	}{
		{"Should NOT report ids when every record has a unique one", `[` + record + `,"id":"a"},` + record + `,"id":"b"}]`, false},
		{"Should report ids for records without one", `[` + record + `}]`, true},
		{"Should report ids replacing duplicates", `[` + record + `,"id":"a"},` + record + `,"id":"a"}]`, true},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			_, assigned, err := DecodeCollection([]byte(c.stored))
			require.NoError(t, err)
			assert.Equal(t, c.assigned, assigned)
		})
	}
}

func TestDecodeFailures(t *testing.T) {
	cases := []struct {
		description string
		stored      string
		document    bool
	}{
		{"Should flag records without cached names as a document", `[{"contactIdentifier":"c1","phoneNumber":"555"}]`, true},
		{"Should flag inline image records as a document",
			`[{"contactIdentifier":"c1","phoneNumber":"555","displayName":"A","contactGivenName":"A",` +
				`"contactFamilyName":"B","customImageData":"aGVsbG8="}]`, true},
		{"Should flag an object root as not a document", `{"favorites":[]}`, false},
		{"Should flag garbage as not a document", `\x00\x01 not json`, false},
		{"Should flag truncated json as not a document", `[{"contactIdentifier":"c1"`, false},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			store, slot := newFileStore(t, 0)
			require.NoError(t, slot.Write([]byte(c.stored)))

			_, err := store.Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode))

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, c.document, decodeErr.Document)
		})
	}
}

func TestEncodeWritesPersistedContract(t *testing.T) {
	data, err := EncodeCollection(models.Collection{{
		ID: "id-1", ContactRef: "c1", PhoneNumber: "555", DisplayName: "A B",
		ContactGivenName: "A", ContactFamilyName: "B", Method: models.VideoCall, App: models.FaceTimeApp,
	}})
	require.NoError(t, err)

	for _, key := range []string{"contactIdentifier", "phoneNumber", "displayName", "communicationMethod",
		"communicationApp", "contactGivenName", "contactFamilyName", "schemaVersion"} {
		assert.Contains(t, string(data), fmt.Sprintf("%q", key))
	}
	assert.NotContains(t, string(data), "customImageFileName")
	assert.NotContains(t, string(data), "emailAddress")
}
