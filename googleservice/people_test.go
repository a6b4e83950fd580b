package googleservice

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Daskott/favdial/directory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	people "google.golang.org/api/people/v1"
)

func TestPeopleDirectoryFetch(t *testing.T) {
	fake := NewFakePeopleServer()
	defer fake.Close()

	fake.Photos["ada.jpg"] = []byte("ada-photo")
	fake.Persons["people/c1"] = &people.Person{
		ResourceName: "people/c1",
		Names: []*people.Name{
			{GivenName: "Augusta", FamilyName: "Byron", DisplayName: "Augusta Byron"},
			{GivenName: "Ada", FamilyName: "Lovelace", DisplayName: "Ada Lovelace", Metadata: &people.FieldMetadata{Primary: true}},
		},
		PhoneNumbers:   []*people.PhoneNumber{{Value: "+1 555 0100"}},
		EmailAddresses: []*people.EmailAddress{{Value: "ada@example.com"}},
		Photos: []*people.Photo{
			{Url: fake.URL + PhotoPath + "default.jpg", Default: true},
			{Url: fake.URL + PhotoPath + "ada.jpg"},
		},
	}

	pd, err := fake.Directory(context.Background())
	require.NoError(t, err)

	testCases := []struct {
		description string
		ref         string
		fields      directory.Fields
		withImage   bool
	}{
		{description: "names only", ref: "people/c1", fields: directory.NameFields},
		{description: "bare id", ref: "c1", fields: directory.NameFields},
		{description: "all fields", ref: "people/c1", fields: directory.AllFields, withImage: true},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			contact, err := pd.Fetch(context.Background(), tc.ref, tc.fields)
			require.NoError(t, err)

			assert.Equal(t, tc.ref, contact.Ref)
			assert.Equal(t, "Ada", contact.GivenName)
			assert.Equal(t, "Lovelace", contact.FamilyName)
			assert.Equal(t, []string{"+1 555 0100"}, contact.PhoneNumbers)

			if tc.withImage {
				assert.Equal(t, []byte("ada-photo"), contact.ImageBytes)
			} else {
				assert.Nil(t, contact.ImageBytes)
			}
		})
	}
}

func TestPeopleDirectoryNotFound(t *testing.T) {
	fake := NewFakePeopleServer()
	defer fake.Close()

	pd, err := fake.Directory(context.Background())
	require.NoError(t, err)

	_, err = pd.Fetch(context.Background(), "people/missing", directory.NameFields)
	assert.True(t, errors.Is(err, directory.ErrNotFound), "got %v", err)

	// NotFound is final, so the retry helper makes a single call
	_, err = directory.FetchWithRetry(context.Background(), pd, "people/missing", directory.NameFields)
	assert.True(t, errors.Is(err, directory.ErrNotFound))
}

func TestPersonFields(t *testing.T) {
	assert.Equal(t, "names", personFields(directory.Fields{}))
	assert.Equal(t, "names", personFields(directory.NameFields))
	assert.Equal(t, "names,phoneNumbers,emailAddresses,photos", personFields(directory.AllFields))
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".favdial-token.json")

	_, err := tokenFromFile(path)
	assert.Error(t, err)

	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).Round(time.Second)}
	require.NoError(t, saveToken(path, token))

	loaded, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, token.AccessToken, loaded.AccessToken)
	assert.Equal(t, token.RefreshToken, loaded.RefreshToken)
	assert.True(t, token.Expiry.Equal(loaded.Expiry))
}

func TestOAuthConfig(t *testing.T) {
	credentials := GoogleAppCredentials{Installed: InstalledType{
		ClientId:     "client-id",
		ClientSecret: "secret",
		AuthURI:      "https://accounts.google.com/o/oauth2/auth",
		TokenURI:     "https://oauth2.googleapis.com/token",
		RedirectUris: []string{"urn:ietf:wg:oauth:2.0:oob"},
	}}

	config, err := credentials.OAuthConfig(people.ContactsReadonlyScope)
	require.NoError(t, err)
	assert.Equal(t, "client-id", config.ClientID)
	assert.Equal(t, []string{people.ContactsReadonlyScope}, config.Scopes)
	assert.True(t, strings.HasPrefix(config.AuthCodeURL("state"), "https://accounts.google.com/"))
}
