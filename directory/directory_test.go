package directory

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("directory temporarily unavailable")

func TestFetchWithRetry(t *testing.T) {
	grace := Contact{Ref: "c1", GivenName: "Grace", FamilyName: "Hopper", ImageBytes: []byte("jpg")}

	cases := []struct {
		description   string
		failures      int
		ref           string
		expectedErr   error
		expectedCalls int
	}{
		{"Should succeed on the first attempt", 0, "c1", nil, 1},
		{"Should retry once after a failure", 1, "c1", nil, 2},
		{"Should give up after one retry", 2, "c1", errFlaky, 2},
		{"Should not retry a missing contact", 0, "missing", ErrNotFound, 1},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			stub := &Stub{
				Contacts:              map[string]Contact{"c1": grace},
				FailuresBeforeSuccess: c.failures,
				Err:                   errFlaky,
			}

			contact, err := FetchWithRetry(context.Background(), stub, c.ref, NameFields)
			assert.Equal(t, c.expectedCalls, stub.Calls())

			if c.expectedErr != nil {
				assert.True(t, errors.Is(err, c.expectedErr))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Grace", contact.GivenName)
			assert.Nil(t, contact.ImageBytes, "image bytes only when requested")
		})
	}
}

func TestFetchWithRetryNilDirectory(t *testing.T) {
	_, err := FetchWithRetry(context.Background(), nil, "c1", NameFields)
	assert.True(t, errors.Is(err, ErrNotFound))
}

const testVCards = `BEGIN:VCARD
VERSION:4.0
UID:urn:uuid:grace
FN:Grace Hopper
N:Hopper;Grace;;;
TEL;TYPE=cell:+1 (555) 010-0100
EMAIL:grace@example.com
PHOTO:data:image/jpeg;base64,aGVsbG8=
END:VCARD
BEGIN:VCARD
VERSION:3.0
UID:alan
FN:Alan Turing
N:Turing;Alan;;;
TEL:555-0101
PHOTO;ENCODING=b;TYPE=JPEG:d29ybGQ=
END:VCARD
BEGIN:VCARD
VERSION:4.0
FN:No Identifier
END:VCARD
`

func TestVCardDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.vcf")
	require.NoError(t, ioutil.WriteFile(path, []byte(strings.ReplaceAll(testVCards, "\n", "\r\n")), 0600))

	dir := NewVCardDirectory(path)
	ctx := context.Background()

	grace, err := dir.Fetch(ctx, "urn:uuid:grace", AllFields)
	require.NoError(t, err)
	assert.Equal(t, "Grace", grace.GivenName)
	assert.Equal(t, "Hopper", grace.FamilyName)
	assert.Equal(t, "Grace Hopper", grace.DisplayName)
	assert.Equal(t, []string{"+1 (555) 010-0100"}, grace.PhoneNumbers)
	assert.Equal(t, []string{"grace@example.com"}, grace.EmailAddresses)
	assert.Equal(t, "hello", string(grace.ImageBytes))

	alan, err := dir.Fetch(ctx, "alan", Fields{Names: true, ImageBytes: true})
	require.NoError(t, err)
	assert.Equal(t, "Turing", alan.FamilyName)
	assert.Empty(t, alan.PhoneNumbers)
	assert.Equal(t, "world", string(alan.ImageBytes))

	_, err = dir.Fetch(ctx, "No Identifier", NameFields)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestVCardDirectoryMissingFile(t *testing.T) {
	dir := NewVCardDirectory(filepath.Join(t.TempDir(), "nope.vcf"))

	_, err := dir.Fetch(context.Background(), "alan", NameFields)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
