package directory

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("contact not found")

// Fields selects what a lookup should return.
type Fields struct {
	Names          bool
	PhoneNumbers   bool
	EmailAddresses bool
	// ImageBytes are only for transient rendering and must never be persisted.
	ImageBytes bool
}

var (
	NameFields = Fields{Names: true}
	AllFields  = Fields{Names: true, PhoneNumbers: true, EmailAddresses: true, ImageBytes: true}
)

// Contact is a read-only snapshot of a directory entry.
type Contact struct {
	Ref            string
	GivenName      string
	FamilyName     string
	DisplayName    string
	PhoneNumbers   []string
	EmailAddresses []string
	ImageBytes     []byte
}

// Directory is the external contact directory. It is only ever read.
type Directory interface {
	// Fetch returns the contact for ref, or ErrNotFound.
	Fetch(ctx context.Context, ref string, fields Fields) (*Contact, error)
}

// MAX_RETRIES bounds directory lookups: one attempt plus at most one retry.
const MAX_RETRIES = 1

// FetchWithRetry calls d.Fetch and retries once on failures other than
// ErrNotFound or a cancelled context.
func FetchWithRetry(ctx context.Context, d Directory, ref string, fields Fields) (*Contact, error) {
	if d == nil {
		return nil, ErrNotFound
	}

	var contact *Contact
	var err error
	for attempt := 0; attempt <= MAX_RETRIES; attempt++ {
		contact, err = d.Fetch(ctx, ref, fields)
		if err == nil || errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			break
		}
	}

	return contact, err
}
