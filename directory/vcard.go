package directory

import (
	"context"
	"encoding/base64"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/emersion/go-vcard"
	"github.com/pkg/errors"
)

// VCardDirectory serves lookups from a .vcf export. The contact reference is
// the card's UID. The file is re-read when its modification time changes.
type VCardDirectory struct {
	path string

	mu      sync.Mutex
	modTime int64
	cards   map[string]vcard.Card
}

func NewVCardDirectory(path string) *VCardDirectory {
	return &VCardDirectory{path: path}
}

func (d *VCardDirectory) Fetch(ctx context.Context, ref string, fields Fields) (*Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cards, err := d.load()
	if err != nil {
		return nil, err
	}

	card, ok := cards[ref]
	if !ok {
		return nil, ErrNotFound
	}

	return contactFromCard(ref, card, fields), nil
}

func (d *VCardDirectory) load() (map[string]vcard.Card, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	info, err := os.Stat(d.path)
	if err != nil {
		return nil, errors.Wrapf(err, "VCardDirectory: %v", d.path)
	}

	if d.cards != nil && info.ModTime().UnixNano() == d.modTime {
		return d.cards, nil
	}

	f, err := os.Open(d.path)
	if err != nil {
		return nil, errors.Wrapf(err, "VCardDirectory: %v", d.path)
	}
	defer f.Close()

	cards := make(map[string]vcard.Card)
	dec := vcard.NewDecoder(f)
	for {
		card, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "VCardDirectory: decoding %v", d.path)
		}

		if uid := card.Value(vcard.FieldUID); uid != "" {
			cards[uid] = card
		}
	}

	d.cards = cards
	d.modTime = info.ModTime().UnixNano()

	return cards, nil
}

func contactFromCard(ref string, card vcard.Card, fields Fields) *Contact {
	contact := &Contact{Ref: ref}

	if fields.Names {
		if name := card.Name(); name != nil {
			contact.GivenName = name.GivenName
			contact.FamilyName = name.FamilyName
		}
		contact.DisplayName = card.PreferredValue(vcard.FieldFormattedName)
	}

	if fields.PhoneNumbers {
		contact.PhoneNumbers = card.Values(vcard.FieldTelephone)
	}

	if fields.EmailAddresses {
		contact.EmailAddresses = card.Values(vcard.FieldEmail)
	}

	if fields.ImageBytes {
		contact.ImageBytes = photoBytes(card.Get(vcard.FieldPhoto))
	}

	return contact
}

// photoBytes understands vCard 4 data URIs and vCard 3 inline base64 photos.
// Remote photo URIs are ignored.
func photoBytes(field *vcard.Field) []byte {
	if field == nil || field.Value == "" {
		return nil
	}

	value := field.Value
	if strings.HasPrefix(value, "data:") {
		comma := strings.Index(value, ",")
		if comma < 0 || !strings.Contains(value[:comma], ";base64") {
			return nil
		}
		value = value[comma+1:]
	} else {
		encoding := strings.ToLower(field.Params.Get("ENCODING"))
		if encoding != "b" && encoding != "base64" {
			return nil
		}
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil
	}
	return data
}
