package migration

import (
	"encoding/base64"
	"strings"

	"github.com/Daskott/favdial/models"
	"github.com/Daskott/favdial/recordstore"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// SchemaVersion tags the shape a persisted record was written in.
type SchemaVersion int

const (
	SchemaUnknown SchemaVersion = iota
	// SchemaV1 records predate routing: no method, app, avatar or cached names.
	SchemaV1
	// SchemaV2 records embed the avatar bytes inline.
	SchemaV2
	// SchemaV3 is the current shape, with avatars in the blob store.
	SchemaV3
)

const CURRENT_VERSION = SchemaV3

func (v SchemaVersion) String() string {
	switch v {
	case SchemaV1:
		return "v1"
	case SchemaV2:
		return "v2"
	case SchemaV3:
		return "v3"
	}
	return "unknown"
}

var errUnknownShape = errors.New("entry matches no known record shape")

// draft is a record on its way to the current shape.
type draft struct {
	version SchemaVersion

	id          string
	contactRef  string
	phoneNumber string
	email       string
	displayName string
	givenName   string
	familyName  string
	method      string
	app         string
	avatarRef   string

	inlineImage    []byte
	inlineImageBad bool
}

// detectVersion classifies one entry of the untyped document.
func detectVersion(entry gjson.Result) SchemaVersion {
	if !entry.IsObject() {
		return SchemaUnknown
	}

	ref := entry.Get("contactIdentifier")
	if ref.Type != gjson.String || strings.TrimSpace(ref.String()) == "" {
		return SchemaUnknown
	}

	phone, email := entry.Get("phoneNumber"), entry.Get("emailAddress")
	if phone.Type != gjson.String && email.Type != gjson.String {
		return SchemaUnknown
	}

	hasNames := entry.Get("contactGivenName").Exists() && entry.Get("contactFamilyName").Exists()
	switch {
	case !hasNames:
		return SchemaV1
	case entry.Get(recordstore.LEGACY_INLINE_IMAGE_KEY).Exists():
		return SchemaV2
	default:
		return SchemaV3
	}
}

func parseDraft(entry gjson.Result) (*draft, error) {
	version := detectVersion(entry)
	if version == SchemaUnknown {
		return nil, errUnknownShape
	}

	d := &draft{
		version:     version,
		id:          entry.Get("id").String(),
		contactRef:  entry.Get("contactIdentifier").String(),
		phoneNumber: entry.Get("phoneNumber").String(),
		email:       entry.Get("emailAddress").String(),
		displayName: entry.Get("displayName").String(),
		givenName:   entry.Get("contactGivenName").String(),
		familyName:  entry.Get("contactFamilyName").String(),
		method:      entry.Get("communicationMethod").String(),
		app:         entry.Get("communicationApp").String(),
		avatarRef:   entry.Get("customImageFileName").String(),
	}

	if inline := entry.Get(recordstore.LEGACY_INLINE_IMAGE_KEY); inline.Exists() {
		d.inlineImage, d.inlineImageBad = decodeInlineImage(inline)
	}

	return d, nil
}

// decodeInlineImage accepts a base64 string or an array of byte values.
func decodeInlineImage(value gjson.Result) ([]byte, bool) {
	switch {
	case value.Type == gjson.Null:
		return nil, false
	case value.Type == gjson.String:
		if value.String() == "" {
			return nil, false
		}
		for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
			if data, err := enc.DecodeString(value.String()); err == nil {
				return data, false
			}
		}
		return nil, true
	case value.IsArray():
		data := []byte{}
		for _, b := range value.Array() {
			if b.Type != gjson.Number || b.Int() < 0 || b.Int() > 255 {
				return nil, true
			}
			data = append(data, byte(b.Int()))
		}
		return data, false
	}
	return nil, true
}

func (d *draft) record() models.FavoriteRecord {
	id := d.id
	if id == "" {
		id = models.NewID()
	}

	return models.FavoriteRecord{
		ID:                id,
		ContactRef:        d.contactRef,
		ContactGivenName:  d.givenName,
		ContactFamilyName: d.familyName,
		PhoneNumber:       d.phoneNumber,
		EmailAddress:      d.email,
		DisplayName:       d.displayName,
		Method:            models.MethodOrDefault(d.method),
		App:               models.AppOrDefault(d.app),
		AvatarRef:         d.avatarRef,
	}
}
