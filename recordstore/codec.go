package recordstore

import (
	"encoding/json"

	"github.com/Daskott/favdial/models"
	"github.com/pkg/errors"
)

// CURRENT_SCHEMA_VERSION is written into every record. Records from older
// builds carry no version and are recognised by shape instead.
const CURRENT_SCHEMA_VERSION = 3

// LEGACY_INLINE_IMAGE_KEY is the key older builds used to embed avatar bytes.
const LEGACY_INLINE_IMAGE_KEY = "customImageData"

// AVATAR_REF_KEY holds the blob key of a record's avatar.
const AVATAR_REF_KEY = "customImageFileName"

type persistedRecord struct {
	SchemaVersion       int             `json:"schemaVersion,omitempty"`
	ID                  string          `json:"id,omitempty"`
	ContactIdentifier   *string         `json:"contactIdentifier"`
	PhoneNumber         *string         `json:"phoneNumber"`
	DisplayName         *string         `json:"displayName"`
	CommunicationMethod string          `json:"communicationMethod,omitempty"`
	CommunicationApp    string          `json:"communicationApp,omitempty"`
	CustomImageFileName string          `json:"customImageFileName,omitempty"`
	ContactGivenName    *string         `json:"contactGivenName"`
	ContactFamilyName   *string         `json:"contactFamilyName"`
	EmailAddress        string          `json:"emailAddress,omitempty"`
	CustomImageData     json.RawMessage `json:"customImageData,omitempty"`
}

// EncodeCollection serializes c in the current schema.
func EncodeCollection(c models.Collection) ([]byte, error) {
	records := make([]persistedRecord, 0, len(c))
	for _, favorite := range c {
		records = append(records, toPersisted(favorite))
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(err, "EncodeCollection")
	}
	return data, nil
}

// DecodeCollection decodes data against the current schema. Missing optional
// fields are forward-filled; records without an id, or with a duplicate one,
// get a fresh id. assigned reports whether that happened, in which case the
// collection differs from data and must be saved for the ids to last.
func DecodeCollection(data []byte) (collection models.Collection, assigned bool, err error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, errors.Wrap(err, "DecodeCollection")
	}

	seen := map[string]bool{}
	collection = make(models.Collection, 0, len(records))
	for i, raw := range records {
		favorite, err := DecodeRecord(raw)
		if err != nil {
			return nil, false, errors.Wrapf(err, "record %v", i)
		}

		if favorite.ID == "" || seen[favorite.ID] {
			favorite.ID = models.NewID()
			assigned = true
		}
		seen[favorite.ID] = true

		collection = append(collection, favorite)
	}

	return collection, assigned, nil
}

// DecodeRecord decodes a single current-schema record. A missing id is left
// empty.
func DecodeRecord(raw []byte) (models.FavoriteRecord, error) {
	var record persistedRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return models.FavoriteRecord{}, err
	}

	if record.CustomImageData != nil {
		return models.FavoriteRecord{}, errors.Errorf("legacy %q field present", LEGACY_INLINE_IMAGE_KEY)
	}

	required := map[string]*string{
		"contactIdentifier": record.ContactIdentifier,
		"phoneNumber":       record.PhoneNumber,
		"displayName":       record.DisplayName,
		"contactGivenName":  record.ContactGivenName,
		"contactFamilyName": record.ContactFamilyName,
	}
	for _, key := range []string{"contactIdentifier", "phoneNumber", "displayName", "contactGivenName", "contactFamilyName"} {
		if required[key] == nil {
			return models.FavoriteRecord{}, errors.Errorf("missing %q", key)
		}
	}

	return models.FavoriteRecord{
		ID:                record.ID,
		ContactRef:        *record.ContactIdentifier,
		ContactGivenName:  *record.ContactGivenName,
		ContactFamilyName: *record.ContactFamilyName,
		PhoneNumber:       *record.PhoneNumber,
		EmailAddress:      record.EmailAddress,
		DisplayName:       *record.DisplayName,
		Method:            models.MethodOrDefault(record.CommunicationMethod),
		App:               models.AppOrDefault(record.CommunicationApp),
		AvatarRef:         record.CustomImageFileName,
	}, nil
}

func toPersisted(favorite models.FavoriteRecord) persistedRecord {
	return persistedRecord{
		SchemaVersion:       CURRENT_SCHEMA_VERSION,
		ID:                  favorite.ID,
		ContactIdentifier:   strPtr(favorite.ContactRef),
		PhoneNumber:         strPtr(favorite.PhoneNumber),
		DisplayName:         strPtr(favorite.DisplayName),
		CommunicationMethod: string(favorite.Method),
		CommunicationApp:    string(favorite.App),
		CustomImageFileName: favorite.AvatarRef,
		ContactGivenName:    strPtr(favorite.ContactGivenName),
		ContactFamilyName:   strPtr(favorite.ContactFamilyName),
		EmailAddress:        favorite.EmailAddress,
	}
}

func strPtr(val string) *string {
	return &val
}
