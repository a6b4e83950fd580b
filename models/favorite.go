package models

import (
	"strings"

	"github.com/google/uuid"
)

// FavoriteRecord is one speed-dial entry. ID, ContactRef and PhoneNumber are
// fixed at creation; the cached name fields are a denormalized copy of the
// directory entry captured when the favorite was added.
type FavoriteRecord struct {
	ID                string              `json:"id"`
	ContactRef        string              `json:"contactIdentifier" validate:"required"`
	ContactGivenName  string              `json:"contactGivenName"`
	ContactFamilyName string              `json:"contactFamilyName"`
	PhoneNumber       string              `json:"phoneNumber" validate:"required_without=EmailAddress"`
	EmailAddress      string              `json:"emailAddress,omitempty" validate:"omitempty,email"`
	DisplayName       string              `json:"displayName"`
	Method            CommunicationMethod `json:"communicationMethod" validate:"required"`
	App               CommunicationApp    `json:"communicationApp" validate:"required"`
	AvatarRef         string              `json:"customImageFileName,omitempty"`
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// HasAvatar reports whether the record points at a custom avatar blob.
func (f *FavoriteRecord) HasAvatar() bool {
	return f.AvatarRef != ""
}

// Initials is what the UI renders when no avatar is available.
func (f *FavoriteRecord) Initials() string {
	initials := ""
	for _, name := range []string{f.ContactGivenName, f.ContactFamilyName} {
		name = strings.TrimSpace(name)
		if name != "" {
			initials += strings.ToUpper(string([]rune(name)[:1]))
		}
	}

	if initials == "" {
		for _, word := range strings.Fields(f.DisplayName) {
			initials += strings.ToUpper(string([]rune(word)[:1]))
			if len([]rune(initials)) == 2 {
				break
			}
		}
	}

	return initials
}

// Collection is the ordered list of favorites. Order is the dial order.
type Collection []FavoriteRecord

// IndexOf returns the position of the record with id, or -1.
func (c Collection) IndexOf(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that can be mutated without touching c.
func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	clone := make(Collection, len(c))
	copy(clone, c)
	return clone
}

// AvatarRefs returns the set of blob keys referenced by live records.
func (c Collection) AvatarRefs() map[string]bool {
	refs := make(map[string]bool)
	for _, favorite := range c {
		if favorite.HasAvatar() {
			refs[favorite.AvatarRef] = true
		}
	}
	return refs
}

// Remove returns c without the record at index.
func (c Collection) Remove(index int) Collection {
	result := make(Collection, 0, len(c)-1)
	result = append(result, c[:index]...)
	return append(result, c[index+1:]...)
}

// Move returns c with the record at from moved to index to.
func (c Collection) Move(from, to int) Collection {
	record := c[from]
	result := c.Remove(from)

	result = append(result, FavoriteRecord{})
	copy(result[to+1:], result[to:])
	result[to] = record

	return result
}
