package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCollection() Collection {
	return Collection{
		{ID: "a", DisplayName: "Ada Lovelace"},
		{ID: "b", AvatarRef: "c1_x.jpg"},
		{ID: "c"},
		{ID: "d", AvatarRef: "c2_y.jpg"},
	}
}

func ids(c Collection) []string {
	result := []string{}
	for _, f := range c {
		result = append(result, f.ID)
	}
	return result
}

func TestCollectionMove(t *testing.T) {
	cases := []struct {
		description string
		from, to    int
		expected    []string
	}{
		{"Should move first to last", 0, 3, []string{"b", "c", "d", "a"}},
		{"Should move last to first", 3, 0, []string{"d", "a", "b", "c"}},
		{"Should move within the list", 1, 2, []string{"a", "c", "b", "d"}},
		{"Should keep order when index is unchanged", 2, 2, []string{"a", "b", "c", "d"}},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			original := testCollection()
			moved := original.Move(c.from, c.to)

			assert.Equal(t, c.expected, ids(moved))
			assert.Equal(t, []string{"a", "b", "c", "d"}, ids(original), "original must not be mutated")
		})
	}
}

func TestCollectionRemoveAndRefs(t *testing.T) {
	c := testCollection()

	assert.Equal(t, 1, c.IndexOf("b"))
	assert.Equal(t, -1, c.IndexOf("z"))
	assert.Equal(t, map[string]bool{"c1_x.jpg": true, "c2_y.jpg": true}, c.AvatarRefs())

	removed := c.Remove(1)
	assert.Equal(t, []string{"a", "c", "d"}, ids(removed))
	assert.Equal(t, map[string]bool{"c2_y.jpg": true}, removed.AvatarRefs())
}

func TestEnumDefaults(t *testing.T) {
	assert.Equal(t, VideoCall, MethodOrDefault("VIDEOCALL"))
	assert.Equal(t, VoiceCall, MethodOrDefault("hologram"))
	assert.Equal(t, VoiceCall, MethodOrDefault(""))
	assert.Equal(t, WhatsAppApp, AppOrDefault("whatsapp"))
	assert.Equal(t, PhoneApp, AppOrDefault("pager"))

	assert.True(t, FaceTimeApp.EmailCapable())
	assert.False(t, PhoneApp.EmailCapable())
	assert.False(t, CommunicationApp("pager").IsValid())
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "GH", (&FavoriteRecord{ContactGivenName: "grace", ContactFamilyName: "Hopper"}).Initials())
	assert.Equal(t, "AL", (&FavoriteRecord{DisplayName: "Ada Lovelace Byron"}).Initials())
	assert.Equal(t, "", (&FavoriteRecord{}).Initials())
}
