package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_AnnounceDedup(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Announce("u1", "c1"))
	assert.False(t, r.Announce("u1", "c1"))
	assert.False(t, r.Announce("u1", "c2"), "second connection for a present user is ignored")
	assert.False(t, r.Announce("u2", "c1"), "connection stays bound to its first user")

	assert.Equal(t, []Entry{{UserID: "u1", ConnectionID: "c1"}}, r.List())
}

func TestRegistry_RemoveAndOrder(t *testing.T) {
	r := NewRegistry()
	r.Announce("u1", "c1")
	r.Announce("u2", "c2")
	r.Announce("u3", "c3")

	e, ok := r.Remove("c2")
	assert.True(t, ok)
	assert.Equal(t, Entry{UserID: "u2", ConnectionID: "c2"}, e)

	_, ok = r.Remove("c2")
	assert.False(t, ok)
	_, ok = r.Remove("never")
	assert.False(t, ok)

	assert.Equal(t, []Entry{
		{UserID: "u1", ConnectionID: "c1"},
		{UserID: "u3", ConnectionID: "c3"},
	}, r.List())

	// A freed user can announce again from a new connection.
	assert.True(t, r.Announce("u2", "c4"))
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_ListIsCopy(t *testing.T) {
	r := NewRegistry()
	r.Announce("u1", "c1")

	l := r.List()
	l[0].UserID = "mutated"

	user, ok := r.UserOf("c1")
	assert.True(t, ok)
	assert.Equal(t, "u1", user)
	assert.Empty(t, NewRegistry().List())
}
