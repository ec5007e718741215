package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignup_Validate(t *testing.T) {
	valid := Signup{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Password:        "engine-42",
		PasswordConfirm: "engine-42",
	}

	tests := []struct {
		name   string
		mutate func(*Signup)
		field  string
	}{
		{name: "valid", mutate: func(*Signup) {}},
		{name: "missing first name", mutate: func(s *Signup) { s.FirstName = "" }, field: "firstName"},
		{name: "missing last name", mutate: func(s *Signup) { s.LastName = "" }, field: "lastName"},
		{name: "missing email", mutate: func(s *Signup) { s.Email = "" }, field: "email"},
		{name: "bad email", mutate: func(s *Signup) { s.Email = "ada@" }, field: "email"},
		{name: "display name email", mutate: func(s *Signup) { s.Email = "Ada <ada@example.com>" }, field: "email"},
		{name: "no tld", mutate: func(s *Signup) { s.Email = "ada@localhost" }, field: "email"},
		{name: "short password", mutate: func(s *Signup) { s.Password, s.PasswordConfirm = "short", "short" }, field: "password"},
		{name: "missing confirm", mutate: func(s *Signup) { s.PasswordConfirm = "" }, field: "passwordConfirm"},
		{name: "mismatch", mutate: func(s *Signup) { s.PasswordConfirm = "engine-43" }, field: "passwordConfirm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			if assert.True(t, errors.As(err, &verr)) {
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestSignup_Normalize(t *testing.T) {
	s := Signup{FirstName: " Ada ", Email: " ADA@Example.COM "}
	s.Normalize()
	assert.Equal(t, "Ada", s.FirstName)
	assert.Equal(t, "ada@example.com", s.Email)
}

func TestUser_PasswordChangedAfter(t *testing.T) {
	iat := time.Unix(1_700_000_000, 0)
	u := &User{}
	assert.False(t, u.PasswordChangedAfter(iat))

	before := iat.Add(-time.Second)
	u.PasswordChangedAt = &before
	assert.False(t, u.PasswordChangedAfter(iat))

	sameSecond := iat.Add(500 * time.Millisecond)
	u.PasswordChangedAt = &sameSecond
	assert.False(t, u.PasswordChangedAfter(iat))

	after := iat.Add(2 * time.Second)
	u.PasswordChangedAt = &after
	assert.True(t, u.PasswordChangedAfter(iat))
}

func TestProfileUpdate(t *testing.T) {
	first, email, about := " Grace ", "GRACE@Navy.mil", "compilers"
	p := ProfileUpdate{FirstName: &first, Email: &email, About: &about}
	p.Normalize()
	assert.NoError(t, p.Validate())

	u := &User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	p.Apply(u)
	assert.Equal(t, "Grace", u.FirstName)
	assert.Equal(t, "Lovelace", u.LastName)
	assert.Equal(t, "grace@navy.mil", u.Email)
	assert.Equal(t, "compilers", u.About)

	empty := ""
	assert.Error(t, ProfileUpdate{LastName: &empty}.Validate())
}

func TestRoom(t *testing.T) {
	n := NewRoom{Name: " general ", Description: "chit chat", ShortName: "gen"}
	n.Normalize()
	assert.NoError(t, n.Validate())
	assert.Equal(t, "general", n.Name)
	assert.Error(t, NewRoom{Name: "x"}.Validate())

	r := Room{Members: []Member{{ID: "u1"}}}
	assert.True(t, r.HasMember("u1"))
	assert.False(t, r.HasMember("u2"))
}

func TestMessageFilter_EffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultMessageLimit, MessageFilter{}.EffectiveLimit())
	assert.Equal(t, DefaultMessageLimit, MessageFilter{Limit: -3}.EffectiveLimit())
	assert.Equal(t, MaxMessageLimit, MessageFilter{Limit: 500}.EffectiveLimit())
	assert.Equal(t, MaxMessageLimit, MessageFilter{Limit: MaxMessageLimit}.EffectiveLimit())
	assert.Equal(t, 10, MessageFilter{Limit: 10}.EffectiveLimit())
	assert.Error(t, NewMessage{Content: "  "}.Validate())
	assert.NoError(t, NewMessage{Content: "hi"}.Validate())
}
