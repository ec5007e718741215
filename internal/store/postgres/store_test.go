package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/domain"
	"github.com/sraza0098/wisp-backend/internal/store"
)

func TestMapErr(t *testing.T) {
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}), store.ErrConflict)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "22P02"}), store.ErrNotFound)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23503"}), store.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "0001_users.sql", entries[0].Name())
}

func TestFilterClauses(t *testing.T) {
	before := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		filter    domain.MessageFilter
		wantWhere []string
		wantArgs  []any
	}{
		{
			name:      "query only",
			filter:    domain.MessageFilter{Query: "hi"},
			wantWhere: []string{"m.room_id = $1", "m.content ILIKE $2"},
			wantArgs:  []any{"room", "%hi%"},
		},
		{
			name:      "time cursor",
			filter:    domain.MessageFilter{Before: &before},
			wantWhere: []string{"m.room_id = $1", "m.created_at < $2"},
			wantArgs:  []any{"room", before},
		},
		{
			name:      "compound cursor",
			filter:    domain.MessageFilter{Query: "hi", Before: &before, BeforeID: "0b9c"},
			wantWhere: []string{"m.room_id = $1", "m.content ILIKE $2", "(m.created_at, m.id) < ($3, $4::uuid)"},
			wantArgs:  []any{"room", "%hi%", before, "0b9c"},
		},
		{
			name:      "id without time is ignored",
			filter:    domain.MessageFilter{BeforeID: "0b9c"},
			wantWhere: []string{"m.room_id = $1"},
			wantArgs:  []any{"room"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := filterClauses([]string{"m.room_id = $1"}, []any{"room"}, tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

// openTestStore connects to WISP_TEST_DATABASE_URL or skips.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("WISP_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("WISP_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, Migrate(ctx, s.DB(), zap.NewNop()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Integration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	ada := &domain.User{FirstName: "Ada", LastName: "L", Email: "ada-" + suffix + "@example.com", PasswordHash: "h"}
	require.NoError(t, s.CreateUser(ctx, ada))
	t.Cleanup(func() { _ = s.DeleteUser(context.Background(), ada.ID) })

	assert.ErrorIs(t, s.CreateUser(ctx, &domain.User{FirstName: "x", LastName: "y", Email: ada.Email}), store.ErrConflict)

	_, err := s.UserByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, store.ErrNotFound)

	about := "math"
	u, err := s.UpdateUser(ctx, ada.ID, domain.ProfileUpdate{About: &about})
	require.NoError(t, err)
	assert.Equal(t, "math", u.About)
	assert.Equal(t, "Ada", u.FirstName)

	room, err := s.CreateRoom(ctx, domain.NewRoom{Name: "room-" + suffix, Description: "d", ShortName: "r-" + suffix}, ada.ID)
	require.NoError(t, err)
	require.Len(t, room.Members, 1)

	_, added, err := s.AddRoomMember(ctx, room.ID, ada.ID)
	require.NoError(t, err)
	assert.False(t, added)

	m, err := s.CreateMessage(ctx, domain.NewMessage{RoomID: room.ID, SenderID: ada.ID, Content: "Hello Postgres"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", m.Sender.FirstName)

	msgs, err := s.ListMessages(ctx, room.ID, domain.MessageFilter{Query: "hello"})
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	found, err := s.SearchMessages(ctx, ada.ID, domain.MessageFilter{Query: "postgres"})
	require.NoError(t, err)
	assert.NotEmpty(t, found)

	_, removed, err := s.RemoveRoomMember(ctx, room.ID, ada.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}
