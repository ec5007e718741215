package store

import (
	"context"
	"errors"
	"time"

	"github.com/sraza0098/wisp-backend/internal/domain"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

type Users interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserByID(ctx context.Context, id string) (*domain.User, error)
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	DeleteUser(ctx context.Context, id string) error
}

type Rooms interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	CreateRoom(ctx context.Context, n domain.NewRoom, creatorID string) (*domain.Room, error)
	RoomByID(ctx context.Context, id string) (*domain.Room, error)
	// AddRoomMember reports false when the user was already a member.
	AddRoomMember(ctx context.Context, roomID, userID string) (*domain.Room, bool, error)
	// RemoveRoomMember reports false when the user was not a member.
	RemoveRoomMember(ctx context.Context, roomID, userID string) (*domain.Room, bool, error)
}

type Messages interface {
	CreateMessage(ctx context.Context, n domain.NewMessage) (*domain.Message, error)
	ListMessages(ctx context.Context, roomID string, f domain.MessageFilter) ([]domain.Message, error)
	// SearchMessages looks across every room userID belongs to.
	SearchMessages(ctx context.Context, userID string, f domain.MessageFilter) ([]domain.Message, error)
}

// Store is the persistence collaborator of the HTTP layer.
type Store interface {
	Users
	Rooms
	Messages
	Ping(ctx context.Context) error
	Close() error
}
