package gormstore

import (
	"time"

	"github.com/sraza0098/wisp-backend/internal/domain"
)

type userRow struct {
	ID                string `gorm:"primarykey;size:36"`
	FirstName         string `gorm:"size:100;not null"`
	LastName          string `gorm:"size:100;not null"`
	Email             string `gorm:"size:255;not null;uniqueIndex"`
	Picture           string `gorm:"size:500"`
	About             string `gorm:"size:500"`
	PasswordHash      string `gorm:"size:100"`
	Role              string `gorm:"size:20;not null;default:user"`
	OAuth             bool   `gorm:"not null;default:false"`
	OAuthMethod       string `gorm:"size:20"`
	PasswordChangedAt *time.Time
	LastLoginAt       *time.Time
	CreatedAt         time.Time
}

func (userRow) TableName() string { return "users" }

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:                r.ID,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Email:             r.Email,
		Picture:           r.Picture,
		About:             r.About,
		PasswordHash:      r.PasswordHash,
		Role:              r.Role,
		OAuth:             r.OAuth,
		OAuthMethod:       r.OAuthMethod,
		PasswordChangedAt: r.PasswordChangedAt,
		LastLoginAt:       r.LastLoginAt,
		CreatedAt:         r.CreatedAt,
	}
}

func userFromDomain(u *domain.User) *userRow {
	return &userRow{
		ID:                u.ID,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Email:             u.Email,
		Picture:           u.Picture,
		About:             u.About,
		PasswordHash:      u.PasswordHash,
		Role:              u.Role,
		OAuth:             u.OAuth,
		OAuthMethod:       u.OAuthMethod,
		PasswordChangedAt: u.PasswordChangedAt,
		LastLoginAt:       u.LastLoginAt,
		CreatedAt:         u.CreatedAt,
	}
}

type roomRow struct {
	ID          string `gorm:"primarykey;size:36"`
	Name        string `gorm:"size:100;not null;uniqueIndex"`
	Description string `gorm:"size:500;not null"`
	ShortName   string `gorm:"size:50;not null;uniqueIndex"`
	CreatedAt   time.Time
}

func (roomRow) TableName() string { return "rooms" }

type roomMemberRow struct {
	RoomID   string `gorm:"primarykey;size:36"`
	UserID   string `gorm:"primarykey;size:36;index"`
	JoinedAt time.Time
}

func (roomMemberRow) TableName() string { return "room_members" }

type messageRow struct {
	ID        string    `gorm:"primarykey;size:36"`
	RoomID    string    `gorm:"size:36;not null;index:idx_messages_room_created,priority:1"`
	SenderID  string    `gorm:"size:36;not null;index"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index:idx_messages_room_created,priority:2"`
	UpdatedAt time.Time
}

func (messageRow) TableName() string { return "messages" }

// messageView is a message joined with its sender.
type messageView struct {
	ID              string
	RoomID          string
	Content         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SenderID        string
	SenderFirstName string
	SenderLastName  string
	SenderPicture   string
}

func (v messageView) toDomain() domain.Message {
	return domain.Message{
		ID:     v.ID,
		RoomID: v.RoomID,
		Sender: domain.Member{
			ID:        v.SenderID,
			FirstName: v.SenderFirstName,
			LastName:  v.SenderLastName,
			Picture:   v.SenderPicture,
		},
		Content:   v.Content,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}
