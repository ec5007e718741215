package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sraza0098/wisp-backend/internal/domain"
	"github.com/sraza0098/wisp-backend/internal/store"
)

// Store implements store.Store on gorm, normally backed by sqlite.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the sqlite database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// sqlite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	return New(db)
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&userRow{}, &roomRow{}, &roomMemberRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.Picture == "" {
		u.Picture = domain.DefaultPicture
	}
	if err := s.db.WithContext(ctx).Create(userFromDomain(u)).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.User, error) {
	updates := map[string]any{}
	if p.FirstName != nil {
		updates["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		updates["last_name"] = *p.LastName
	}
	if p.Email != nil {
		updates["email"] = *p.Email
	}
	if p.About != nil {
		updates["about"] = *p.About
	}
	if p.Picture != nil {
		updates["picture"] = *p.Picture
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Updates(updates)
		if err := result.Error; err != nil {
			return nil, fmt.Errorf("failed to update user: %w", translate(err))
		}
		if result.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}
	return s.UserByID(ctx, id)
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "password_changed_at": changedAt.UTC()})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) TouchLogin(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Update("last_login_at", at.UTC())
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteUser removes the user with their memberships and messages.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&userRow{}, "id = ?", id)
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		if result.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if err := tx.Delete(&roomMemberRow{}, "user_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}
		if err := tx.Delete(&messageRow{}, "sender_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		return nil
	})
}

// Rooms

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var rows []roomRow
	if err := s.db.WithContext(ctx).Order("created_at DESC, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	rooms := make([]domain.Room, 0, len(rows))
	for _, row := range rows {
		members, err := s.members(s.db.WithContext(ctx), row.ID)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, roomToDomain(row, members))
	}
	return rooms, nil
}

func (s *Store) CreateRoom(ctx context.Context, n domain.NewRoom, creatorID string) (*domain.Room, error) {
	row := roomRow{
		ID:          uuid.NewString(),
		Name:        n.Name,
		Description: n.Description,
		ShortName:   n.ShortName,
		CreatedAt:   s.now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create room: %w", translate(err))
		}
		member := roomMemberRow{RoomID: row.ID, UserID: creatorID, JoinedAt: row.CreatedAt}
		if err := tx.Create(&member).Error; err != nil {
			return fmt.Errorf("failed to add creator: %w", translate(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.RoomByID(ctx, row.ID)
}

func (s *Store) RoomByID(ctx context.Context, id string) (*domain.Room, error) {
	return s.roomByID(s.db.WithContext(ctx), id)
}

func (s *Store) roomByID(db *gorm.DB, id string) (*domain.Room, error) {
	var row roomRow
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	members, err := s.members(db, id)
	if err != nil {
		return nil, err
	}
	room := roomToDomain(row, members)
	return &room, nil
}

func (s *Store) AddRoomMember(ctx context.Context, roomID, userID string) (*domain.Room, bool, error) {
	var (
		room  *domain.Room
		added bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.roomByID(tx, roomID)
		if err != nil {
			return err
		}
		if r.HasMember(userID) {
			room = r
			return nil
		}
		member := roomMemberRow{RoomID: roomID, UserID: userID, JoinedAt: s.now()}
		if err := tx.Create(&member).Error; err != nil {
			return fmt.Errorf("failed to join room: %w", translate(err))
		}
		added = true
		room, err = s.roomByID(tx, roomID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return room, added, nil
}

func (s *Store) RemoveRoomMember(ctx context.Context, roomID, userID string) (*domain.Room, bool, error) {
	var (
		room    *domain.Room
		removed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.roomByID(tx, roomID); err != nil {
			return err
		}
		result := tx.Delete(&roomMemberRow{}, "room_id = ? AND user_id = ?", roomID, userID)
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to leave room: %w", err)
		}
		removed = result.RowsAffected > 0
		var err error
		room, err = s.roomByID(tx, roomID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return room, removed, nil
}

func (s *Store) members(db *gorm.DB, roomID string) ([]domain.Member, error) {
	members := []domain.Member{}
	err := db.Table("room_members rm").
		Select("u.id, u.first_name, u.last_name, u.picture").
		Joins("JOIN users u ON u.id = rm.user_id").
		Where("rm.room_id = ?", roomID).
		Order("rm.joined_at, rm.user_id").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	return members, nil
}

func roomToDomain(row roomRow, members []domain.Member) domain.Room {
	return domain.Room{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		ShortName:   row.ShortName,
		Members:     members,
		CreatedAt:   row.CreatedAt,
	}
}

// Messages

func (s *Store) CreateMessage(ctx context.Context, n domain.NewMessage) (*domain.Message, error) {
	now := s.now()
	row := messageRow{
		ID:        uuid.NewString(),
		RoomID:    n.RoomID,
		SenderID:  n.SenderID,
		Content:   n.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", translate(err))
	}

	var views []messageView
	if err := s.messageQuery(ctx).Where("m.id = ?", row.ID).Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	if len(views) == 0 {
		return nil, store.ErrNotFound
	}
	m := views[0].toDomain()
	return &m, nil
}

func (s *Store) ListMessages(ctx context.Context, roomID string, f domain.MessageFilter) ([]domain.Message, error) {
	q := s.messageQuery(ctx).Where("m.room_id = ?", roomID)
	return s.findMessages(applyFilter(q, f), f)
}

func (s *Store) SearchMessages(ctx context.Context, userID string, f domain.MessageFilter) ([]domain.Message, error) {
	q := s.messageQuery(ctx).
		Joins("JOIN room_members rm ON rm.room_id = m.room_id AND rm.user_id = ?", userID)
	if f.RoomID != "" {
		q = q.Where("m.room_id = ?", f.RoomID)
	}
	return s.findMessages(applyFilter(q, f), f)
}

func (s *Store) messageQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("messages m").
		Select(`m.id, m.room_id, m.content, m.created_at, m.updated_at,
			u.id AS sender_id, u.first_name AS sender_first_name,
			u.last_name AS sender_last_name, u.picture AS sender_picture`).
		Joins("JOIN users u ON u.id = m.sender_id")
}

func applyFilter(q *gorm.DB, f domain.MessageFilter) *gorm.DB {
	if f.Query != "" {
		q = q.Where("LOWER(m.content) LIKE ?", "%"+strings.ToLower(f.Query)+"%")
	}
	switch {
	case f.Before != nil && f.BeforeID != "":
		before := f.Before.UTC()
		q = q.Where("(m.created_at < ? OR (m.created_at = ? AND m.id < ?))", before, before, f.BeforeID)
	case f.Before != nil:
		q = q.Where("m.created_at < ?", f.Before.UTC())
	}
	return q
}

func (s *Store) findMessages(q *gorm.DB, f domain.MessageFilter) ([]domain.Message, error) {
	var views []messageView
	err := q.Order("m.created_at DESC, m.id DESC").Limit(f.EffectiveLimit()).Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	out := make([]domain.Message, 0, len(views))
	for _, v := range views {
		out = append(out, v.toDomain())
	}
	return out, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}
