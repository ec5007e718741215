package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sraza0098/wisp-backend/internal/domain"
	"github.com/sraza0098/wisp-backend/internal/store"
)

// Store implements store.Store on database/sql with the pgx driver.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open returns a Store for dsn. It does not contact the server; call Ping.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// DB exposes the pool for migrations.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

// mapErr converts driver errors to store sentinels.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		case "22P02", "23503": // malformed uuid, dangling reference
			return store.ErrNotFound
		}
	}
	return err
}

// Users

const userColumns = `id, first_name, last_name, email, picture, about, password_hash, role,
	oauth, oauth_method, password_changed_at, last_login_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u                    domain.User
		changedAt, lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Picture, &u.About,
		&u.PasswordHash, &u.Role, &u.OAuth, &u.OAuthMethod, &changedAt, &lastLogin, &u.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if changedAt.Valid {
		t := changedAt.Time
		u.PasswordChangedAt = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.Picture == "" {
		u.Picture = domain.DefaultPicture
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (first_name, last_name, email, picture, about, password_hash, role, oauth, oauth_method)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id, created_at`,
		u.FirstName, u.LastName, u.Email, u.Picture, u.About, u.PasswordHash, u.Role, u.OAuth, u.OAuthMethod,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", mapErr(err))
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, domain.NormalizeEmail(email)))
}

func (s *Store) UpdateUser(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			email      = COALESCE($4, email),
			about      = COALESCE($5, about),
			picture    = COALESCE($6, picture)
		 WHERE id=$1
		 RETURNING `+userColumns,
		id, p.FirstName, p.LastName, p.Email, p.About, p.Picture))
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	return s.execOne(ctx, "update password",
		`UPDATE users SET password_hash=$2, password_changed_at=$3 WHERE id=$1`, id, hash, changedAt)
}

func (s *Store) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, "touch login", `UPDATE users SET last_login_at=$2 WHERE id=$1`, id, at)
}

// DeleteUser relies on ON DELETE CASCADE for memberships and messages.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete user", `DELETE FROM users WHERE id=$1`, id)
}

func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Rooms

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, short_name, created_at FROM rooms ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []domain.Room{}
	for rows.Next() {
		var r domain.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.ShortName, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	for i := range rooms {
		if rooms[i].Members, err = members(ctx, s.db, rooms[i].ID); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (s *Store) CreateRoom(ctx context.Context, n domain.NewRoom, creatorID string) (*domain.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO rooms (name, description, short_name) VALUES ($1,$2,$3) RETURNING id`,
		n.Name, n.Description, n.ShortName).Scan(&id); err != nil {
		return nil, fmt.Errorf("create room: %w", mapErr(err))
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO room_members (room_id, user_id) VALUES ($1,$2)`, id, creatorID); err != nil {
		return nil, fmt.Errorf("add creator: %w", mapErr(err))
	}
	room, err := roomByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return room, nil
}

func (s *Store) RoomByID(ctx context.Context, id string) (*domain.Room, error) {
	return roomByID(ctx, s.db, id)
}

func (s *Store) AddRoomMember(ctx context.Context, roomID, userID string) (*domain.Room, bool, error) {
	if _, err := roomByID(ctx, s.db, roomID); err != nil {
		return nil, false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO room_members (room_id, user_id) VALUES ($1,$2)
		 ON CONFLICT (room_id, user_id) DO NOTHING`, roomID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("join room: %w", mapErr(err))
	}
	n, _ := res.RowsAffected()
	room, err := roomByID(ctx, s.db, roomID)
	if err != nil {
		return nil, false, err
	}
	return room, n > 0, nil
}

func (s *Store) RemoveRoomMember(ctx context.Context, roomID, userID string) (*domain.Room, bool, error) {
	if _, err := roomByID(ctx, s.db, roomID); err != nil {
		return nil, false, err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM room_members WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("leave room: %w", mapErr(err))
	}
	n, _ := res.RowsAffected()
	room, err := roomByID(ctx, s.db, roomID)
	if err != nil {
		return nil, false, err
	}
	return room, n > 0, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func roomByID(ctx context.Context, q querier, id string) (*domain.Room, error) {
	var r domain.Room
	err := q.QueryRowContext(ctx,
		`SELECT id, name, description, short_name, created_at FROM rooms WHERE id=$1`, id).
		Scan(&r.ID, &r.Name, &r.Description, &r.ShortName, &r.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if r.Members, err = members(ctx, q, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func members(ctx context.Context, q querier, roomID string) ([]domain.Member, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT u.id, u.first_name, u.last_name, u.picture
		   FROM room_members rm JOIN users u ON u.id = rm.user_id
		  WHERE rm.room_id=$1
		  ORDER BY rm.joined_at, rm.user_id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()

	out := []domain.Member{}
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Picture); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Messages

const messageSelect = `
	SELECT m.id, m.room_id, m.content, m.created_at, m.updated_at,
	       u.id, u.first_name, u.last_name, u.picture
	  FROM messages m
	  JOIN users u ON u.id = m.sender_id`

func (s *Store) CreateMessage(ctx context.Context, n domain.NewMessage) (*domain.Message, error) {
	var id string
	if err := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (room_id, sender_id, content) VALUES ($1,$2,$3) RETURNING id`,
		n.RoomID, n.SenderID, n.Content).Scan(&id); err != nil {
		return nil, fmt.Errorf("create message: %w", mapErr(err))
	}
	msgs, err := s.queryMessages(ctx, messageSelect+` WHERE m.id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, store.ErrNotFound
	}
	return &msgs[0], nil
}

func (s *Store) ListMessages(ctx context.Context, roomID string, f domain.MessageFilter) ([]domain.Message, error) {
	where := []string{"m.room_id = $1"}
	args := []any{roomID}
	where, args = filterClauses(where, args, f)

	query := fmt.Sprintf(`%s WHERE %s ORDER BY m.created_at DESC, m.id DESC LIMIT %d`,
		messageSelect, strings.Join(where, " AND "), f.EffectiveLimit())
	return s.queryMessages(ctx, query, args...)
}

func (s *Store) SearchMessages(ctx context.Context, userID string, f domain.MessageFilter) ([]domain.Message, error) {
	where := []string{"rm.user_id = $1"}
	args := []any{userID}
	if f.RoomID != "" {
		args = append(args, f.RoomID)
		where = append(where, fmt.Sprintf("m.room_id = $%d", len(args)))
	}
	where, args = filterClauses(where, args, f)

	query := fmt.Sprintf(`%s JOIN room_members rm ON rm.room_id = m.room_id
		WHERE %s ORDER BY m.created_at DESC, m.id DESC LIMIT %d`,
		messageSelect, strings.Join(where, " AND "), f.EffectiveLimit())
	return s.queryMessages(ctx, query, args...)
}

func filterClauses(where []string, args []any, f domain.MessageFilter) ([]string, []any) {
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where = append(where, fmt.Sprintf("m.content ILIKE $%d", len(args)))
	}
	switch {
	case f.Before != nil && f.BeforeID != "":
		args = append(args, *f.Before, f.BeforeID)
		where = append(where, fmt.Sprintf("(m.created_at, m.id) < ($%d, $%d::uuid)", len(args)-1, len(args)))
	case f.Before != nil:
		args = append(args, *f.Before)
		where = append(where, fmt.Sprintf("m.created_at < $%d", len(args)))
	}
	return where, args
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, store.ErrNotFound) {
			return []domain.Message{}, nil
		}
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	out := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Content, &m.CreatedAt, &m.UpdatedAt,
			&m.Sender.ID, &m.Sender.FirstName, &m.Sender.LastName, &m.Sender.Picture); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
