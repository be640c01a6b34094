package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// authorLabel mirrors User.Label in SQL so feed reads stay one query.
const authorLabel = `COALESCE(NULLIF(TRIM(u.display_name), ''), NULLIF(TRIM(u.handle), ''), TRIM(u.real_name), '')`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Users

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, handle, real_name, password_hash, is_email_verified)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, $7)
	`, user.ID, user.Email, user.DisplayName, user.Handle, user.RealName, user.PasswordHash, user.IsEmailVerified)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, handle, real_name, password_hash, is_email_verified, created_at, updated_at
		FROM users
		WHERE email = LOWER($1)
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &user.Handle, &user.RealName,
		&user.PasswordHash, &user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, handle, real_name, password_hash, is_email_verified, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.DisplayName, &user.Handle, &user.RealName,
		&user.PasswordHash, &user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) MarkUserVerified(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_email_verified = TRUE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Verification codes

func (s *PostgresStore) SaveVerificationCode(ctx context.Context, userID, codeHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_codes (user_id, code_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at, created_at = NOW()
	`, userID, codeHash, expiresAt)
	if err != nil {
		return fmt.Errorf("save verification code: %w", err)
	}
	return nil
}

// ConsumeVerificationCode deletes the user's pending code iff the hash
// matches and has not expired, reporting whether it did.
func (s *PostgresStore) ConsumeVerificationCode(ctx context.Context, userID, codeHash string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM verification_codes
		WHERE user_id = $1 AND code_hash = $2 AND expires_at > NOW()
	`, userID, codeHash)
	if err != nil {
		return false, fmt.Errorf("consume verification code: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume verification code: %w", err)
	}
	return affected > 0, nil
}

// Messages. Inserts only: the table has no UPDATE or DELETE path here.

func (s *PostgresStore) InsertMessage(ctx context.Context, message Message) (Message, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, author_id, body, reply_to_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, message.ID, message.AuthorID, message.Body, message.ReplyToID).Scan(&message.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return message, nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, messageID string) (Message, error) {
	var message Message
	err := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.author_id, `+authorLabel+`, m.body, m.reply_to_id, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.id = $1
	`, messageID).Scan(&message.ID, &message.AuthorID, &message.AuthorLabel, &message.Body, &message.ReplyToID, &message.CreatedAt)
	if err != nil {
		return Message{}, err
	}
	return message, nil
}

// ListMessagesPage returns one page of the feed, newest first. Replies
// interleave with root messages in the same chronological ordering; ties
// on created_at break on id for a stable total order.
func (s *PostgresStore) ListMessagesPage(ctx context.Context, limit, offset int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.author_id, `+authorLabel+`, m.body, m.reply_to_id, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.author_id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListMessagesByAuthor returns one page of a single author's messages,
// newest first, served by idx_messages_author.
func (s *PostgresStore) ListMessagesByAuthor(ctx context.Context, authorID string, limit, offset int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.author_id, `+authorLabel+`, m.body, m.reply_to_id, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.author_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2 OFFSET $3
	`, authorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages by author: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *PostgresStore) CountMessages(ctx context.Context) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) CountMessagesByAuthor(ctx context.Context, authorID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE author_id = $1`, authorID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count messages by author: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) MessageExists(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM messages WHERE id = $1)`, messageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check message: %w", err)
	}
	return exists, nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	items := make([]Message, 0)
	for rows.Next() {
		var item Message
		if err := rows.Scan(&item.ID, &item.AuthorID, &item.AuthorLabel, &item.Body, &item.ReplyToID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return items, nil
}

// Access token revocation

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti = $1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// IsNotFound reports whether err is the store's row-missing sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
