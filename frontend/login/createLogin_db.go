package login

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/infrastructure/argon"
	"cellarbook/infrastructure/rbac"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

// ErrInvalidCredentials covers both unknown users and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid username or password")

func findUserByUsername(ctx context.Context, tx bun.IDB, username string) (models.User, error) {
	var user models.User
	err := tx.NewSelect().
		Model(&user).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		Limit(1).
		Scan(ctx)
	return user, err
}

// FindUser looks a user up by case-insensitive username.
func FindUser(ctx context.Context, db *sqlite.DB, username string) (models.User, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (models.User, error) {
		return findUserByUsername(ctx, tx, username)
	})
}

func authenticateUser(ctx context.Context, db *sqlite.DB, username, password string) (models.User, error) {
	user, err := sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (models.User, error) {
		return findUserByUsername(ctx, tx, username)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}

	ok, err := argon.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}

	if argon.NeedsRehash(user.PasswordHash, argon.DefaultParams) {
		if hash, err := argon.CreateHash(password, argon.DefaultParams); err == nil {
			_ = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
				_, err := tx.NewUpdate().Model((*models.User)(nil)).
					Set("password_hash = ?", hash).
					Set("updated_at = ?", time.Now().UTC()).
					Where("id = ?", user.ID).
					Exec(ctx)
				return err
			})
		}
	}
	return user, nil
}

func persistSession(ctx context.Context, db *sqlite.DB, session models.Session) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&models.Session{
			ID:        session.ID,
			UserID:    session.UserID,
			ExpiresAt: session.ExpiresAt,
		}).Exec(ctx)
		return err
	})
}

func DeleteSessionByToken(ctx context.Context, db *sqlite.DB, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model((*models.Session)(nil)).Where("id = ?", token).Exec(ctx)
		return err
	})
}

// DeleteExpiredSessions removes rows whose expiry is before now.
func DeleteExpiredSessions(ctx context.Context, db *sqlite.DB, now time.Time) (int64, error) {
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (int64, error) {
		res, err := tx.NewDelete().Model((*models.Session)(nil)).Where("expires_at < ?", now.UTC()).Exec(ctx)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// LoadSessionByToken returns the live session for token. Expired sessions
// are deleted and reported as sql.ErrNoRows.
func LoadSessionByToken(ctx context.Context, db *sqlite.DB, token string) (models.Session, error) {
	session, err := sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (models.Session, error) {
		var s models.Session
		err := tx.NewSelect().
			Model(&s).
			Relation("User").
			Where("s.id = ?", token).
			Limit(1).
			Scan(ctx)
		return s, err
	})
	if err != nil {
		return models.Session{}, err
	}
	session.UserRoles = []string{session.User.Role}
	if session.Expired() {
		_ = DeleteSessionByToken(ctx, db, token)
		return models.Session{}, sql.ErrNoRows
	}
	return session, nil
}

// UpsertUserPasswordHash creates username or resets its password and role.
func UpsertUserPasswordHash(ctx context.Context, db *sqlite.DB, username, role, rawPassword string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("username is required")
	}
	if !rbac.ValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}
	if err := ValidatePasswordPolicy(rawPassword); err != nil {
		return err
	}
	hash, err := argon.CreateHash(rawPassword, argon.DefaultParams)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&models.User{Username: username, PasswordHash: hash, Role: role, CreatedAt: now, UpdatedAt: now}).
			On("CONFLICT (username) DO UPDATE").
			Set("password_hash = EXCLUDED.password_hash").
			Set("role = EXCLUDED.role").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
}
