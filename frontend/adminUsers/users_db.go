package adminusers

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/frontend/login"
	"cellarbook/infrastructure/argon"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/rbac"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

func LoadUsers(ctx context.Context, db *sqlite.DB) ([]UserView, error) {
	users := make([]UserView, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw("SELECT id, username, role FROM users ORDER BY LOWER(username) ASC").Scan(ctx, &users)
	})
	return users, err
}

// CreateUser stores a new user with an argon2id hash of password.
func CreateUser(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, username, password, role string) (models.User, error) {
	username = strings.TrimSpace(username)
	role = strings.ToLower(strings.TrimSpace(role))
	switch {
	case username == "":
		return models.User{}, ErrUsernameRequired
	case password == "":
		return models.User{}, ErrPasswordRequired
	case !rbac.ValidRole(role):
		return models.User{}, ErrInvalidRole
	}
	if err := login.ValidatePasswordPolicy(password); err != nil {
		return models.User{}, err
	}
	hash, err := argon.CreateHash(password, argon.DefaultParams)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{Username: username, PasswordHash: hash, Role: role}
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.User)(nil)).Where("LOWER(username) = ?", strings.ToLower(username)).Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrUsernameExists
		}
		now := time.Now().UTC()
		user.CreatedAt, user.UpdatedAt = now, now
		if _, err := tx.NewInsert().Model(&user).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.WriteID(ctx, tx, actorID, "user.create", audit.EntityUser, user.ID, nil, UserView{ID: user.ID, Username: user.Username, Role: user.Role})
	})
	return user, err
}

// UpdateUserRole changes a user's role. The last admin cannot be demoted.
func UpdateUserRole(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, userID int64, role string) (models.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !rbac.ValidRole(role) {
		return models.User{}, ErrInvalidRole
	}
	return sqlite.Write(ctx, db, func(ctx context.Context, tx bun.Tx) (models.User, error) {
		var user models.User
		if err := tx.NewSelect().Model(&user).Where("id = ?", userID).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return user, ErrUserNotFound
			}
			return user, err
		}
		before := UserView{ID: user.ID, Username: user.Username, Role: user.Role}
		if user.Role == rbac.RoleAdmin && role != rbac.RoleAdmin {
			admins, err := tx.NewSelect().Model((*models.User)(nil)).Where("role = ?", rbac.RoleAdmin).Count(ctx)
			if err != nil {
				return user, err
			}
			if admins <= 1 {
				return user, ErrLastAdmin
			}
		}
		user.Role = role
		user.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&user).Column("role", "updated_at").WherePK().Exec(ctx); err != nil {
			return user, err
		}
		// Existing sessions carry the old role.
		if _, err := tx.NewDelete().Model((*models.Session)(nil)).Where("user_id = ?", userID).Exec(ctx); err != nil {
			return user, err
		}
		after := UserView{ID: user.ID, Username: user.Username, Role: user.Role}
		return user, auditSvc.WriteID(ctx, tx, actorID, "user.role", audit.EntityUser, user.ID, before, after)
	})
}
