package adminusers

import "errors"

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrInvalidRole      = errors.New("role must be admin, cellar or viewer")
	ErrUsernameExists   = errors.New("username already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrLastAdmin        = errors.New("cannot demote the last admin")
)

type UserView struct {
	ID       int64  `bun:"id" json:"id"`
	Username string `bun:"username" json:"username"`
	Role     string `bun:"role" json:"role"`
}

type PageData struct {
	Users        []UserView
	Roles        []string
	Status       string
	ErrorMessage string
}
