package userservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bloglist/internal/common"
)

var (
	ErrAuthenticationFailure = fmt.Errorf("unauthorized access")
)

func NewUserService(db *sql.DB, secret []byte) *UserService {
	return &UserService{
		m:      newUserModel(db),
		secret: secret,
	}
}

// RegisterUser creates a new user account. The password is hashed once and
// the returned user carries neither the plain password nor its hash.
func (s *UserService) RegisterUser(ctx context.Context, username, name, password string) (*User, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := User{
		Username: username,
		Name:     name,
	}

	err := u.Password.set(password)
	if err != nil {
		return nil, err
	}

	err = s.m.insertUser(ctx, &u)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// LoginUser checks the credentials and issues a signed access token.
func (s *UserService) LoginUser(ctx context.Context, username, password string) (*LoginToken, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.getUserByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrAuthenticationFailure
		default:
			return nil, err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAuthenticationFailure
	}

	token, err := s.NewAccessToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginToken{
		Token:    token,
		Username: user.Username,
		Name:     user.Name,
	}, nil
}

// GetUserByID resolves a claimed subject to a full user record.
func (s *UserService) GetUserByID(ctx context.Context, id int) (*User, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	return s.m.getUserByID(ctx, id)
}

// GetUsers returns every user with its owned-blog projection.
func (s *UserService) GetUsers(ctx context.Context) ([]UserProfile, error) {
	return s.m.getUsers(ctx)
}

// AppendBlogRef and RemoveBlogRef are the only mutators of a user's owned
// reference list. They exist for the reference-integrity coordinator; nothing
// else should call them.

func (s *UserService) AppendBlogRef(ctx context.Context, userID, blogID int) error {
	return s.m.appendBlogRef(ctx, userID, blogID)
}

func (s *UserService) RemoveBlogRef(ctx context.Context, userID, blogID int) error {
	return s.m.removeBlogRef(ctx, userID, blogID)
}

func (u *User) IsAnonymous() bool {
	return u == &AnonymousUser
}
