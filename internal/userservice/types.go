package userservice

import (
	"database/sql"
	"time"
)

const (
	AccessTokenTime time.Duration = 24 * time.Hour

	bcryptCost = 12
)

var (
	AnonymousUser = User{}
)

type UserService struct {
	m      *DBModel
	secret []byte
}

type DBModel struct {
	db *sql.DB
}

type User struct {
	ID       int      `json:"id"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Password Password `json:"-"`
	// BlogIDs mirrors blogs.user_id; only AppendBlogRef and RemoveBlogRef
	// may change it.
	BlogIDs   []int64   `json:"blogs"`
	CreatedAt time.Time `json:"created_at"`
	Version   int       `json:"version"`
}

type Password struct {
	Plain string `json:"-"`
	hash  []byte `json:"-"`
}

// BlogSummary is the owned-blog projection returned by the user listing.
type BlogSummary struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// UserProfile decorates a user with its owned blogs for display. No secret
// fields are carried.
type UserProfile struct {
	ID       int           `json:"id"`
	Username string        `json:"username"`
	Name     string        `json:"name"`
	Blogs    []BlogSummary `json:"blogs"`
}

// LoginToken is the login response payload.
type LoginToken struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}
