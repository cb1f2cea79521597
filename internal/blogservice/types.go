package blogservice

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"bloglist/internal/common"
)

type Blog struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  int    `json:"likes"`
	// UserID is the weak owner reference; it is fixed at creation.
	UserID    int       `json:"user_id"`
	Owner     *Owner    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Version   int       `json:"version"`
}

// Owner is the display projection of the owning user joined onto reads.
type Owner struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// BlogRefStore is the narrow contract the reference-integrity coordinator
// needs from the user side of the relation.
type BlogRefStore interface {
	AppendBlogRef(ctx context.Context, userID, blogID int) error
	RemoveBlogRef(ctx context.Context, userID, blogID int) error
}

type BlogModel struct {
	db *sql.DB
}

type BlogService struct {
	m      *BlogModel
	refs   BlogRefStore
	mb     common.MessageProducer
	c      *common.Cache
	logger *slog.Logger
}
