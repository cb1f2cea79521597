package blogservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUserForeignKey = errors.New("user_id does not exist")
)

func newBlogModel(db *sql.DB) *BlogModel {
	return &BlogModel{db: db}
}

// foreignKeyError reports whether err is a postgres foreign-key violation on
// the named constraint.
func foreignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503" && pqErr.Constraint == name
	}

	return false
}

func (m *BlogModel) insert(ctx context.Context, b *Blog) error {
	query := `
		INSERT INTO blogs (title, author, url, likes, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version`

	args := []any{b.Title, b.Author, b.URL, b.Likes, b.UserID}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.Version)
	if err != nil {
		switch {
		case foreignKeyError(err, "blogs_user_id_fkey"):
			return ErrUserForeignKey
		default:
			return err
		}
	}

	return nil
}

// getBlogByID joins the owning user so reads carry the username/name
// projection.
func (m *BlogModel) getBlogByID(ctx context.Context, id int) (*Blog, error) {
	query := `
		SELECT b.id, b.title, b.author, b.url, b.likes, b.user_id, b.created_at, b.version, u.username, u.name
		FROM blogs b
		JOIN users u ON b.user_id = u.id
		WHERE b.id = $1`

	var (
		blog  Blog
		owner Owner
	)

	err := m.db.QueryRowContext(ctx, query, id).Scan(&blog.ID, &blog.Title, &blog.Author, &blog.URL, &blog.Likes, &blog.UserID, &blog.CreatedAt, &blog.Version, &owner.Username, &owner.Name)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	blog.Owner = &owner

	return &blog, nil
}

func (m *BlogModel) getBlogs(ctx context.Context) ([]Blog, error) {
	query := `
		SELECT b.id, b.title, b.author, b.url, b.likes, b.user_id, b.created_at, b.version, u.username, u.name
		FROM blogs b
		JOIN users u ON b.user_id = u.id
		ORDER BY b.id`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []Blog{}
	for rows.Next() {
		var (
			blog  Blog
			owner Owner
		)

		err := rows.Scan(&blog.ID, &blog.Title, &blog.Author, &blog.URL, &blog.Likes, &blog.UserID, &blog.CreatedAt, &blog.Version, &owner.Username, &owner.Name)
		if err != nil {
			return nil, err
		}

		blog.Owner = &owner
		blogs = append(blogs, blog)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

// updateBlog merges the non-nil patch fields onto the stored record. The
// owner reference is never part of the patch.
func (m *BlogModel) updateBlog(ctx context.Context, id int, patch *UpdateBlogRequest) (*Blog, error) {
	query := `
		UPDATE blogs
		SET title = COALESCE($1, title),
		    author = COALESCE($2, author),
		    url = COALESCE($3, url),
		    likes = COALESCE($4, likes),
		    version = version + 1
		WHERE id = $5
		RETURNING id, title, author, url, likes, user_id, created_at, version`

	var blog Blog

	err := m.db.QueryRowContext(ctx, query, patch.Title, patch.Author, patch.URL, patch.Likes, id).Scan(&blog.ID, &blog.Title, &blog.Author, &blog.URL, &blog.Likes, &blog.UserID, &blog.CreatedAt, &blog.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &blog, nil
}

func (m *BlogModel) deleteBlog(ctx context.Context, id int) error {
	query := `
		DELETE FROM blogs
		WHERE id = $1`

	res, err := m.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRecordNotFound
	}

	return nil
}
