package userservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrNotFound          = errors.New("user not found")
)

func newUserModel(db *sql.DB) *DBModel {
	return &DBModel{db: db}
}

// uniqueViolation reports whether err is a postgres unique-constraint error
// on the named constraint.
func uniqueViolation(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == name
	}

	return false
}

func (m *DBModel) insertUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (username, name, password)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version`

	args := []any{
		u.Username,
		u.Name,
		u.Password.hash,
	}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.CreatedAt, &u.Version)
	if err != nil {
		switch {
		case uniqueViolation(err, "users_username_key"):
			return ErrDuplicateUsername
		default:
			return err
		}
	}

	u.BlogIDs = []int64{}

	return nil
}

func (m *DBModel) getUserByID(ctx context.Context, id int) (*User, error) {
	query := `
		SELECT id, username, name, blog_ids, created_at, version
		FROM users
		WHERE id = $1`

	var u User

	err := m.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.Name, pq.Array(&u.BlogIDs), &u.CreatedAt, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

func (m *DBModel) getUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, name, password, blog_ids, created_at, version
		FROM users
		WHERE username = $1`

	var u User

	err := m.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.Name, &u.Password.hash, pq.Array(&u.BlogIDs), &u.CreatedAt, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

// getUsers returns every user joined with the title/author projection of the
// blogs it owns. The join is read-only display decoration.
func (m *DBModel) getUsers(ctx context.Context) ([]UserProfile, error) {
	query := `
		SELECT u.id, u.username, u.name, b.id, b.title, b.author
		FROM users u
		LEFT JOIN blogs b ON b.user_id = u.id
		ORDER BY u.id, b.id`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		users []UserProfile
		cur   *UserProfile
	)

	for rows.Next() {
		var (
			id       int
			username string
			name     string
			blogID   sql.NullInt64
			title    sql.NullString
			author   sql.NullString
		)

		err := rows.Scan(&id, &username, &name, &blogID, &title, &author)
		if err != nil {
			return nil, err
		}

		if cur == nil || cur.ID != id {
			users = append(users, UserProfile{
				ID:       id,
				Username: username,
				Name:     name,
				Blogs:    []BlogSummary{},
			})
			cur = &users[len(users)-1]
		}

		if blogID.Valid {
			cur.Blogs = append(cur.Blogs, BlogSummary{
				ID:     int(blogID.Int64),
				Title:  title.String,
				Author: author.String,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

// appendBlogRef adds blogID to the owner's mirror list with add-to-set
// semantics: the single UPDATE is the atomic strengthening that closes the
// concurrent append race.
func (m *DBModel) appendBlogRef(ctx context.Context, userID, blogID int) error {
	query := `
		UPDATE users
		SET blog_ids = CASE WHEN $2 = ANY(blog_ids) THEN blog_ids ELSE array_append(blog_ids, $2) END,
		    version = version + 1
		WHERE id = $1`

	res, err := m.db.ExecContext(ctx, query, userID, blogID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (m *DBModel) removeBlogRef(ctx context.Context, userID, blogID int) error {
	query := `
		UPDATE users
		SET blog_ids = array_remove(blog_ids, $2),
		    version = version + 1
		WHERE id = $1`

	res, err := m.db.ExecContext(ctx, query, userID, blogID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
