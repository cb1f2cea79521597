package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloglist/internal/common"
	"bloglist/internal/userservice"
)

func intptr(n int) *int {
	return &n
}

func strptr(s string) *string {
	return &s
}

type stubProducer struct {
	mu        sync.Mutex
	published [][]byte
}

func (p *stubProducer) Publish(ctx context.Context, msg []byte, key common.BindingKey, exchange common.Exchange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)
	return nil
}

func setupTestEnvironment(t *testing.T) (*BlogService, *userservice.UserService, *sql.DB, *stubProducer, func() error) {
	db := common.TestDB("file://../../migrations", t)
	users := userservice.NewUserService(db, []byte("test-secret"))
	mb := &stubProducer{}
	c := common.NewCache(5*time.Minute, 10*time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := NewBlogService(db, users, mb, c, logger)

	cleanup := func() error {
		_, err := db.Exec("DELETE FROM blogs")
		if err != nil {
			return err
		}

		_, err = db.Exec("DELETE FROM users")
		if err != nil {
			return err
		}

		c.Flush()

		return nil
	}

	return s, users, db, mb, cleanup
}

func registerTestUser(ctx context.Context, t *testing.T, users *userservice.UserService, username string) *userservice.User {
	t.Helper()

	user, err := users.RegisterUser(ctx, username, "Test User", "salainen")
	require.NoError(t, err)

	return user
}

func TestCreateBlog(t *testing.T) {
	s, users, db, _, cleanup := setupTestEnvironment(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner := registerTestUser(ctx, t, users, "mluukkai")

	testCases := []struct {
		name        string
		payload     CreateBlogRequest
		expectedErr error
	}{
		{
			name: "valid blog",
			payload: CreateBlogRequest{
				Title:  "React patterns",
				Author: "Michael Chan",
				URL:    "https://reactpatterns.com/",
				Likes:  intptr(7),
			},
		},
		{
			name: "likes default to zero",
			payload: CreateBlogRequest{
				Title:  "First class tests",
				Author: "Robert C. Martin",
				URL:    "http://example.com/tests",
			},
		},
		{
			name: "missing title",
			payload: CreateBlogRequest{
				Author: "Michael Chan",
				URL:    "https://reactpatterns.com/",
			},
			expectedErr: fmt.Errorf("validation error: map[title:must be provided]"),
		},
		{
			name: "missing url",
			payload: CreateBlogRequest{
				Title:  "React patterns",
				Author: "Michael Chan",
			},
			expectedErr: fmt.Errorf("validation error: map[url:must be provided]"),
		},
		{
			name: "negative likes",
			payload: CreateBlogRequest{
				Title: "React patterns",
				URL:   "https://reactpatterns.com/",
				Likes: intptr(-1),
			},
			expectedErr: fmt.Errorf("validation error: map[likes:must not be negative]"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blog, err := s.CreateBlog(ctx, &tc.payload, owner.ID)

			var count int
			countErr := db.QueryRow("SELECT COUNT(*) FROM blogs").Scan(&count)
			assert.NoError(t, countErr)

			if tc.expectedErr == nil {
				require.NoError(t, err)
				assert.NotZero(t, blog.ID)
				assert.Equal(t, owner.ID, blog.UserID)
				if tc.payload.Likes != nil {
					assert.Equal(t, *tc.payload.Likes, blog.Likes)
				} else {
					assert.Equal(t, 0, blog.Likes)
				}
				assert.Equal(t, 1, count)

				// the owner's reference list must carry the new id
				got, err := users.GetUserByID(ctx, owner.ID)
				require.NoError(t, err)
				assert.Contains(t, got.BlogIDs, int64(blog.ID))
			} else {
				assert.Equal(t, tc.expectedErr.Error(), err.Error())
				assert.Equal(t, 0, count)
			}

			t.Cleanup(func() {
				_, err := db.Exec("DELETE FROM blogs")
				assert.NoError(t, err)
				_, err = db.Exec("UPDATE users SET blog_ids = '{}'")
				assert.NoError(t, err)
			})
		})
	}

	t.Cleanup(func() {
		err := cleanup()
		assert.NoError(t, err)
	})
}

func TestCreateBlogUnknownOwner(t *testing.T) {
	s, _, db, _, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() {
		err := cleanup()
		assert.NoError(t, err)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload := CreateBlogRequest{Title: "React patterns", URL: "https://reactpatterns.com/"}

	_, err := s.CreateBlog(ctx, &payload, 999999)
	assert.ErrorIs(t, err, ErrUserForeignKey)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM blogs").Scan(&count)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetBlogByID(t *testing.T) {
	s, users, _, _, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() {
		err := cleanup()
		assert.NoError(t, err)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner := registerTestUser(ctx, t, users, "mluukkai")
	created, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "React patterns", Author: "Michael Chan", URL: "https://reactpatterns.com/"}, owner.ID)
	require.NoError(t, err)

	t.Run("existing blog carries the owner projection", func(t *testing.T) {
		blog, err := s.GetBlogByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Title, blog.Title)
		require.NotNil(t, blog.Owner)
		assert.Equal(t, "mluukkai", blog.Owner.Username)
	})

	t.Run("second read is served from cache", func(t *testing.T) {
		first, err := s.GetBlogByID(ctx, created.ID)
		require.NoError(t, err)

		second, err := s.GetBlogByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("unknown blog", func(t *testing.T) {
		_, err := s.GetBlogByID(ctx, created.ID+1000)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := s.GetBlogByID(ctx, 0)
		assert.ErrorAs(t, err, &common.ValidationError{})
	})
}

func TestGetBlogs(t *testing.T) {
	s, users, _, _, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() {
		err := cleanup()
		assert.NoError(t, err)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("empty store yields an empty list", func(t *testing.T) {
		blogs, err := s.GetBlogs(ctx)
		require.NoError(t, err)
		assert.Empty(t, blogs)
	})

	owner := registerTestUser(ctx, t, users, "mluukkai")
	_, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "React patterns", Author: "Michael Chan", URL: "https://reactpatterns.com/", Likes: intptr(7)}, owner.ID)
	require.NoError(t, err)
	_, err = s.CreateBlog(ctx, &CreateBlogRequest{Title: "Type wars", Author: "Robert C. Martin", URL: "http://example.com/typewars", Likes: intptr(2)}, owner.ID)
	require.NoError(t, err)

	t.Run("repeated reads are identical", func(t *testing.T) {
		first, err := s.GetBlogs(ctx)
		require.NoError(t, err)
		require.Len(t, first, 2)

		second, err := s.GetBlogs(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestUpdateBlog(t *testing.T) {
	s, users, _, _, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() {
		err := cleanup()
		assert.NoError(t, err)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner := registerTestUser(ctx, t, users, "mluukkai")
	created, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "React patterns", Author: "Michael Chan", URL: "https://reactpatterns.com/", Likes: intptr(7)}, owner.ID)
	require.NoError(t, err)

	t.Run("partial patch leaves other fields alone", func(t *testing.T) {
		updated, err := s.UpdateBlog(ctx, created.ID, &UpdateBlogRequest{Likes: intptr(8)})
		require.NoError(t, err)
		assert.Equal(t, 8, updated.Likes)
		assert.Equal(t, "React patterns", updated.Title)
		assert.Equal(t, created.Version+1, updated.Version)
	})

	t.Run("title patch", func(t *testing.T) {
		updated, err := s.UpdateBlog(ctx, created.ID, &UpdateBlogRequest{Title: strptr("React patterns, revised")})
		require.NoError(t, err)
		assert.Equal(t, "React patterns, revised", updated.Title)
		assert.Equal(t, 8, updated.Likes)
	})

	t.Run("empty title is rejected", func(t *testing.T) {
		_, err := s.UpdateBlog(ctx, created.ID, &UpdateBlogRequest{Title: strptr("")})
		assert.ErrorAs(t, err, &common.ValidationError{})
	})

	t.Run("negative likes are rejected", func(t *testing.T) {
		_, err := s.UpdateBlog(ctx, created.ID, &UpdateBlogRequest{Likes: intptr(-5)})
		assert.ErrorAs(t, err, &common.ValidationError{})
	})

	t.Run("unknown blog", func(t *testing.T) {
		_, err := s.UpdateBlog(ctx, created.ID+1000, &UpdateBlogRequest{Likes: intptr(1)})
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestDeleteBlog(t *testing.T) {
	s, users, db, _, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() {
		err := cleanup()
		assert.NoError(t, err)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner := registerTestUser(ctx, t, users, "mluukkai")
	other := registerTestUser(ctx, t, users, "hellas")

	ownerUser, err := users.GetUserByID(ctx, owner.ID)
	require.NoError(t, err)
	otherUser, err := users.GetUserByID(ctx, other.ID)
	require.NoError(t, err)

	created, err := s.CreateBlog(ctx, &CreateBlogRequest{Title: "React patterns", Author: "Michael Chan", URL: "https://reactpatterns.com/"}, owner.ID)
	require.NoError(t, err)

	t.Run("non owner is rejected", func(t *testing.T) {
		err := s.DeleteBlog(ctx, created.ID, otherUser)
		assert.ErrorIs(t, err, ErrNotOwner)

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM blogs WHERE id = $1", created.ID).Scan(&count)
		assert.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("anonymous identity is rejected", func(t *testing.T) {
		err := s.DeleteBlog(ctx, created.ID, &userservice.AnonymousUser)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("nil identity is rejected", func(t *testing.T) {
		err := s.DeleteBlog(ctx, created.ID, nil)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("unknown blog", func(t *testing.T) {
		err := s.DeleteBlog(ctx, created.ID+1000, ownerUser)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("owner deletes and the reference is retracted", func(t *testing.T) {
		err := s.DeleteBlog(ctx, created.ID, ownerUser)
		require.NoError(t, err)

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM blogs WHERE id = $1", created.ID).Scan(&count)
		assert.NoError(t, err)
		assert.Equal(t, 0, count)

		got, err := users.GetUserByID(ctx, owner.ID)
		require.NoError(t, err)
		assert.NotContains(t, got.BlogIDs, int64(created.ID))
	})

	t.Run("deleting twice yields not found", func(t *testing.T) {
		err := s.DeleteBlog(ctx, created.ID, ownerUser)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestIntegrityFailurePublishesEvent(t *testing.T) {
	mb := &stubProducer{}
	s := &BlogService{
		mb:     mb,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	cause := errors.New("user not found")
	err := s.integrityFailure(context.Background(), "blog create", 1, 2, cause)

	var ie common.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "blog create", ie.Op)
	assert.ErrorIs(t, ie.Err, cause)

	require.Len(t, mb.published, 1)
	assert.JSONEq(t, `{"op": "blog create", "user_id": 1, "blog_id": 2, "cause": "user not found"}`, string(mb.published[0]))
}
