package blogservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"bloglist/internal/common"
	"bloglist/internal/userservice"
)

var (
	ErrNotOwner = errors.New("blog does not belong to the user")
)

func NewBlogService(db *sql.DB, refs BlogRefStore, mb common.MessageProducer, c *common.Cache, logger *slog.Logger) *BlogService {
	return &BlogService{
		m:      newBlogModel(db),
		refs:   refs,
		mb:     mb,
		c:      c,
		logger: logger,
	}
}

type CreateBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  *int   `json:"likes"`
}

type UpdateBlogRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	URL    *string `json:"url"`
	Likes  *int    `json:"likes"`
}

// CreateBlog persists a new blog owned by ownerID and appends its id to the
// owner's reference list. Likes default to zero when absent.
func (s *BlogService) CreateBlog(ctx context.Context, req *CreateBlogRequest, ownerID int) (*Blog, error) {
	v := common.NewValidator()
	validateCreateBlog(v, req)
	validateInt(v, ownerID, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	blog := Blog{
		Title:  req.Title,
		Author: req.Author,
		URL:    req.URL,
		UserID: ownerID,
	}
	if req.Likes != nil {
		blog.Likes = *req.Likes
	}

	err := s.m.insert(ctx, &blog)
	if err != nil {
		return nil, err
	}

	// The blog row exists from here on: a failed append leaves the owner's
	// list out of step and must surface as a server error, not a silent
	// partial success.
	err = s.refs.AppendBlogRef(ctx, ownerID, blog.ID)
	if err != nil {
		return nil, s.integrityFailure(ctx, "blog create", ownerID, blog.ID, err)
	}

	s.invalidateCache(blog.ID)

	return &blog, nil
}

// GetBlogByID returns a single blog with its owner projection.
func (s *BlogService) GetBlogByID(ctx context.Context, id int) (*Blog, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if cached, ok := s.c.Get(common.CacheKeyBlog(id)); ok {
		if blog, ok := cached.(*Blog); ok {
			return blog, nil
		}
	}

	blog, err := s.m.getBlogByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.c.Set(common.CacheKeyBlog(id), blog)

	return blog, nil
}

// GetBlogs returns every blog with its owner projection.
func (s *BlogService) GetBlogs(ctx context.Context) ([]Blog, error) {
	if cached, ok := s.c.Get(common.CacheKeyAllBlogs); ok {
		if blogs, ok := cached.([]Blog); ok {
			return blogs, nil
		}
	}

	blogs, err := s.m.getBlogs(ctx)
	if err != nil {
		return nil, err
	}

	s.c.Set(common.CacheKeyAllBlogs, blogs)

	return blogs, nil
}

// UpdateBlog merges the patch onto the stored record. Ownership is not
// checked here: any caller may adjust likes or content, and only delete is
// owner-gated.
func (s *BlogService) UpdateBlog(ctx context.Context, id int, patch *UpdateBlogRequest) (*Blog, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	validateUpdateBlog(v, patch)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	blog, err := s.m.updateBlog(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.invalidateCache(id)

	return blog, nil
}

// DeleteBlog removes a blog after the ownership check. The reference is
// retracted before the row is destroyed, so a crash between the two steps
// leaves a prunable dangling id rather than an orphan blog.
func (s *BlogService) DeleteBlog(ctx context.Context, id int, identity *userservice.User) error {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	blog, err := s.m.getBlogByID(ctx, id)
	if err != nil {
		return err
	}

	if err := authorizeDelete(identity, blog); err != nil {
		return err
	}

	err = s.refs.RemoveBlogRef(ctx, blog.UserID, id)
	if err != nil {
		return err
	}

	err = s.m.deleteBlog(ctx, id)
	if err != nil {
		return s.integrityFailure(ctx, "blog delete", blog.UserID, id, err)
	}

	s.invalidateCache(id)

	return nil
}

// authorizeDelete grants deletion only to the blog's owner. A mismatch is an
// authorization failure, distinct from not-found.
func authorizeDelete(identity *userservice.User, blog *Blog) error {
	if identity == nil || blog.UserID != identity.ID {
		return ErrNotOwner
	}

	return nil
}

type integrityEvent struct {
	Op     string `json:"op"`
	UserID int    `json:"user_id"`
	BlogID int    `json:"blog_id"`
	Cause  string `json:"cause"`
}

// integrityFailure wraps a partially completed coordinator sequence and
// publishes the violation for operator alerting.
func (s *BlogService) integrityFailure(ctx context.Context, op string, userID, blogID int, cause error) error {
	ie := common.IntegrityError{Op: op, Err: cause}

	body, err := json.Marshal(integrityEvent{
		Op:     op,
		UserID: userID,
		BlogID: blogID,
		Cause:  cause.Error(),
	})
	if err == nil {
		err = s.mb.Publish(ctx, body, common.IntegrityViolationKey, common.IntegrityExchange)
	}
	if err != nil {
		s.logger.Error("could not publish integrity violation", slog.String("op", op), slog.String("error", err.Error()))
	}

	return ie
}

func (s *BlogService) invalidateCache(id int) {
	s.c.Delete(common.CacheKeyBlog(id))
	s.c.Delete(common.CacheKeyAllBlogs)
}
