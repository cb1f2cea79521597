package blogservice

import (
	"bloglist/internal/common"
)

func validateCreateBlog(v *common.Validator, req *CreateBlogRequest) {
	v.Check(req.Title != "", "title", "must be provided")
	v.Check(req.URL != "", "url", "must be provided")
	if req.Likes != nil {
		v.Check(*req.Likes >= 0, "likes", "must not be negative")
	}
}

func validateUpdateBlog(v *common.Validator, patch *UpdateBlogRequest) {
	if patch.Title != nil {
		v.Check(*patch.Title != "", "title", "must not be empty")
	}
	if patch.URL != nil {
		v.Check(*patch.URL != "", "url", "must not be empty")
	}
	if patch.Likes != nil {
		v.Check(*patch.Likes >= 0, "likes", "must not be negative")
	}
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
