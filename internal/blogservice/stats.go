package blogservice

// Pure aggregation over a materialized blog sequence. None of these touch
// the store or mutate their input.

type AuthorBlogs struct {
	Author string `json:"author"`
	Blogs  int    `json:"blogs"`
}

type AuthorLikes struct {
	Author string `json:"author"`
	Likes  int    `json:"likes"`
}

// TotalLikes sums likes across the sequence; zero for an empty input.
func TotalLikes(blogs []Blog) int {
	total := 0
	for _, blog := range blogs {
		total += blog.Likes
	}

	return total
}

// FavoriteBlog returns the blog with the most likes, or nil for an empty
// input. Ties go to the record encountered first in sequence order.
func FavoriteBlog(blogs []Blog) *Blog {
	if len(blogs) == 0 {
		return nil
	}

	favorite := &blogs[0]
	for i := range blogs[1:] {
		if blogs[i+1].Likes > favorite.Likes {
			favorite = &blogs[i+1]
		}
	}

	return favorite
}

// MostBlogs returns the author owning the largest number of blogs, or nil
// for an empty input. Ties go to the author appearing first in the input.
func MostBlogs(blogs []Blog) *AuthorBlogs {
	if len(blogs) == 0 {
		return nil
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, blog := range blogs {
		if _, seen := counts[blog.Author]; !seen {
			order = append(order, blog.Author)
		}
		counts[blog.Author]++
	}

	top := AuthorBlogs{Author: order[0], Blogs: counts[order[0]]}
	for _, author := range order[1:] {
		if counts[author] > top.Blogs {
			top = AuthorBlogs{Author: author, Blogs: counts[author]}
		}
	}

	return &top
}

// MostLikes returns the author whose blogs gathered the most likes in total,
// or nil for an empty input. Ties resolve like MostBlogs.
func MostLikes(blogs []Blog) *AuthorLikes {
	if len(blogs) == 0 {
		return nil
	}

	likes := make(map[string]int)
	order := make([]string, 0)
	for _, blog := range blogs {
		if _, seen := likes[blog.Author]; !seen {
			order = append(order, blog.Author)
		}
		likes[blog.Author] += blog.Likes
	}

	top := AuthorLikes{Author: order[0], Likes: likes[order[0]]}
	for _, author := range order[1:] {
		if likes[author] > top.Likes {
			top = AuthorLikes{Author: author, Likes: likes[author]}
		}
	}

	return &top
}
