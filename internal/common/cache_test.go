package common

import "testing"

func setupTestCache(t *testing.T) (*Cache, func()) {
	t.Helper()

	cache := NewCache(0, 0)

	cleanup := func() {
		cache.Flush()
	}

	return cache, cleanup
}

func TestCache_Set(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	cache.Set("key", "value")

	if _, ok := cache.Get("key"); !ok {
		t.Error("expected key to be set")
	}
}

func TestCache_Delete(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	cache.Set(CacheKeyBlog(1), "value")
	cache.Delete(CacheKeyBlog(1))

	if _, ok := cache.Get(CacheKeyBlog(1)); ok {
		t.Error("expected key to be deleted")
	}
}

func TestCache_Flush(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	cache.Set("key", "value")
	cache.Flush()

	if _, ok := cache.Get("key"); ok {
		t.Error("expected cache to be flushed")
	}
}

func TestCacheKeyBlog(t *testing.T) {
	if got := CacheKeyBlog(42); got != "blog:42" {
		t.Errorf("unexpected cache key: %s", got)
	}
}
