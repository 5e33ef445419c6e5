package preview

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"sitebuilder-backend/internal/project"
)

// CachedRenderer memoises documents by the content fingerprint of the file map.
type CachedRenderer struct {
	inner Renderer
	cache *lru.Cache[string, string]
}

func NewCachedRenderer(inner Renderer, size int) (*CachedRenderer, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedRenderer{inner: inner, cache: cache}, nil
}

func (c *CachedRenderer) Render(files *project.Files) string {
	key := Fingerprint(files)
	if doc, ok := c.cache.Get(key); ok {
		return doc
	}
	doc := c.inner.Render(files)
	c.cache.Add(key, doc)
	return doc
}

func (c *CachedRenderer) Len() int {
	return c.cache.Len()
}

// Fingerprint hashes paths, types and contents in iteration order, since
// order affects the rendered document.
func Fingerprint(files *project.Files) string {
	h := sha256.New()
	files.Each(func(f project.ProjectFile) {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write([]byte(f.Type))
		h.Write([]byte{0})
		h.Write([]byte(f.Content))
		h.Write([]byte{0})
	})
	return hex.EncodeToString(h.Sum(nil))
}
