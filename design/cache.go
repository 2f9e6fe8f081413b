package design

import "gonum.org/v1/gonum/mat"

// Cache memoizes built model matrices under source keys ("obs",
// "class", "fit", ...) so repeated fit and predict calls over the same
// genotype set skip the rebuild. A Cache belongs to a single model and
// is not safe for concurrent use.
type Cache struct {
	matrices map[string]*mat.Dense
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{matrices: make(map[string]*mat.Dense)}
}

// Get returns the cached matrix for the key, if present.
func (c *Cache) Get(key string) (*mat.Dense, bool) {
	x, ok := c.matrices[key]

	return x, ok
}

// Put stores a matrix under the key, replacing any previous entry.
func (c *Cache) Put(key string, x *mat.Dense) {
	c.matrices[key] = x
}

// Len returns the number of cached matrices.
func (c *Cache) Len() int { return len(c.matrices) }

// Reset drops all cached matrices.
func (c *Cache) Reset() {
	clear(c.matrices)
}
