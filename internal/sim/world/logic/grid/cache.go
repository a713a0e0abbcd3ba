package grid

// Cached gates a derived value behind a validity flag. Get rebuilds the
// value first whenever it has been invalidated.
type Cached[T any] struct {
	val     T
	valid   bool
	rebuild func(*T)
	builds  int
}

func NewCached[T any](val T, rebuild func(*T)) *Cached[T] {
	return &Cached[T]{val: val, rebuild: rebuild}
}

func (c *Cached[T]) Get() T {
	if !c.valid {
		c.rebuild(&c.val)
		c.valid = true
		c.builds++
	}
	return c.val
}

func (c *Cached[T]) Invalidate() { c.valid = false }
func (c *Cached[T]) Valid() bool { return c.valid }

// Builds counts rebuilds since construction.
func (c *Cached[T]) Builds() int { return c.builds }
