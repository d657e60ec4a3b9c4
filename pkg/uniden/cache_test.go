package uniden

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptional(t *testing.T) {
	var o optional[int]
	_, ok := o.Get()
	assert.False(t, ok)

	o.Set(0)
	v, ok := o.Get()
	assert.True(t, ok, "zero is a valid cached value")
	assert.Equal(t, 0, v)

	o.Clear()
	_, ok = o.Get()
	assert.False(t, ok)
}

func TestChannelCacheEviction(t *testing.T) {
	c := newChannelCache(2)
	c.Put(1, []string{"a"})
	c.Put(2, []string{"b"})
	c.Put(1, []string{"a2"})
	assert.Equal(t, 2, c.Len())

	c.Put(3, []string{"c"})
	_, ok := c.Get(1)
	assert.False(t, ok)
	got, ok := c.Get(3)
	assert.True(t, ok)
	assert.Equal(t, []string{"c"}, got)
}

func TestChannelCacheInvalidateAndReset(t *testing.T) {
	c := newChannelCache(0)
	assert.Equal(t, DefaultChannelCacheSize, c.limit)

	c.Put(5, []string{"x"})
	c.Put(6, []string{"y"})
	c.Invalidate(5)
	c.Invalidate(99)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []int{6}, c.order)

	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.order)
}

func TestChannelCacheCopiesFields(t *testing.T) {
	c := newChannelCache(4)
	fields := []string{"1", "Fire"}
	c.Put(1, fields)
	fields[1] = "changed"

	got, _ := c.Get(1)
	assert.Equal(t, "Fire", got[1])
	got[1] = "again"
	got, _ = c.Get(1)
	assert.Equal(t, "Fire", got[1])
}
