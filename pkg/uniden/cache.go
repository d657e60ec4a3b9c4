package uniden

// optional holds a cached property value. The zero value is unset;
// the first read of an unset property goes to the scanner.
type optional[T any] struct {
	value T
	set   bool
}

func (o *optional[T]) Get() (T, bool) { return o.value, o.set }

func (o *optional[T]) Set(v T) {
	o.value = v
	o.set = true
}

func (o *optional[T]) Clear() {
	var zero T
	o.value = zero
	o.set = false
}

// channelCache keeps raw CIN fields per channel id.
// It holds at most limit entries and evicts the oldest inserted id first.
type channelCache struct {
	limit   int
	entries map[int][]string
	order   []int
}

func newChannelCache(limit int) *channelCache {
	if limit <= 0 {
		limit = DefaultChannelCacheSize
	}
	return &channelCache{
		limit:   limit,
		entries: make(map[int][]string),
	}
}

func (c *channelCache) Get(id int) ([]string, bool) {
	fields, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), fields...), true
}

func (c *channelCache) Put(id int, fields []string) {
	if _, exists := c.entries[id]; !exists {
		if len(c.order) >= c.limit {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, id)
	}
	c.entries[id] = append([]string(nil), fields...)
}

func (c *channelCache) Invalidate(id int) {
	if _, ok := c.entries[id]; !ok {
		return
	}
	delete(c.entries, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *channelCache) Reset() {
	c.entries = make(map[int][]string)
	c.order = nil
}

func (c *channelCache) Len() int { return len(c.entries) }

// propertyCache groups everything the session remembers between calls.
type propertyCache struct {
	volume   optional[int]
	squelch  optional[int]
	channels *channelCache
}

func newPropertyCache(channelLimit int) *propertyCache {
	return &propertyCache{channels: newChannelCache(channelLimit)}
}

// level returns the slot for a level mnemonic, nil for anything else.
func (p *propertyCache) level(m Mnemonic) *optional[int] {
	switch m {
	case Volume:
		return &p.volume
	case Squelch:
		return &p.squelch
	}
	return nil
}

func (p *propertyCache) Reset() {
	p.volume.Clear()
	p.squelch.Clear()
	p.channels.Reset()
}
