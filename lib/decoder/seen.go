package decoder

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

const seenAddressTTL = 60 * time.Second

// SeenCache remembers which ICAO addresses the decoder has recently heard
// reliable frames from (DF 11/17/18 with good CRC). Entries age out so the
// set tracks aircraft actually in range. go-cache is safe for concurrent
// readers while a Feed is writing.
type SeenCache struct {
	c *cache.Cache
}

func NewSeenCache() *SeenCache {
	return &SeenCache{
		c: cache.New(seenAddressTTL, 2*seenAddressTTL),
	}
}

func key(addr uint32) string {
	return strconv.FormatUint(uint64(addr), 16)
}

func (s *SeenCache) Add(addr uint32) {
	s.c.SetDefault(key(addr), struct{}{})
}

func (s *SeenCache) Seen(addr uint32) bool {
	_, ok := s.c.Get(key(addr))
	return ok
}

func (s *SeenCache) Count() int {
	return s.c.ItemCount()
}
