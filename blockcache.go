package shuffleio

import (
	"github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/shuffleio/internal/wire"
)

// blockCache keeps decoded blocks so a partition read twice (retried reduce
// tasks, speculative attempts) does not refetch them. Blocks are immutable
// once written, so entries never go stale; eviction is by decoded size.
type blockCache struct {
	c *ristretto.Cache
}

func newBlockCache(maxCost int64) (*blockCache, error) {
	// ~10 counters per expected entry, assuming 64 KiB average blocks
	counters := maxCost / (64 << 10) * 10
	if counters < 1000 {
		counters = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        counters,
		MaxCost:            maxCost,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &blockCache{c: c}, nil
}

func (b *blockCache) get(key string) ([]wire.Record, bool) {
	v, ok := b.c.Get(key)
	if !ok {
		return nil, false
	}
	recs, ok := v.([]wire.Record)
	if !ok {
		b.c.Del(key)
		return nil, false
	}
	return recs, true
}

// set is best effort; ristretto may drop the entry under contention.
func (b *blockCache) set(key string, recs []wire.Record, cost int64) {
	b.c.Set(key, recs, cost)
}

func (b *blockCache) close() {
	b.c.Wait()
	b.c.Close()
}
