package shuffleio

import (
	"testing"

	"github.com/unkn0wn-root/shuffleio/internal/wire"
)

// wait blocks until buffered sets are applied.
func (b *blockCache) wait() { b.c.Wait() }

func TestBlockCacheGetSet(t *testing.T) {
	bc, err := newBlockCache(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer bc.close()

	if _, ok := bc.get("a"); ok {
		t.Fatalf("hit on empty cache")
	}
	recs := []wire.Record{{Key: []byte("k"), Value: []byte("v")}}
	bc.set("a", recs, 16)
	bc.wait()
	got, ok := bc.get("a")
	if !ok || len(got) != 1 || string(got[0].Value) != "v" {
		t.Fatalf("get = %v ok=%v", got, ok)
	}
}
