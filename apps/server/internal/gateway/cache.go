package gateway

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"holdem-live/apps/server/internal/table"
	"holdem-live/holdem"
)

// SnapshotCache memoizes viewer-scoped views by table, viewer and version. A view is a
// pure function of those three, so entries never go stale; old versions just age out.
type SnapshotCache struct {
	views *lru.Cache[string, holdem.View]
}

func NewSnapshotCache(size int) (*SnapshotCache, error) {
	if size <= 0 {
		size = 1024
	}
	views, err := lru.New[string, holdem.View](size)
	if err != nil {
		return nil, err
	}
	return &SnapshotCache{views: views}, nil
}

func cacheKey(tableID, viewer string, version uint64) string {
	return fmt.Sprintf("%s|%s|%d", tableID, viewer, version)
}

// View returns the current view of t for viewer. Cached views are shared; callers must not
// modify them.
func (c *SnapshotCache) View(t *table.Table, viewer string) holdem.View {
	if v, ok := c.views.Get(cacheKey(t.ID, viewer, t.Version())); ok {
		return v
	}
	v := t.Snapshot(viewer)
	c.views.Add(cacheKey(t.ID, viewer, v.Version), v)
	return v
}

func (c *SnapshotCache) Len() int { return c.views.Len() }
