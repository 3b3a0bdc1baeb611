package cache

import (
	"fmt"

	"github.com/casamapa/casamapa/internal/core/domain/geo"
)

// Canonical cache keys. Viewport coordinates are rounded to four decimal
// places (~11 m) so near-identical viewports collapse onto one entry.

const (
	housesPrefix = "houses"
	emojisPrefix = "emojis"

	// HousesPattern and EmojisPattern match every key of their category
	// for pattern invalidation after writes.
	HousesPattern = housesPrefix + ":*"
	EmojisPattern = emojisPrefix + ":*"
)

// HousesBoundsKey derives the key for a viewport-bounded house query.
func HousesBoundsKey(vp geo.Viewport, limit int) string {
	return boundsKey(housesPrefix, vp, limit)
}

// EmojisBoundsKey derives the key for a viewport-bounded reaction query.
func EmojisBoundsKey(vp geo.Viewport, limit int) string {
	return boundsKey(emojisPrefix, vp, limit)
}

func boundsKey(prefix string, vp geo.Viewport, limit int) string {
	return fmt.Sprintf("%s:bounds:%.4f:%.4f:%.4f:%.4f:%d",
		prefix, vp.South, vp.North, vp.West, vp.East, limit)
}

// TopHousesKey derives the key for a "top N" query; N alone identifies it.
func TopHousesKey(limit int) string {
	return fmt.Sprintf("%s:top:%d", housesPrefix, limit)
}

// PopularHousesKey derives the key for a named-area popularity query.
func PopularHousesKey(area string) string {
	return fmt.Sprintf("%s:popular:%s", housesPrefix, area)
}
