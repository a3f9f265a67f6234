package lock

import (
	"context"
	"errors"
	"sort"
)

// ErrNotObtained is returned when a lock could not be acquired before the
// context ended or the retry budget ran out.
var ErrNotObtained = errors.New("lock not obtained")

// Locker serializes work on named keys such as "product:12" or "voucher:7".
// Lock acquires every key or none; the returned release func frees them all.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (release func(), err error)
}

// normalizeKeys dedupes and sorts keys so that callers locking overlapping
// sets always acquire in the same order.
func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
