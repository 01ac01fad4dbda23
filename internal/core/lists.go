package core

import (
	"context"
	"slices"
	"strings"
	"time"

	"qanta-backend-go/internal/cache"
)

// Cache keys of the Firestore-backed uid lists.
const (
	adminListCacheKey   = "admins:admin_list"
	quotaBypassCacheKey = "admins:quota_bypass"
	listCacheTTL        = time.Minute
)

// cachedList returns a uid list through c, loading it on a miss. A failing
// cache is skipped.
func cachedList(ctx context.Context, c cache.Cache, key string, load func(context.Context) ([]string, error)) ([]string, error) {
	if c != nil {
		if v, err := c.Get(ctx, key); err == nil {
			if v == "" {
				return nil, nil
			}
			return strings.Split(v, ","), nil
		}
	}
	ids, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if c != nil {
		_ = c.Set(ctx, key, strings.Join(ids, ","), listCacheTTL)
	}
	return ids, nil
}

// ParseUIDList splits a comma separated uid list, dropping blanks.
func ParseUIDList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
