package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProductKeyPrefix  = "product:%d"
	CategoriesKey     = "catalog:categories"
	CuratedKey        = "catalog:curated"
	UserKeyPrefix     = "user:%d"
	ThreadsKeyPrefix  = "threads:user:%d"
	MetricsSummaryKey = "admin:metrics:summary"
)

const (
	ProductTTL        = 10 * time.Minute
	CategoriesTTL     = 30 * time.Minute
	CuratedTTL        = 5 * time.Minute
	UserTTL           = 5 * time.Minute
	MetricsSummaryTTL = 1 * time.Minute
)

func ProductKey(productID uint) string {
	return fmt.Sprintf(ProductKeyPrefix, productID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ThreadsKey(userID uint) string {
	return fmt.Sprintf(ThreadsKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateProduct(ctx context.Context, productID uint) {
	Invalidate(ctx, ProductKey(productID))
	Invalidate(ctx, CuratedKey)
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateCatalog(ctx context.Context) {
	Invalidate(ctx, CategoriesKey)
	Invalidate(ctx, CuratedKey)
}
