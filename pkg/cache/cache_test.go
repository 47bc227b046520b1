package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNilClientAlwaysMisses(t *testing.T) {
	c := NewService(nil)
	ctx := context.Background()

	assert.False(t, c.IsAvailable())
	assert.Error(t, c.Ping(ctx))
	assert.NoError(t, c.Set(ctx, "k", map[string]string{"a": "b"}, time.Minute))

	var out map[string]string
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestUnreachableRedisReportsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	c := NewService(client)

	var out map[string]string
	err := c.Get(context.Background(), BrandKitKey("t1"), &out)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestBrandKitKey(t *testing.T) {
	assert.Equal(t, "qualitygate:brandkit:tenant-a", BrandKitKey("tenant-a"))
}
