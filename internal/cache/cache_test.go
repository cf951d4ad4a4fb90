/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, 0), mr
}

func TestSetAndGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	categories := []string{"Work", "Personal", "Other"}
	require.NoError(t, c.Set(ctx, "notebox:categories", categories, 5*time.Minute))

	var got []string
	found, err := c.Get(ctx, "notebox:categories", &got)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, categories, got)
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var got []string
	found, err := c.Get(context.Background(), "nonExistentKey", &got)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "notebox:categories", []string{"Work"}, 5*time.Minute))
	assert.True(t, mr.Exists("notebox:categories"))

	assert.NoError(t, c.Delete(ctx, "notebox:categories"))
	assert.False(t, mr.Exists("notebox:categories"))

	var got []string
	found, err := c.Get(ctx, "notebox:categories", &got)
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, c.Delete(ctx, "nonExistentKey"))
}

func TestTTLExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "lived", time.Minute))
	mr.FastForward(2 * time.Minute)

	var got string
	found, err := c.Get(ctx, "short", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestLocalTier(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewCache(client, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	// the local tier still answers after redis loses the key
	mr.Del("k")
	var got string
	found, err := c.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", got)
}
