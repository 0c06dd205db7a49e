// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tasker/internal/platform/cache"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "session:u1:abc", cache.Key("session", "u1", "abc"))
	assert.Equal(t, "lockout", cache.Key("lockout"))
}

func TestThreshold_Locked(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, cache.Threshold{Count: 3}.Locked(now))
	assert.True(t, cache.Threshold{Count: 5, LockedUntil: now.Add(time.Minute)}.Locked(now))
	assert.False(t, cache.Threshold{Count: 5, LockedUntil: now}.Locked(now))
}

func TestConsume_String(t *testing.T) {
	assert.Equal(t, "ok", cache.ConsumeOK.String())
	assert.Equal(t, "missing", cache.ConsumeMissing.String())
	assert.Equal(t, "unknown", cache.Consume(42).String())
}
