package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-appointments-server/internal/models"
)

func newTestCache(t *testing.T) (*ScheduleCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewScheduleCache(client, time.Minute), mr
}

func TestScheduleCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "doctor-1")
	require.NoError(t, err)
	assert.False(t, found)

	windows := []models.DoctorSchedule{{
		DoctorID: "doctor-1", DayOfWeek: models.Monday, StartTime: 540, EndTime: 1020, IsAvailable: true,
	}}
	require.NoError(t, c.Set(ctx, "doctor-1", windows))
	assert.True(t, mr.Exists("clinic:schedule:doctor-1"))
	assert.Equal(t, time.Minute, mr.TTL("clinic:schedule:doctor-1"))

	got, found, err := c.Get(ctx, "doctor-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "09:00", got[0].StartTime.String())
	assert.Equal(t, "17:00", got[0].EndTime.String())
}

func TestScheduleCacheInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "doctor-1", []models.DoctorSchedule{}))
	require.NoError(t, c.Invalidate(ctx, "doctor-1"))
	assert.False(t, mr.Exists("clinic:schedule:doctor-1"))
}

func TestScheduleCacheCorruptValue(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("clinic:schedule:doctor-1", "not json"))

	_, found, err := c.Get(context.Background(), "doctor-1")
	assert.Error(t, err)
	assert.False(t, found)
}
