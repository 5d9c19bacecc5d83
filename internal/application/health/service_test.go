package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheck_Healthy(t *testing.T) {
	svc := NewService(pingerFunc(func(context.Context) error { return nil }), "users", "test")

	r := svc.Check(context.Background(), false)
	assert.True(t, r.Healthy())
	assert.Equal(t, "Backend is running smoothly", r.Message)
	assert.Equal(t, "test", r.Environment)
	assert.Equal(t, StatusHealthy, r.Checks["database"].Status)
	assert.Nil(t, r.Detailed)
	assert.NotEmpty(t, r.Process.GoVersion)
}

func TestCheck_Degraded(t *testing.T) {
	svc := NewService(pingerFunc(func(context.Context) error { return errors.New("no route") }), "users", "test")

	r := svc.Check(context.Background(), true)
	assert.False(t, r.Healthy())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, "no route", r.Checks["database"].Error)
	require.NotNil(t, r.Detailed)
	assert.Positive(t, r.Detailed.Goroutines)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "1h 2m 3s", formatUptime(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "0h 0m 0s", formatUptime(0))
}
