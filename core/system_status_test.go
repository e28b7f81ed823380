package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectHealth(t *testing.T) {
	ok := PingerFunc(func(context.Context) error { return nil })

	st := CollectHealth(context.Background(), map[string]Pinger{"database": ok, "redis": nil}, time.Now().Add(-time.Minute))
	require.True(t, st.Healthy(), "%+v", st)
	assert.Equal(t, map[string]string{"database": "ok", "redis": "disabled"}, st.Checks)
	assert.GreaterOrEqual(t, st.UptimeSeconds, int64(59))
	assert.Equal(t, "microservicio_estudiantil", st.Service)
	assert.Equal(t, "1.0.0", st.Version)
}

func TestCollectHealthKeepsCausesOutOfTheBody(t *testing.T) {
	down := PingerFunc(func(context.Context) error {
		return errors.New("dial tcp 10.0.0.5:5432: connect: connection refused (user=admin)")
	})

	st := CollectHealth(context.Background(), map[string]Pinger{"database": down}, time.Time{})
	assert.False(t, st.Healthy())
	assert.Equal(t, "degraded", st.Status)
	assert.Equal(t, "error", st.Checks["database"])
	assert.Zero(t, st.UptimeSeconds)
	for _, v := range st.Checks {
		assert.NotContains(t, v, "10.0.0.5")
		assert.NotContains(t, v, "admin")
	}
}
