package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	serviceName    = "microservicio_estudiantil"
	serviceVersion = "1.0.0"
)

// Pinger is anything whose reachability the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status        string            `json:"status"`
	Service       string            `json:"service"`
	Version       string            `json:"version"`
	Checks        map[string]string `json:"checks"`
	UptimeSeconds int64             `json:"uptime_seconds"`
}

// Healthy reports whether every dependency answered.
func (h HealthStatus) Healthy() bool { return h.Status == "healthy" }

// CollectHealth probes every dependency with a short deadline. A nil pinger
// is reported as disabled and does not degrade the service. Ping errors are
// logged; the status only says "error".
func CollectHealth(ctx context.Context, deps map[string]Pinger, startedAt time.Time) HealthStatus {
	st := HealthStatus{
		Status:  "healthy",
		Service: serviceName,
		Version: serviceVersion,
		Checks:  make(map[string]string, len(deps)),
	}
	for name, p := range deps {
		if p == nil {
			st.Checks[name] = "disabled"
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			logrus.WithError(err).WithField("dependency", name).Warn("health check failed")
			st.Checks[name] = "error"
			st.Status = "degraded"
			continue
		}
		st.Checks[name] = "ok"
	}
	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}
	return st
}
