package stage

import "context"

// Health summarizes the readiness of a pipeline stage executor.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// HealthChecker is implemented by executors that depend on external tools.
type HealthChecker interface {
	HealthCheck(context.Context) Health
}

// CheckAll collects health from every executor that implements HealthChecker.
func CheckAll(ctx context.Context, executors ...any) []Health {
	out := make([]Health, 0, len(executors))
	for _, executor := range executors {
		if checker, ok := executor.(HealthChecker); ok {
			out = append(out, checker.HealthCheck(ctx))
		}
	}
	return out
}
