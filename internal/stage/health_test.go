package stage

import (
	"context"
	"testing"
)

type readyExecutor struct{}

func (readyExecutor) HealthCheck(context.Context) Health { return Healthy("ocr") }

type brokenExecutor struct{}

func (brokenExecutor) HealthCheck(context.Context) Health {
	return Unhealthy("watermark", "pdf engine unavailable")
}

func TestCheckAllSkipsExecutorsWithoutHealth(t *testing.T) {
	results := CheckAll(context.Background(), readyExecutor{}, struct{}{}, brokenExecutor{})
	if len(results) != 2 {
		t.Fatalf("expected 2 health results, got %d", len(results))
	}
	if !results[0].Ready || results[0].Name != "ocr" {
		t.Fatalf("unexpected first result %+v", results[0])
	}
	if results[1].Ready || results[1].Detail == "" {
		t.Fatalf("expected unhealthy watermark with detail, got %+v", results[1])
	}
}
