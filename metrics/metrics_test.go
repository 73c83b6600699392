/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Sum[int64])
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				out[m.Name] = sum
			}
		}
	}
	return out
}

func total(sum metricdata.Sum[int64], key, value string) int64 {
	var n int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			n += dp.Value
		}
	}
	return n
}

func TestLint(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(ctx)

	m := New(mp)
	m.SetAttributeEnricher(ResourceEnricher("o/r", 7))

	m.RecordStage(ctx, "eslint", OutcomeFailure)
	m.RecordStage(ctx, "prettier", OutcomeSuccess)
	m.RecordStage(ctx, "eslint", OutcomeFailure)
	m.RecordAnnotations(ctx, "eslint", "failure", 3)
	m.RecordAnnotations(ctx, "eslint", "warning", 0)
	m.RecordCommits(ctx, "prettier", "committed", 2)

	got := collect(t, reader)

	tests := []struct {
		metric, key, value string
		want               int64
	}{
		{metric: "prlint.stage.runs", key: "outcome", value: OutcomeFailure, want: 2},
		{metric: "prlint.stage.runs", key: "outcome", value: OutcomeSuccess, want: 1},
		{metric: "prlint.annotations", key: "level", value: "failure", want: 3},
		{metric: "prlint.annotations", key: "level", value: "warning", want: 0},
		{metric: "prlint.commits", key: "result", value: "committed", want: 2},
		{metric: "prlint.stage.runs", key: "repository", value: "o/r", want: 3},
	}
	for _, tc := range tests {
		if n := total(got[tc.metric], tc.key, tc.value); n != tc.want {
			t.Errorf("%s{%s=%s}: got = %d, wanted = %d", tc.metric, tc.key, tc.value, n, tc.want)
		}
	}
}

func TestNewGlobalProvider(t *testing.T) {
	// The global provider is a no-op until configured; recording must not panic.
	m := New(nil)
	m.RecordStage(context.Background(), "eslint", OutcomeSuccess)
}
