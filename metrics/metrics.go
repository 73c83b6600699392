/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics provides OpenTelemetry instruments for prlint stages.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope of every prlint instrument.
const MeterName = "chainguard.dev/prlint"

// Stage outcomes recorded by RecordStage.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
)

// AttributeEnricher adds contextual attributes (repository, pull request)
// to every recorded measurement.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

// Lint provides counters for stage outcomes, reported annotations and
// commit-back writes. Instruments that fail to initialize degrade to no-ops.
type Lint struct {
	stages       metric.Int64Counter
	annotations  metric.Int64Counter
	commits      metric.Int64Counter
	attrEnricher AttributeEnricher
}

// New creates the instruments on mp, or on the global provider when mp is
// nil.
func New(mp metric.MeterProvider) *Lint {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(MeterName, metric.WithInstrumentationVersion("1.0.0"))

	stages, err := meter.Int64Counter("prlint.stage.runs",
		metric.WithDescription("The number of tool stages run, by outcome"),
		metric.WithUnit("{stages}"))
	if err != nil {
		slog.Warn("Failed to create stage counter, metrics will be disabled", "error", err)
		stages = noop.Int64Counter{}
	}

	annotations, err := meter.Int64Counter("prlint.annotations",
		metric.WithDescription("The number of annotations reported on check runs"),
		metric.WithUnit("{annotations}"))
	if err != nil {
		slog.Warn("Failed to create annotation counter, metrics will be disabled", "error", err)
		annotations = noop.Int64Counter{}
	}

	commits, err := meter.Int64Counter("prlint.commits",
		metric.WithDescription("The number of files reconciled to the head branch, by result"),
		metric.WithUnit("{files}"))
	if err != nil {
		slog.Warn("Failed to create commit counter, metrics will be disabled", "error", err)
		commits = noop.Int64Counter{}
	}

	return &Lint{
		stages:      stages,
		annotations: annotations,
		commits:     commits,
	}
}

// SetAttributeEnricher sets the enricher called before every measurement.
func (m *Lint) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *Lint) attrs(ctx context.Context, base ...attribute.KeyValue) metric.MeasurementOption {
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return metric.WithAttributes(base...)
}

// RecordStage counts one completed stage.
func (m *Lint) RecordStage(ctx context.Context, stage, outcome string) {
	m.stages.Add(ctx, 1, m.attrs(ctx,
		attribute.String("stage", stage),
		attribute.String("outcome", outcome)))
}

// RecordAnnotations counts annotations of one level reported by a stage.
func (m *Lint) RecordAnnotations(ctx context.Context, stage, level string, n int) {
	if n == 0 {
		return
	}
	m.annotations.Add(ctx, int64(n), m.attrs(ctx,
		attribute.String("stage", stage),
		attribute.String("level", level)))
}

// RecordCommits counts reconciled files with the given result
// (committed, skipped or conflicted).
func (m *Lint) RecordCommits(ctx context.Context, stage, result string, n int) {
	if n == 0 {
		return
	}
	m.commits.Add(ctx, int64(n), m.attrs(ctx,
		attribute.String("stage", stage),
		attribute.String("result", result)))
}

// ResourceEnricher returns an enricher tagging measurements with the
// repository and pull request number.
func ResourceEnricher(repository string, number int) AttributeEnricher {
	return func(_ context.Context, base []attribute.KeyValue) []attribute.KeyValue {
		return append(base,
			attribute.String("repository", repository),
			attribute.Int("pull_request", number))
	}
}
