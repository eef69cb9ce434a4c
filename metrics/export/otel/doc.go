// Package otel bridges engine metrics to an OpenTelemetry Meter.
//
// Each engine counter becomes an Int64ObservableCounter and each latency
// bucket an Int64ObservableGauge; one callback reads Engine.MetricsSnapshot
// per collection. Callers own the MeterProvider.
package otel
