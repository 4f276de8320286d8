// Package otel publishes session metrics through an OpenTelemetry Meter.
//
// [New] registers one Int64ObservableCounter per session counter and one
// Int64ObservableGauge per histogram bucket. A single callback reads the
// client snapshot on each collection. The caller owns the MeterProvider.
package otel
