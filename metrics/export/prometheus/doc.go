// Package prometheus renders session metrics in the Prometheus text
// exposition format. Mount [Exporter.Handler] on whatever mux serves
// /metrics; nothing is registered globally.
package prometheus
