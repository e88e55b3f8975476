// Package metric provides Prometheus metrics for the memstore module.
//
// A MetricsRegistry owns a dedicated prometheus.Registry pre-populated with
// the core store collectors (per-store item gauges, operation counters,
// cache hit/miss counters, sweeper histograms) plus Go runtime collectors.
// Components register additional collectors through the MetricsRegistrar
// interface; a destroyed store's label series are dropped via RemoveStore.
//
// Metrics are optional throughout the module: stores record their logical
// counters regardless, and mirror them into Prometheus only when the
// registry is wired in.
package metric
