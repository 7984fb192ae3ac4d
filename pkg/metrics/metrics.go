// Package metrics exposes the counters and gauges the core registers on its
// own private prometheus.Registry; the core never binds a network listener,
// consistent with transport being out of scope (spec.md §1).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups every metric the core touches.
type Registry struct {
	reg *prometheus.Registry

	StoreMutations  *prometheus.CounterVec
	ThingsByClass   *prometheus.GaugeVec
	RollupCompute   *prometheus.CounterVec
	SnapshotWrites  *prometheus.CounterVec
	SnapshotReads   *prometheus.CounterVec
	PermissionDenys *prometheus.CounterVec
}

// New builds a Registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		StoreMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ontocore_store_mutations_total",
			Help: "Object store save/delete calls by class and outcome.",
		}, []string{"cname", "op", "outcome"}),
		ThingsByClass: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ontocore_things_by_class",
			Help: "Live Thing count per class tag.",
		}, []string{"cname"}),
		RollupCompute: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ontocore_rollup_compute_total",
			Help: "Parametric engine rollup computations by variable and context.",
		}, []string{"variable", "context"}),
		SnapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ontocore_snapshot_writes_total",
			Help: "Persistence snapshot writes by file and outcome.",
		}, []string{"file", "outcome"}),
		SnapshotReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ontocore_snapshot_reads_total",
			Help: "Persistence snapshot reads by file and outcome.",
		}, []string{"file", "outcome"}),
		PermissionDenys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ontocore_permission_empty_total",
			Help: "get_perms calls that resolved to an empty permission set.",
		}, []string{"cname"}),
	}

	reg.MustRegister(r.StoreMutations, r.ThingsByClass, r.RollupCompute, r.SnapshotWrites, r.SnapshotReads, r.PermissionDenys)
	return r
}

// Registry returns the underlying prometheus.Registry for the embedder to
// expose over whatever transport it chooses.
func (r *Registry) Registry() *prometheus.Registry { return r.reg }
