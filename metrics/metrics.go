// Package metrics wires the engine's counters and histograms through
// prometheus/client_golang, following the registerer-passed-in pattern
// the teacher uses for its block caches (sdk/stack/vm.go constructs a
// prometheus.NewRegistry() and hands it to NewBlockCache, which in turn
// wraps each cache.Cacher with cache/metercacher.New).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter/histogram the run loop, its per-block
// callback, and backstep recovery report to (spec.md §2's "Stats/telemetry" component
// and §4.8's cache/throughput counters).
type Metrics struct {
	BlocksExecuted   prometheus.Counter
	RunDuration      prometheus.Histogram
	BlockExecTime    prometheus.Histogram
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	BackstepCount    prometheus.Counter
	ReorgCount       prometheus.Counter
	SlowBlockWarnings prometheus.Counter
}

// New builds a Metrics bundle and registers every collector against
// registerer, mirroring metercacher.New's "name + registerer + collector"
// shape but for plain prometheus collectors instead of cache.Cacher
// wrappers.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		BlocksExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "execution_engine",
			Name:      "blocks_executed_total",
			Help:      "Total number of blocks executed by the run loop.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "execution_engine",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of each run() invocation.",
			Buckets:   prometheus.DefBuckets,
		}),
		BlockExecTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "execution_engine",
			Name:      "block_execution_seconds",
			Help:      "Wall-clock duration of a single vm.RunBlock call.",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "execution_engine",
			Name:      "state_cache_hits_total",
			Help:      "Number of times clearCache was false (no cache reset needed).",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "execution_engine",
			Name:      "state_cache_misses_total",
			Help:      "Number of times clearCache was forced true.",
		}),
		BackstepCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "execution_engine",
			Name:      "backstep_total",
			Help:      "Number of times backstep recovery rewound the vm cursor.",
		}),
		ReorgCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "execution_engine",
			Name:      "reorg_total",
			Help:      "Number of reorgs observed by the run loop's iterator callback.",
		}),
		SlowBlockWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "execution_engine",
			Name:      "slow_block_warnings_total",
			Help:      "Number of blocks whose execution exceeded MAX_TOLERATED_BLOCK_TIME.",
		}),
	}

	collectors := []prometheus.Collector{
		m.BlocksExecuted, m.RunDuration, m.BlockExecTime, m.CacheHits,
		m.CacheMisses, m.BackstepCount, m.ReorgCount, m.SlowBlockWarnings,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
