package baseapp

import "github.com/prometheus/client_golang/prometheus"

var (
	_txMtc = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appcore_delivered_txs",
		Help: "Delivered transactions by result codespace and code.",
	}, []string{"codespace", "code"})
	_gasMtc = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "appcore_tx_gas_used",
		Help:    "Gas used by delivered transactions.",
		Buckets: prometheus.ExponentialBuckets(1000, 2, 14),
	})
	_commitMtc = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "appcore_commit_seconds",
		Help:    "Latency of state commits.",
		Buckets: prometheus.DefBuckets,
	})
	_heightMtc = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "appcore_block_height",
		Help: "Last committed version.",
	})
)

func init() {
	prometheus.MustRegister(_txMtc, _gasMtc, _commitMtc, _heightMtc)
}
