// Package metrics exposes Prometheus counters and histograms for ingest and chat.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

type metricsRAG struct {
	once sync.Once

	ingestTotal     *prometheus.CounterVec
	ingestDocuments prometheus.Counter
	ingestChunks    prometheus.Counter
	skippedFiles    *prometheus.CounterVec
	ingestDuration  prometheus.Histogram

	queryTotal    *prometheus.CounterVec
	queryHits     prometheus.Histogram
	queryDuration prometheus.Histogram
}

var ragMetrics metricsRAG

func (m *metricsRAG) init() {
	m.once.Do(func() {
		m.ingestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "repo_rag_ingest_total", Help: "Ingest requests by outcome"}, []string{"outcome"})
		m.ingestDocuments = prometheus.NewCounter(prometheus.CounterOpts{Name: "repo_rag_ingest_documents_total", Help: "Files loaded during ingest"})
		m.ingestChunks = prometheus.NewCounter(prometheus.CounterOpts{Name: "repo_rag_ingest_chunks_total", Help: "Chunks embedded and stored"})
		m.skippedFiles = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "repo_rag_ingest_skipped_files_total", Help: "Files skipped by the loader"}, []string{"reason"})

		m.queryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "repo_rag_query_total", Help: "Chat requests by outcome"}, []string{"outcome"})
		m.queryHits = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "repo_rag_query_hits", Help: "Chunks retrieved per query", Buckets: []float64{0, 1, 2, 3, 5, 10, 20}})

		// Clone + embedding of a large repository takes minutes.
		m.ingestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "repo_rag_ingest_seconds", Help: "Ingest duration", Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600}})
		m.queryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "repo_rag_query_seconds", Help: "Chat duration", Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}})

		prometheus.MustRegister(
			m.ingestTotal, m.ingestDocuments, m.ingestChunks, m.skippedFiles, m.ingestDuration,
			m.queryTotal, m.queryHits, m.queryDuration,
		)
	})
}

// RecordIngest records one finished ingest.
func RecordIngest(outcome string, d time.Duration, documents, chunks int) {
	ragMetrics.init()
	ragMetrics.ingestTotal.WithLabelValues(outcome).Inc()
	ragMetrics.ingestDuration.Observe(d.Seconds())
	ragMetrics.ingestDocuments.Add(float64(documents))
	ragMetrics.ingestChunks.Add(float64(chunks))
}

// RecordSkipped adds loader skip counts by reason.
func RecordSkipped(reasons map[string]int) {
	ragMetrics.init()
	for reason, n := range reasons {
		ragMetrics.skippedFiles.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordQuery records one finished chat request.
func RecordQuery(outcome string, d time.Duration, hits int) {
	ragMetrics.init()
	ragMetrics.queryTotal.WithLabelValues(outcome).Inc()
	ragMetrics.queryDuration.Observe(d.Seconds())
	if outcome == OutcomeSuccess {
		ragMetrics.queryHits.Observe(float64(hits))
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	ragMetrics.init()
	return promhttp.Handler()
}
