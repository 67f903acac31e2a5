package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIngest(t *testing.T) {
	ragMetrics.init()
	before := testutil.ToFloat64(ragMetrics.ingestTotal.WithLabelValues(OutcomeSuccess))
	chunksBefore := testutil.ToFloat64(ragMetrics.ingestChunks)

	RecordIngest(OutcomeSuccess, 2*time.Second, 4, 12)

	assert.Equal(t, before+1, testutil.ToFloat64(ragMetrics.ingestTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, chunksBefore+12, testutil.ToFloat64(ragMetrics.ingestChunks))
}

func TestRecordSkipped(t *testing.T) {
	ragMetrics.init()
	before := testutil.ToFloat64(ragMetrics.skippedFiles.WithLabelValues("binary"))

	RecordSkipped(map[string]int{"binary": 3, "extension": 1})

	assert.Equal(t, before+3, testutil.ToFloat64(ragMetrics.skippedFiles.WithLabelValues("binary")))
}

func TestRecordQuery(t *testing.T) {
	ragMetrics.init()
	before := testutil.ToFloat64(ragMetrics.queryTotal.WithLabelValues(OutcomeError))

	RecordQuery(OutcomeError, time.Second, 0)

	assert.Equal(t, before+1, testutil.ToFloat64(ragMetrics.queryTotal.WithLabelValues(OutcomeError)))
}

func TestHandler(t *testing.T) {
	RecordQuery(OutcomeSuccess, 100*time.Millisecond, 5)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "repo_rag_query_total")
	assert.Contains(t, string(body), "repo_rag_query_seconds")
}
