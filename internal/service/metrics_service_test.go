package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest("GET", "/api/v1/resources", 200, 10*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/resources", 200, 30*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveTagSet(models.ResourceTagSet{
		Term:        []string{"2023春"},
		Instructors: []string{"张三", "李四"},
		Others:      []string{},
	})

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.001)
	assert.Equal(t, map[string]uint64{BucketTerm: 1, BucketInstructors: 2}, snap.TagBuckets)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.RecordExportJob(models.ExportFormatCSV, models.ExportStatusFinished)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `coursehub_export_jobs_total{format="csv",status="FINISHED"} 1`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveTagSet(models.ResourceTagSet{Term: []string{"x"}})
	m.ObserveUpload(10)
	assert.NotNil(t, m.Snapshot().TagBuckets)
}

func TestMetricsServiceDBQueriesAndQueueDepth(t *testing.T) {
	m := NewMetricsService()
	m.ObserveDBQuery("resources_list", 4*time.Millisecond)
	m.ObserveDBQuery("resources_export", 8*time.Millisecond)

	depth := 3
	m.TrackQueueDepth("exports", func() int { return depth })
	m.TrackQueueDepth("exports", func() int { return 99 })

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.DBQueryCount)
	assert.InDelta(t, 6.0, snap.AverageDBQueryDurationMs, 0.001)
	assert.Equal(t, map[string]int{"exports": 3}, snap.QueuePending)

	depth = 1
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `coursehub_queue_pending_jobs{queue="exports"} 1`)
	assert.Contains(t, body, `coursehub_db_query_duration_seconds_count{query="resources_list"} 1`)
}
