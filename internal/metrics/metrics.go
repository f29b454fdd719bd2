// Package metrics provides Prometheus metrics for exports, tile fetches and
// minimap rendering.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sentryexport"

var (
	exportJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "jobs_total",
		Help:      "Export jobs by terminal state",
	}, []string{"result"})

	exportActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "active",
		Help:      "Export jobs currently running",
	})

	exportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "duration_seconds",
		Help:      "Wall time of finished export jobs",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	exportFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "encode_fps",
		Help:      "Current encoder frames per second",
	}, []string{"job_id"})

	exportSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "encode_speed",
		Help:      "Encoder speed relative to real time",
	}, []string{"job_id"})

	tilesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tiles",
		Name:      "fetched_total",
		Help:      "Basemap tile requests by result",
	}, []string{"result"})

	minimapFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "minimap",
		Name:      "frames_total",
		Help:      "Minimap frames written to the encoder",
	})

	encoderSelected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "selected",
		Help:      "Encoder selections by encoder",
	}, []string{"encoder", "hardware"})

	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "API requests by operation and status class",
	}, []string{"operation", "status"})

	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "API request latency by operation",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// Local cache for the stats publisher.
	statsCache   = make(map[string]*EncodeStats)
	statsCacheMu sync.RWMutex
)

// EncodeStats holds current encoder throughput for a job.
type EncodeStats struct {
	FPS   float64
	Speed float64
}

// ExportStarted marks a job as running.
func ExportStarted() {
	exportActive.Inc()
}

// ExportFinished records a terminal state and removes the job's gauges.
func ExportFinished(jobID, result string, elapsed time.Duration) {
	exportActive.Dec()
	exportJobs.WithLabelValues(result).Inc()
	exportDuration.Observe(elapsed.Seconds())
	DeleteEncodeStats(jobID)
}

// SetEncodeFPS sets the current encoder FPS for a job.
func SetEncodeFPS(jobID string, fps float64) {
	exportFPS.WithLabelValues(jobID).Set(fps)
	updateCache(jobID, func(s *EncodeStats) { s.FPS = fps })
}

// SetEncodeSpeed sets the encoder speed multiplier for a job.
func SetEncodeSpeed(jobID string, speed float64) {
	exportSpeed.WithLabelValues(jobID).Set(speed)
	updateCache(jobID, func(s *EncodeStats) { s.Speed = speed })
}

// DeleteEncodeStats removes all throughput metrics for a job.
func DeleteEncodeStats(jobID string) {
	exportFPS.DeleteLabelValues(jobID)
	exportSpeed.DeleteLabelValues(jobID)

	statsCacheMu.Lock()
	delete(statsCache, jobID)
	statsCacheMu.Unlock()
}

// GetEncodeStats returns current throughput for a job, or nil.
func GetEncodeStats(jobID string) *EncodeStats {
	statsCacheMu.RLock()
	defer statsCacheMu.RUnlock()
	if s, ok := statsCache[jobID]; ok {
		dup := *s
		return &dup
	}
	return nil
}

// GetAllEncodeStats returns throughput for all running jobs.
func GetAllEncodeStats() map[string]*EncodeStats {
	statsCacheMu.RLock()
	defer statsCacheMu.RUnlock()
	result := make(map[string]*EncodeStats, len(statsCache))
	for id, s := range statsCache {
		dup := *s
		result[id] = &dup
	}
	return result
}

// TileFetched counts one tile request. result is "ok", "http_error" or
// "timeout".
func TileFetched(result string) {
	tilesFetched.WithLabelValues(result).Inc()
}

// MinimapFramesWritten adds n frames to the minimap counter.
func MinimapFramesWritten(n int) {
	minimapFrames.Add(float64(n))
}

// EncoderSelected counts an encoder choice.
func EncoderSelected(encoder string, hardware bool) {
	encoderSelected.WithLabelValues(encoder, strconv.FormatBool(hardware)).Inc()
}

// APIRequest records one API call. status is collapsed to its class ("2xx").
func APIRequest(operation string, status int, elapsed time.Duration) {
	apiRequests.WithLabelValues(operation, strconv.Itoa(status/100)+"xx").Inc()
	apiLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func updateCache(jobID string, update func(*EncodeStats)) {
	statsCacheMu.Lock()
	defer statsCacheMu.Unlock()
	s, ok := statsCache[jobID]
	if !ok {
		s = &EncodeStats{}
		statsCache[jobID] = s
	}
	update(s)
}
