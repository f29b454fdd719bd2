package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEncodeStatsCache(t *testing.T) {
	jobID := "metrics-test-job"
	DeleteEncodeStats(jobID)

	SetEncodeFPS(jobID, 72.5)
	SetEncodeSpeed(jobID, 2.01)

	got := GetEncodeStats(jobID)
	if got == nil {
		t.Fatal("expected stats for job")
	}
	if got.FPS != 72.5 || got.Speed != 2.01 {
		t.Errorf("stats = %+v", got)
	}
	if v := testutil.ToFloat64(exportFPS.WithLabelValues(jobID)); v != 72.5 {
		t.Errorf("fps gauge = %v", v)
	}

	// Returned value is a copy.
	got.FPS = 0
	if GetEncodeStats(jobID).FPS != 72.5 {
		t.Error("GetEncodeStats should return a copy")
	}

	if _, ok := GetAllEncodeStats()[jobID]; !ok {
		t.Error("GetAllEncodeStats missing job")
	}

	DeleteEncodeStats(jobID)
	if GetEncodeStats(jobID) != nil {
		t.Error("stats should be gone after delete")
	}
}

func TestExportLifecycle(t *testing.T) {
	before := testutil.ToFloat64(exportJobs.WithLabelValues("completed"))
	active := testutil.ToFloat64(exportActive)

	ExportStarted()
	if v := testutil.ToFloat64(exportActive); v != active+1 {
		t.Errorf("active = %v, want %v", v, active+1)
	}

	SetEncodeFPS("lifecycle-job", 30)
	ExportFinished("lifecycle-job", "completed", 3*time.Second)

	if v := testutil.ToFloat64(exportActive); v != active {
		t.Errorf("active after finish = %v, want %v", v, active)
	}
	if v := testutil.ToFloat64(exportJobs.WithLabelValues("completed")); v != before+1 {
		t.Errorf("completed = %v, want %v", v, before+1)
	}
	if GetEncodeStats("lifecycle-job") != nil {
		t.Error("finish should drop throughput stats")
	}
}

func TestCounters(t *testing.T) {
	tiles := testutil.ToFloat64(tilesFetched.WithLabelValues("ok"))
	TileFetched("ok")
	if v := testutil.ToFloat64(tilesFetched.WithLabelValues("ok")); v != tiles+1 {
		t.Errorf("tiles ok = %v", v)
	}

	frames := testutil.ToFloat64(minimapFrames)
	MinimapFramesWritten(36)
	if v := testutil.ToFloat64(minimapFrames); v != frames+36 {
		t.Errorf("frames = %v", v)
	}

	sel := testutil.ToFloat64(encoderSelected.WithLabelValues("libx264", "false"))
	EncoderSelected("libx264", false)
	if v := testutil.ToFloat64(encoderSelected.WithLabelValues("libx264", "false")); v != sel+1 {
		t.Errorf("selected = %v", v)
	}
}

func TestAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(apiRequests.WithLabelValues("get-export", "4xx"))
	APIRequest("get-export", 404, 2*time.Millisecond)
	if v := testutil.ToFloat64(apiRequests.WithLabelValues("get-export", "4xx")); v != before+1 {
		t.Errorf("4xx count = %v, want %v", v, before+1)
	}
}
