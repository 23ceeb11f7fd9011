package perf

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/adverts-listing/adverts/internal/catalogapi"
	jobmetrics "github.com/adverts-listing/adverts/internal/jobs"
	"github.com/adverts-listing/adverts/jobs"
)

func runWarmup(t *testing.T, job *jobs.ListingWarmupJob, runs int) {
	t.Helper()
	task, err := jobs.NewListingWarmupTask(jobs.ListingWarmupPayload{Pages: 3})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	for i := 0; i < runs; i++ {
		if err := job.Handle(context.Background(), task); err != nil {
			t.Fatalf("warmup run %d: %v", i, err)
		}
	}
}

func warmupJob(reg *prometheus.Registry, fetcher *catalogapi.CachedClient) *jobs.ListingWarmupJob {
	return jobs.NewListingWarmupJob(fetcher, nil, jobmetrics.NewMetrics(reg))
}

func TestWarmupJobThroughputAndReliability(t *testing.T) {
	upstream := slowCatalog{delay: 20 * time.Millisecond, items: sampleItems(20)}
	catalog := newCachedCatalog(t, upstream)

	coldReg := prometheus.NewRegistry()
	runWarmup(t, warmupJob(coldReg, catalog), 1)

	cachedReg := prometheus.NewRegistry()
	runWarmup(t, warmupJob(cachedReg, catalog), 20)

	families, err := cachedReg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	success := metricValue(t, families, "adverts_jobs_total", map[string]string{"job": jobs.TaskListingWarmup, "status": "success"})
	if success != 20 {
		t.Fatalf("expected 20 successful runs, got %f", success)
	}
	warmed := metricValue(t, families, "adverts_cache_pages_warmed_total", map[string]string{"job": jobs.TaskListingWarmup})
	if warmed != 60 {
		t.Fatalf("expected 60 warmed pages, got %f", warmed)
	}

	cachedDuration := histogramMean(t, families, "adverts_job_duration_seconds", map[string]string{"job": jobs.TaskListingWarmup})
	if cachedDuration > 0.05 {
		t.Fatalf("cached warmup duration above budget: %f", cachedDuration)
	}

	coldFamilies, err := coldReg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	coldDuration := histogramMean(t, coldFamilies, "adverts_job_duration_seconds", map[string]string{"job": jobs.TaskListingWarmup})
	if coldDuration < 0.05 {
		t.Fatalf("cold warmup should reach the upstream for every page: %f", coldDuration)
	}
	if coldDuration > 2.0 {
		t.Fatalf("cold warmup duration above budget: %f", coldDuration)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
