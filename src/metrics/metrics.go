// Package metrics reports deployment outcomes to a Prometheus Pushgateway.
// The CLI is short-lived, so metrics are pushed once per deployment rather
// than scraped.
package metrics

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"ci-deployer/src/contracts"
	"ci-deployer/src/deploy"
	"ci-deployer/src/logger"
)

const (
	LabelSuccess = "success"
	LabelStep    = "step"

	pushJob = "cideploy"
)

// Recorder is a deploy.Observer that keeps deployment metrics in its own
// registry and pushes them when a deployment finishes.
type Recorder struct {
	registry *stdprometheus.Registry
	gateway  string
	log      logger.Logger

	durationVec    *stdprometheus.HistogramVec
	failuresVec    *stdprometheus.CounterVec
	lastSuccessVec *stdprometheus.GaugeVec

	Duration    metrics.Histogram
	StepFailure metrics.Counter
	LastSuccess metrics.Gauge
}

// NewRecorder creates a Recorder. An empty gateway URL disables pushing.
func NewRecorder(gateway string, log logger.Logger) *Recorder {
	r := &Recorder{
		registry: stdprometheus.NewRegistry(),
		gateway:  gateway,
		log:      log,
		durationVec: stdprometheus.NewHistogramVec(stdprometheus.HistogramOpts{
			Namespace: "cideploy",
			Subsystem: "deployment",
			Name:      "duration_seconds",
			Help:      "Duration of deployments, in seconds.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 2, 12), // top bucket ~= 68 minutes
		}, []string{LabelSuccess}),
		failuresVec: stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
			Namespace: "cideploy",
			Subsystem: "deployment",
			Name:      "step_failures_total",
			Help:      "Deployment steps that failed, by step.",
		}, []string{LabelStep}),
		lastSuccessVec: stdprometheus.NewGaugeVec(stdprometheus.GaugeOpts{
			Namespace: "cideploy",
			Subsystem: "deployment",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful deployment.",
		}, []string{}),
	}
	r.registry.MustRegister(r.durationVec, r.failuresVec, r.lastSuccessVec)

	r.Duration = prometheus.NewHistogram(r.durationVec)
	r.StepFailure = prometheus.NewCounter(r.failuresVec)
	r.LastSuccess = prometheus.NewGauge(r.lastSuccessVec)
	return r
}

// Registry exposes the collectors, mainly for tests.
func (r *Recorder) Registry() *stdprometheus.Registry {
	return r.registry
}

func (r *Recorder) Started(ctx context.Context, d contracts.Deployment) {}

func (r *Recorder) Transition(ctx context.Context, ev deploy.Event) {
	if ev.Err != nil {
		r.StepFailure.With(LabelStep, ev.Step).Add(1)
	}
}

func (r *Recorder) Finished(ctx context.Context, d contracts.Deployment) {
	success := d.Status == contracts.StatusSucceeded
	if d.FinishedAt != nil {
		r.Duration.With(LabelSuccess, strconv.FormatBool(success)).Observe(d.FinishedAt.Sub(d.StartedAt).Seconds())
		if success {
			r.LastSuccess.Set(float64(d.FinishedAt.Unix()))
		}
	}

	if err := r.Push(context.WithoutCancel(ctx), d.Host); err != nil {
		r.log.Error("Failed to push metrics: %v", err)
	}
}

// Push sends the current values to the gateway, grouped by host.
func (r *Recorder) Push(ctx context.Context, host string) error {
	if r.gateway == "" {
		return nil
	}
	p := push.New(r.gateway, pushJob).Gatherer(r.registry)
	if host != "" {
		p = p.Grouping("host", host)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("pushgateway %s: %w", r.gateway, err)
	}
	return nil
}
