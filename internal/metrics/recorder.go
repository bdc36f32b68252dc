// Package metrics records render pipeline measurements.
//
// Components receive a Recorder through their constructor options and default to
// NoopRecorder, so callers never nil-check. PrometheusRecorder is wired in by the
// serve command when metrics are enabled.
package metrics

import "time"

// Outcome labels the result of a single document build.
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomeTemplateUnavailable Outcome = "template_unavailable"
	OutcomeRenderFailed        Outcome = "render_failed"
)

// Recorder defines observability hooks for the render pipeline.
type Recorder interface {
	ObserveBuildDuration(outcome Outcome, d time.Duration)
	ObserveRenderDuration(d time.Duration)
	IncTemplateFallback()
	IncMarkerMissing(marker string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(Outcome, time.Duration) {}
func (NoopRecorder) ObserveRenderDuration(time.Duration)         {}
func (NoopRecorder) IncTemplateFallback()                        {}
func (NoopRecorder) IncMarkerMissing(string)                     {}
