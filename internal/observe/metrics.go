// SPDX-License-Identifier: EPL-2.0

// Package observe holds the OpenTelemetry instruments recorded by the
// playback library.
//
// Instruments are created from a caller-supplied [metric.MeterProvider]; use
// [DefaultMetrics] to record against the global provider. Every Record*
// helper is a no-op on a nil *Metrics.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all soundsys metrics.
const meterName = "github.com/ik5/soundsys"

// Metrics holds the instruments. The underlying OTel types synchronise
// themselves.
type Metrics struct {
	// SoundsLoaded counts successful decode+upload pairs. Attribute: driver.
	SoundsLoaded metric.Int64Counter

	// LoadFailures counts failed loads. Attributes: driver, reason.
	LoadFailures metric.Int64Counter

	// LinesAcquired and LinesReleased count backend lines by kind. Their
	// difference is the number of live lines.
	LinesAcquired metric.Int64Counter
	LinesReleased metric.Int64Counter

	// CapabilityLost counts lines opened without a gain or pan control.
	CapabilityLost metric.Int64Counter

	// SourcesDropped counts sources discarded while copying sources.
	SourcesDropped metric.Int64Counter

	// BoundSources is the number of sources currently holding a channel.
	BoundSources metric.Int64UpDownCounter
}

// NewMetrics builds every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.SoundsLoaded, err = m.Int64Counter("soundsys.sounds.loaded",
		metric.WithDescription("Sounds decoded and uploaded to the backend."),
	); err != nil {
		return nil, err
	}
	if met.LoadFailures, err = m.Int64Counter("soundsys.sounds.load_failures",
		metric.WithDescription("Sound loads that left no cache entry."),
	); err != nil {
		return nil, err
	}
	if met.LinesAcquired, err = m.Int64Counter("soundsys.lines.acquired",
		metric.WithDescription("Backend lines opened by channels."),
	); err != nil {
		return nil, err
	}
	if met.LinesReleased, err = m.Int64Counter("soundsys.lines.released",
		metric.WithDescription("Backend lines closed by channels."),
	); err != nil {
		return nil, err
	}
	if met.CapabilityLost, err = m.Int64Counter("soundsys.capability.lost",
		metric.WithDescription("Lines opened without an optional control."),
	); err != nil {
		return nil, err
	}
	if met.SourcesDropped, err = m.Int64Counter("soundsys.sources.dropped",
		metric.WithDescription("Sources dropped because their buffer did not resolve."),
	); err != nil {
		return nil, err
	}
	if met.BoundSources, err = m.Int64UpDownCounter("soundsys.sources.bound",
		metric.WithDescription("Sources currently bound to a channel."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns instruments on [otel.GetMeterProvider], created on
// first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func (m *Metrics) RecordSoundLoaded(ctx context.Context, driver string) {
	if m == nil {
		return
	}
	m.SoundsLoaded.Add(ctx, 1, metric.WithAttributes(attribute.String("driver", driver)))
}

func (m *Metrics) RecordLoadFailure(ctx context.Context, driver, reason string) {
	if m == nil {
		return
	}
	m.LoadFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("driver", driver),
		attribute.String("reason", reason),
	))
}

func (m *Metrics) RecordLineAcquired(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.LinesAcquired.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordLineReleased(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.LinesReleased.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordCapabilityLost(ctx context.Context, control string) {
	if m == nil {
		return
	}
	m.CapabilityLost.Add(ctx, 1, metric.WithAttributes(attribute.String("control", control)))
}

func (m *Metrics) RecordSourcesDropped(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SourcesDropped.Add(ctx, int64(n))
}

// AddBoundSources moves the bound-sources gauge by delta.
func (m *Metrics) AddBoundSources(ctx context.Context, delta int) {
	if m == nil || delta == 0 {
		return
	}
	m.BoundSources.Add(ctx, int64(delta))
}
