// Package metrics exports decoder and round trip statistics to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patte/go-framesignal"
)

const namespace = "framesignal"

// Rejection reasons
const (
	ReasonBounds   = "bounds"
	ReasonEmpty    = "empty"
	ReasonChecksum = "checksum"
	ReasonOther    = "other"
)

// Round trip results
const (
	ResultOK            = "ok"
	ResultDecodeFailure = "decode_failure"
	ResultChannelError  = "channel_error"
	ResultRejected      = "rejected"
)

// Metrics holds all collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	Candidates  prometheus.Counter
	Rejections  *prometheus.CounterVec
	Corrections prometheus.Counter
	Decoded     prometheus.Counter

	RoundTrips    *prometheus.CounterVec
	ReceivedBits  prometheus.Histogram
	Efficiency    prometheus.Histogram
	AirtimeSecond prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg gets a
// fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Candidates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_candidates_total",
			Help:      "Preamble matches examined by the decoder",
		}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_rejections_total",
			Help:      "Candidates rejected, by reason",
		}, []string{"reason"}),
		Corrections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fec_corrections_total",
			Help:      "Hamming codewords corrected",
		}),
		Decoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_decoded_total",
			Help:      "Packages accepted by the decoder",
		}),
		RoundTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_trips_total",
			Help:      "Round trip attempts, by result",
		}, []string{"result"}),
		ReceivedBits: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "received_bits",
			Help:      "Length of received frame sequences",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 12), // 64 to 128k bits
		}),
		Efficiency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_trip_efficiency",
			Help:      "Payload bits divided by received bits",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		AirtimeSecond: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "airtime_seconds",
			Help:      "Nominal duration of transmitted frames",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
		}),
	}
}

// Observe records one decoder event. Pass it as Config.OnEvent.
func (m *Metrics) Observe(e framesignal.Event) {
	switch e.Kind {
	case framesignal.EventCandidate:
		m.Candidates.Inc()
	case framesignal.EventRejected:
		m.Rejections.WithLabelValues(Reason(e.Err)).Inc()
	case framesignal.EventCorrected:
		m.Corrections.Add(float64(e.Corrected))
	case framesignal.EventDecoded:
		m.Decoded.Inc()
	}
}

// ObserveRoundTrip implements framesignal.RoundTripObserver.
func (m *Metrics) ObserveRoundTrip(result *framesignal.RoundTripResult, err error) {
	m.RoundTrips.WithLabelValues(Result(err)).Inc()
	if result == nil {
		return
	}
	if result.Airtime > 0 {
		m.AirtimeSecond.Observe(result.Airtime.Seconds())
	}
	if len(result.Received) > 0 {
		m.ReceivedBits.Observe(float64(len(result.Received)))
	}
	if err == nil {
		m.Efficiency.Observe(result.Efficiency())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Reason maps a candidate rejection cause to a label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, framesignal.ErrChecksumMismatch):
		return ReasonChecksum
	case errors.Is(err, framesignal.ErrOutOfBounds):
		return ReasonBounds
	case errors.Is(err, framesignal.ErrEmptyPayload):
		return ReasonEmpty
	default:
		return ReasonOther
	}
}

// Result maps a round trip error to a label value.
func Result(err error) string {
	var ce *framesignal.ChannelError
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, framesignal.ErrDecodeFailure):
		return ResultDecodeFailure
	case errors.As(err, &ce):
		return ResultChannelError
	default:
		return ResultRejected
	}
}
