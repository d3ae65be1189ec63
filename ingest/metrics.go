package ingest

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace       = "thetasketch"
	ingestSubsystem = "ingest"
)

// Outcomes of a single extraction.
const (
	OutcomeExtracted   = "extracted"
	OutcomeNull        = "null"
	OutcomeMalformed   = "malformed"
	OutcomeUnsupported = "unsupported"
)

type metrics struct {
	// labels: outcome: extracted,null,malformed,unsupported
	rows *prometheus.CounterVec

	extracted   prometheus.Counter
	null        prometheus.Counter
	malformed   prometheus.Counter
	unsupported prometheus.Counter
}

// newMetrics registers the row counters with reg.  Extractors that share a
// registry share the counters.  A nil reg leaves the counters unregistered.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: ingestSubsystem,
		Name:      "rows_total",
		Help:      "Number of rows seen by the theta sketch extractor, by outcome",
	}, []string{"outcome"})
	if reg != nil {
		if err := reg.Register(rows); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			rows = existing
		}
	}
	return &metrics{
		rows:        rows,
		extracted:   rows.WithLabelValues(OutcomeExtracted),
		null:        rows.WithLabelValues(OutcomeNull),
		malformed:   rows.WithLabelValues(OutcomeMalformed),
		unsupported: rows.WithLabelValues(OutcomeUnsupported),
	}, nil
}
