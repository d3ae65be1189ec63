package ingest

import (
	"errors"
	"fmt"

	"github.com/brimdata/thetasketch/accum"
	"github.com/brimdata/thetasketch/theta"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Extractor builds an accumulator from one field of each row.  It is safe
// for concurrent use.
type Extractor struct {
	cfg     theta.Config
	logger  *zap.Logger
	metrics *metrics
}

// NewExtractor returns an Extractor for sketches built with cfg.  A nil
// logger discards diagnostics and a nil reg leaves the row counters
// unregistered.
func NewExtractor(cfg theta.Config, logger *zap.Logger, reg prometheus.Registerer) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:     cfg,
		logger:  logger.Named("thetasketch"),
		metrics: m,
	}, nil
}

func (e *Extractor) Config() theta.Config {
	return e.cfg
}

// Extract returns the accumulator for field in row, or nil if the field is
// null.  Malformed serialized content yields an empty accumulator and no
// error.  An error is returned only when the raw value cannot be converted
// at all, in which case it wraps *accum.UnsupportedShapeError, or when a
// sketch or accumulator was built with another seed, in which case it wraps
// accum.ErrSeedMismatch.
func (e *Extractor) Extract(row Row, field string) (*accum.Accumulator, error) {
	acc, err := accum.FromRaw(e.cfg, row.Raw(field))
	switch {
	case err == nil && acc == nil:
		e.metrics.null.Inc()
		return nil, nil
	case err == nil:
		e.metrics.extracted.Inc()
		return acc, nil
	case errors.Is(err, accum.ErrMalformed):
		e.metrics.malformed.Inc()
		e.logger.Warn("replacing malformed theta sketch with an empty sketch",
			zap.String("field", field),
			zap.Error(err),
		)
		return acc, nil
	default:
		e.metrics.unsupported.Inc()
		return nil, fmt.Errorf("theta sketch field %q: %w", field, err)
	}
}

// ExtractAll extracts field from every row and combines the results.  It
// returns nil if field is null in every row.
func (e *Extractor) ExtractAll(rows []Row, field string) (*accum.Accumulator, error) {
	var out *accum.Accumulator
	for _, row := range rows {
		acc, err := e.Extract(row, field)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			continue
		}
		if out, err = accum.Merge(out, acc); err != nil {
			return nil, fmt.Errorf("theta sketch field %q: %w", field, err)
		}
	}
	return out, nil
}
