package accum

import (
	"github.com/brimdata/thetasketch/theta"
	"go.uber.org/zap"
)

// DeserializeSafe decodes b, which may be a serialized accumulator or a bare
// theta sketch image.  It never fails: corrupt or truncated input is logged
// and replaced by an empty accumulator so that one bad row cannot fail an
// ingestion batch.  Stored column values are decoded with Unmarshal instead.
func DeserializeSafe(cfg theta.Config, b []byte, logger *zap.Logger) *Accumulator {
	acc, err := deserialize(cfg, b)
	if err != nil {
		if logger == nil {
			logger = zap.NewNop()
		}
		logger.Warn("replacing malformed theta sketch with an empty sketch",
			zap.Int("size", len(b)),
			zap.Error(err),
		)
		return New(cfg)
	}
	return acc
}
