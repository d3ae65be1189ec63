// Package ingest turns raw row fields into theta sketch accumulators at
// ingestion time.
//
// Extraction is permissive.  Bytes that claim to be a serialized sketch but
// do not decode are logged, counted, and replaced with an empty sketch so a
// single bad row does not fail the load.  The hard failures are a raw value
// whose shape cannot feed a sketch at all and a sketch built with a
// different seed.
package ingest

// Row is a single input record.  Raw returns the value of the named field,
// or nil if the field is absent or null.
type Row interface {
	Raw(name string) any
}

type MapRow map[string]any

func (m MapRow) Raw(name string) any {
	return m[name]
}
