package ingest

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ArrowRows adapts the rows of rec.  The rows reference rec's buffers and
// must not be used after rec is released.
func ArrowRows(rec arrow.Record) []Row {
	index := make(map[string]int, rec.NumCols())
	for i, f := range rec.Schema().Fields() {
		if _, ok := index[f.Name]; !ok {
			index[f.Name] = i
		}
	}
	rows := make([]Row, rec.NumRows())
	for i := range rows {
		rows[i] = &arrowRow{rec: rec, index: index, i: i}
	}
	return rows
}

type arrowRow struct {
	rec   arrow.Record
	index map[string]int
	i     int
}

func (a *arrowRow) Raw(name string) any {
	col, ok := a.index[name]
	if !ok {
		return nil
	}
	return arrowValue(a.rec.Column(col), a.i)
}

// arrowValue converts slot i of arr to a Go value the accumulator
// understands.  Lists become []any.  Types without a natural scalar form
// fall back to the array's own marshaling representation.
func arrowValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch arr := arr.(type) {
	case *array.Boolean:
		return arr.Value(i)
	case *array.Int8:
		return arr.Value(i)
	case *array.Int16:
		return arr.Value(i)
	case *array.Int32:
		return arr.Value(i)
	case *array.Int64:
		return arr.Value(i)
	case *array.Uint8:
		return arr.Value(i)
	case *array.Uint16:
		return arr.Value(i)
	case *array.Uint32:
		return arr.Value(i)
	case *array.Uint64:
		return arr.Value(i)
	case *array.Float32:
		return arr.Value(i)
	case *array.Float64:
		return arr.Value(i)
	case *array.String:
		return arr.Value(i)
	case *array.LargeString:
		return arr.Value(i)
	case *array.Binary:
		return arr.Value(i)
	case *array.LargeBinary:
		return arr.Value(i)
	case *array.FixedSizeBinary:
		return arr.Value(i)
	case *array.List:
		start, end := arr.ValueOffsets(i)
		return listValues(arr.ListValues(), int(start), int(end))
	case *array.LargeList:
		start, end := arr.ValueOffsets(i)
		return listValues(arr.ListValues(), int(start), int(end))
	case *array.Dictionary:
		return arrowValue(arr.Dictionary(), arr.GetValueIndex(i))
	default:
		return arr.GetOneForMarshal(i)
	}
}

func listValues(values arrow.Array, start, end int) []any {
	out := make([]any, 0, end-start)
	for j := start; j < end; j++ {
		out = append(out, arrowValue(values, j))
	}
	return out
}
