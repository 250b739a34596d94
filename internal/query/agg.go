package query

// Aggregation names a numeric summary over one property of a result set.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
	AggCount Aggregation = "count"
	AggTotal Aggregation = "total"
)

// Aggregate computes the summary of property key over notes. Values that do
// not coerce to a number are skipped, never an error. Count reports how many
// notes carry a non-empty value; total reports the size of the result set.
func Aggregate(notes []NoteWithProperties, key string, agg Aggregation) float64 {
	if agg == AggTotal {
		return float64(len(notes))
	}

	var (
		sum      float64
		min, max float64
		n        int
		nonEmpty int
	)
	for i := range notes {
		v := notes[i].Get(key)
		if !v.IsEmpty() {
			nonEmpty++
		}
		f, ok := v.AsNumber()
		if !ok {
			continue
		}
		if n == 0 {
			min, max = f, f
		} else {
			if f < min {
				min = f
			}
			if f > max {
				max = f
			}
		}
		sum += f
		n++
	}

	switch agg {
	case AggSum:
		return sum
	case AggAvg:
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	case AggMin:
		return min
	case AggMax:
		return max
	case AggCount:
		return float64(nonEmpty)
	}
	return 0
}
