package engine

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// Built-in reducers. All of them skip NULL values, like their SQL
// counterparts COUNT, SUM, AVG, MIN, MAX and STDEV.

// Count returns the number of non-NULL values.
func Count(values []storage.Value) (storage.Value, error) {
	return storage.Int(int64(len(nonNull(values)))), nil
}

// Sum stays INT while every value is INT. An empty input sums to 0.
func Sum(values []storage.Value) (storage.Value, error) {
	var (
		isum    int64
		fsum    float64
		isFloat bool
	)
	for _, v := range nonNull(values) {
		switch v.Kind() {
		case storage.IntKind:
			i, _ := v.AsInt()
			next, ok := addInt(isum, i)
			if !ok {
				return storage.Value{}, fmt.Errorf("%w: SUM overflows INT", ErrTypeMismatch)
			}
			isum = next
		case storage.FloatKind:
			f, _ := v.AsFloat()
			fsum += f
			isFloat = true
		default:
			return storage.Value{}, fmt.Errorf("%w: SUM of %s", ErrTypeMismatch, v.Kind())
		}
	}
	if isFloat {
		return storage.Float(fsum + float64(isum)), nil
	}
	return storage.Int(isum), nil
}

// Mean is the arithmetic mean; NULL for an empty input.
func Mean(values []storage.Value) (storage.Value, error) {
	fs, err := floats(values, "AVG")
	if err != nil || len(fs) == 0 {
		return storage.Null(), err
	}
	return storage.Float(lo.Sum(fs) / float64(len(fs))), nil
}

// Stdev is the sample standard deviation; NULL for fewer than two values.
func Stdev(values []storage.Value) (storage.Value, error) {
	fs, err := floats(values, "STDEV")
	if err != nil || len(fs) < 2 {
		return storage.Null(), err
	}
	mean := lo.Sum(fs) / float64(len(fs))
	var ss float64
	for _, f := range fs {
		ss += (f - mean) * (f - mean)
	}
	return storage.Float(math.Sqrt(ss / float64(len(fs)-1))), nil
}

func Min(values []storage.Value) (storage.Value, error) { return extreme(values, -1) }
func Max(values []storage.Value) (storage.Value, error) { return extreme(values, 1) }

func extreme(values []storage.Value, sign int) (storage.Value, error) {
	best := storage.Null()
	for _, v := range nonNull(values) {
		if best.IsNull() {
			best = v
			continue
		}
		cmp, err := v.Compare(best)
		if err != nil {
			return storage.Value{}, err
		}
		if cmp*sign > 0 {
			best = v
		}
	}
	return best, nil
}

// Distinct reduces only the first occurrence of each distinct value, as in
// COUNT(DISTINCT x).
func Distinct(fn Reducer) Reducer {
	return func(values []storage.Value) (storage.Value, error) {
		return fn(lo.UniqBy(values, storage.Value.Key))
	}
}

func nonNull(values []storage.Value) []storage.Value {
	return lo.Reject(values, func(v storage.Value, _ int) bool { return v.IsNull() })
}

func floats(values []storage.Value, fn string) ([]float64, error) {
	out := make([]float64, 0, len(values))
	for _, v := range nonNull(values) {
		f, ok := v.AsFloat()
		if !ok {
			return nil, fmt.Errorf("%w: %s of %s", ErrTypeMismatch, fn, v.Kind())
		}
		out = append(out, f)
	}
	return out, nil
}
