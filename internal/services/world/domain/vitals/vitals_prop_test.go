package vitals

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestAdvanceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	properties.Property("value stays inside [0, max]", prop.ForAll(
		func(value float64, elapsedSec int64, rate, multiplier float64) bool {
			snap := Snapshot{Value: value, UpdatedAt: base}
			next, _ := Advance(snap, base.Add(time.Duration(elapsedSec)*time.Second), rate, multiplier, 100)
			return next.Value >= 0 && next.Value <= 100
		},
		gen.Float64Range(0, 100),
		gen.Int64Range(0, 7*24*3600),
		gen.Float64Range(0, 10),
		gen.Float64Range(0, 5),
	))

	properties.Property("value never decreases", prop.ForAll(
		func(value float64, elapsedSec int64, rate, multiplier float64) bool {
			snap := Snapshot{Value: value, UpdatedAt: base}
			next, _ := Advance(snap, base.Add(time.Duration(elapsedSec)*time.Second), rate, multiplier, 100)
			return next.Value >= snap.Value
		},
		gen.Float64Range(0, 100),
		gen.Int64Range(0, 7*24*3600),
		gen.Float64Range(0, 10),
		gen.Float64Range(0, 5),
	))

	properties.Property("timestamp never moves backward", prop.ForAll(
		func(value float64, elapsedSec int64, rate, multiplier float64) bool {
			snap := Snapshot{Value: value, UpdatedAt: base}
			next, _ := Advance(snap, base.Add(time.Duration(elapsedSec)*time.Second), rate, multiplier, 100)
			return !next.UpdatedAt.Before(snap.UpdatedAt)
		},
		gen.Float64Range(0, 100),
		gen.Int64Range(0, 7*24*3600),
		gen.Float64Range(0, 10),
		gen.Float64Range(0, 5),
	))

	properties.Property("reapplying at the same instant is a no-op", prop.ForAll(
		func(value float64, elapsedSec int64, rate, multiplier float64) bool {
			now := base.Add(time.Duration(elapsedSec) * time.Second)
			snap := Snapshot{Value: value, UpdatedAt: base}
			first, _ := Advance(snap, now, rate, multiplier, 100)
			second, changed := Advance(first, now, rate, multiplier, 100)
			return second == first && !changed
		},
		gen.Float64Range(0, 100),
		gen.Int64Range(60, 7*24*3600),
		gen.Float64Range(0.1, 10),
		gen.Float64Range(0.1, 5),
	))

	properties.TestingRun(t)
}
