package heading

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walk-navigation/internal/geo"
	"walk-navigation/internal/position"
)

func sample(ts int64, lat, lng float64) position.Sample {
	return position.Sample{Coordinate: geo.Coordinate{Lat: lat, Lng: lng}, TimestampMs: ts}
}

func withHeading(s position.Sample, deg float64) position.Sample {
	s.Heading = &deg
	return s
}

func TestFirstSampleWithoutHeadingIsUnknown(t *testing.T) {
	e := NewEstimator(1)
	_, ok := e.Update(sample(0, 34.69, 135.19))
	assert.False(t, ok)
}

func TestReportedHeadingWins(t *testing.T) {
	e := NewEstimator(1)
	st, ok := e.Update(withHeading(sample(0, 34.69, 135.19), -30))
	require.True(t, ok)
	assert.Equal(t, SourceReported, st.Source)
	assert.InDelta(t, 330, st.Degrees, 1e-9)

	// Moving east with a reported heading still uses the reported value.
	st, _ = e.Update(withHeading(sample(1000, 34.69, 135.1901), 12))
	assert.Equal(t, State{Degrees: 12, Source: SourceReported}, st)
}

func TestDerivedHeading(t *testing.T) {
	e := NewEstimator(1)
	e.Update(sample(0, 34.69, 135.19))

	st, ok := e.Update(sample(1000, 34.6901, 135.19))
	require.True(t, ok)
	assert.Equal(t, SourceDerived, st.Source)
	assert.InDelta(t, 0, st.Degrees, 0.01)

	st, _ = e.Update(sample(2000, 34.6901, 135.1902))
	assert.InDelta(t, 90, st.Degrees, 0.01)
}

func TestStationaryKeepsPreviousHeading(t *testing.T) {
	e := NewEstimator(1)
	e.Update(sample(0, 34.69, 135.19))
	prev, _ := e.Update(sample(1000, 34.6901, 135.19))

	// ~0.1m of jitter would otherwise produce an arbitrary bearing.
	st, ok := e.Update(sample(2000, 34.690101, 135.190001))
	require.True(t, ok)
	assert.Equal(t, prev, st)
}

func TestStationaryWithoutPriorHeading(t *testing.T) {
	e := NewEstimator(1)
	e.Update(sample(0, 34.69, 135.19))
	_, ok := e.Update(sample(1000, 34.690000001, 135.19))
	assert.False(t, ok)
}

func TestSlowWalkAccumulatesDisplacement(t *testing.T) {
	e := NewEstimator(1)
	e.Update(sample(0, 34.69, 135.19))

	// 0.4m steps north: each pair is below epsilon, the anchor stays put.
	var st State
	var ok bool
	for i := 1; i <= 4; i++ {
		st, ok = e.Update(sample(int64(i)*1000, 34.69+float64(i)*0.0000036, 135.19))
	}
	require.True(t, ok)
	assert.InDelta(t, 0, st.Degrees, 0.5)
}

func TestHeadingAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := NewEstimator(1)

	for i := 0; i < 2000; i++ {
		s := sample(int64(i)*500, 34.6+rng.Float64()*0.1, 135.1+rng.Float64()*0.2)
		if rng.Intn(3) == 0 {
			s = withHeading(s, (rng.Float64()-0.5)*2000)
		}
		st, ok := e.Update(s)
		if !ok {
			continue
		}
		assert.GreaterOrEqual(t, st.Degrees, 0.0)
		assert.Less(t, st.Degrees, 360.0)
	}
}
