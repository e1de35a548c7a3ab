package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bentolab/nhsn-backfill/internal/model"
)

func TestAggregate_EvidenceVector(t *testing.T) {
	records, err := Align(scenarioSnapshots("Vermont", "50"), nil)
	require.NoError(t, err)

	ev, err := Aggregate(records, 3)
	require.NoError(t, err)

	vec := ev.Vectors["Vermont"]
	assert.Equal(t, 270.0, vec.Z0)
	assert.Equal(t, 15.0, vec.Z1)
	assert.Equal(t, 15.0, vec.Z2)
	assert.Equal(t, 285.0, vec.Y1)
	assert.Equal(t, 300.0, vec.Y2)
	assert.Equal(t, 300.0, vec.N())

	assert.Equal(t, "50", ev.FIPS["Vermont"])
	assert.True(t, ev.Window.Start.Equal(week(0)))
	assert.True(t, ev.Window.End.Equal(week(2)))
	assert.Equal(t, 3, ev.Records)
}

func TestAggregate_RoundTrip(t *testing.T) {
	// For backfill-only inputs the increments must sum back to the final
	// lag-2 totals.
	records, err := Align(scenarioSnapshots("Vermont", "50"), nil)
	require.NoError(t, err)

	ev, err := Aggregate(records, 0)
	require.NoError(t, err)

	var lag2Total float64
	for _, rec := range records {
		lag2Total += rec.Regions["Vermont"].Lag2
	}
	vec := ev.Vectors["Vermont"]
	assert.InDelta(t, lag2Total, vec.Z0+vec.Z1+vec.Z2, 1e-9)
}

func TestAggregate_TrailingWindow(t *testing.T) {
	records, err := Align(scenarioSnapshots("Vermont", "50"), nil)
	require.NoError(t, err)

	// Window of 2 keeps only the last two records: Z0 = 90+80 = 170.
	ev, err := Aggregate(records, 2)
	require.NoError(t, err)
	assert.Equal(t, 170.0, ev.Vectors["Vermont"].Z0)
	assert.True(t, ev.Window.Start.Equal(week(1)))
}

func TestAggregate_WindowTooLong(t *testing.T) {
	records, err := Align(scenarioSnapshots("Vermont", "50"), nil)
	require.NoError(t, err)

	_, err = Aggregate(records, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only 3 aligned records")
}

func TestAggregate_NoRecords(t *testing.T) {
	_, err := Aggregate(nil, 0)
	require.Error(t, err)
}

func TestAggregate_NegativeIncrementsKept(t *testing.T) {
	// A retraction between lag 0 and lag 1 must survive aggregation
	// unclamped.
	rec := model.AlignedRecord{
		FocalDate: week(0),
		Regions:   map[string]model.LagTriple{"Vermont": {Lag0: 100, Lag1: 95, Lag2: 97}},
		FIPS:      map[string]string{"Vermont": "50"},
	}

	ev, err := Aggregate([]model.AlignedRecord{rec}, 1)
	require.NoError(t, err)
	vec := ev.Vectors["Vermont"]
	assert.Equal(t, -5.0, vec.Z1)
	assert.Equal(t, 2.0, vec.Z2)
}

func TestAggregate_OmitsAbsentRegions(t *testing.T) {
	records, err := Align(scenarioSnapshots("Vermont", "50"), nil)
	require.NoError(t, err)

	ev, err := Aggregate(records, 0)
	require.NoError(t, err)
	assert.Len(t, ev.Vectors, 1)
}
