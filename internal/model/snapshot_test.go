package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSnapshot_Dates(t *testing.T) {
	snap := Snapshot{
		Release: day("2025-10-19"),
		Rows: []Row{
			{Date: day("2025-10-18"), Region: "Vermont", Admissions: 80},
			{Date: day("2025-10-04"), Region: "Vermont", Admissions: 110},
			{Date: day("2025-10-11"), Region: "Vermont", Admissions: 95},
			{Date: day("2025-10-11"), Region: "Maine", Admissions: 30},
		},
	}

	dates := snap.Dates()
	require.Len(t, dates, 3)
	assert.True(t, dates[0].Equal(day("2025-10-04")))
	assert.True(t, dates[2].Equal(day("2025-10-18")))

	assert.True(t, snap.LatestDate().Equal(day("2025-10-18")))

	second, ok := snap.SecondLatestDate()
	require.True(t, ok)
	assert.True(t, second.Equal(day("2025-10-11")))

	rows := snap.AtDate(day("2025-10-11"))
	require.Len(t, rows, 2)
	assert.Equal(t, 95.0, rows["Vermont"].Admissions)
	assert.Equal(t, 30.0, rows["Maine"].Admissions)
}

func TestSnapshot_SecondLatestDate_SingleWeek(t *testing.T) {
	snap := Snapshot{Rows: []Row{{Date: day("2025-10-04"), Region: "Vermont"}}}

	_, ok := snap.SecondLatestDate()
	assert.False(t, ok)
}

func TestSnapshot_Empty(t *testing.T) {
	var snap Snapshot
	assert.True(t, snap.LatestDate().IsZero())
	assert.Empty(t, snap.Dates())
}

func TestEvidenceVector_N(t *testing.T) {
	v := EvidenceVector{Z0: 270, Z1: 15, Z2: 15}
	assert.Equal(t, 300.0, v.N())
}
