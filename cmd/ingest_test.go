package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetIngestFlags() {
	ingestFrom, ingestTo, ingestToday = "", "", false
}

func TestIngestRangeSingleDay(t *testing.T) {
	t.Cleanup(resetIngestFlags)
	ingestFrom = "2025-05-19"

	from, to, err := ingestRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, from, to)
}

func TestIngestRangeSpan(t *testing.T) {
	t.Cleanup(resetIngestFlags)
	ingestFrom = "2025-05-01"
	ingestTo = "2025-05-31"

	from, to, err := ingestRange()
	require.NoError(t, err)
	assert.Equal(t, 30, int(to.Sub(from).Hours()/24))
}

func TestIngestRangeToday(t *testing.T) {
	t.Cleanup(resetIngestFlags)
	ingestToday = true

	from, to, err := ingestRange()
	require.NoError(t, err)
	assert.Equal(t, from, to)
	assert.Equal(t, time.Now().UTC().Truncate(24*time.Hour), from)
}

func TestIngestRangeErrors(t *testing.T) {
	t.Cleanup(resetIngestFlags)

	_, _, err := ingestRange()
	require.Error(t, err)

	ingestFrom = "19/05/2025"
	_, _, err = ingestRange()
	require.Error(t, err)

	ingestFrom = "2025-05-19"
	ingestTo = "2025-05-01"
	_, _, err = ingestRange()
	require.Error(t, err)
}
