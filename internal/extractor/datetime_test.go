package extractor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammeet/schedulesync/internal/extractor"
)

func TestCombineDateTimeSeparateFields(t *testing.T) {
	startAt, ok := extractor.CombineDateTime("3/1/2025", "7:00 PM")
	require.True(t, ok)
	assert.Equal(t, 2025, startAt.Year())
	assert.Equal(t, 19, startAt.Hour())
}

func TestCombineDateTimeDateAlreadyHasTime(t *testing.T) {
	startAt, ok := extractor.CombineDateTime("2025-02-10T15:04:05", "")
	require.True(t, ok)
	assert.Equal(t, 15, startAt.Hour())
}

func TestCombineDateTimeDateOnly(t *testing.T) {
	startAt, ok := extractor.CombineDateTime("2025-02-10", "")
	require.True(t, ok)
	assert.Equal(t, 0, startAt.Hour())
}

func TestCombineDateTimeInvalidDropsRow(t *testing.T) {
	_, ok := extractor.CombineDateTime("not a date", "also not a time")
	assert.False(t, ok)
}
