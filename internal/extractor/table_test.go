package extractor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammeet/schedulesync/internal/extractor"
)

func TestParseTablesBasicRow(t *testing.T) {
	html := `
	<table>
		<thead><tr><th>Date</th><th>Time</th><th>Opponent</th><th>Location</th></tr></thead>
		<tbody>
			<tr><td>3/1/2025</td><td>7:00 PM</td><td>Rival High</td><td>Home Gym</td></tr>
		</tbody>
	</table>`

	parsed, err := extractor.ParseTables(html)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "Rival High", parsed[0].Title)
	require.NotNil(t, parsed[0].Location)
	assert.Equal(t, "Home Gym", *parsed[0].Location)
	assert.Nil(t, parsed[0].RowIndex)
	assert.Equal(t, 19, parsed[0].StartAt.Hour())
}

func TestParseTablesWithRowIndexSetsRowIndex(t *testing.T) {
	html := `
	<table>
		<thead><tr><th>Date</th><th>Time</th><th>Opponent</th><th>Location</th></tr></thead>
		<tbody>
			<tr><td>3/1/2025</td><td>7:00 PM</td><td>Rival High</td><td>Home Gym</td></tr>
			<tr><td>3/2/2025</td><td>7:00 PM</td><td>Other High</td><td>Away Gym</td></tr>
		</tbody>
	</table>`

	parsed, err := extractor.ParseTablesWithRowIndex(html)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	require.NotNil(t, parsed[0].RowIndex)
	require.NotNil(t, parsed[1].RowIndex)
	assert.Equal(t, 0, *parsed[0].RowIndex)
	assert.Equal(t, 1, *parsed[1].RowIndex)
}

func TestParseTablesFallsBackToSportTitle(t *testing.T) {
	html := `
	<table>
		<thead><tr><th>Date</th><th>Gender</th><th>Sport</th><th>Away</th><th>Home</th></tr></thead>
		<tbody>
			<tr><td>3/2/2025</td><td>Boys</td><td>Soccer</td><td>Visitors</td><td>Home Team</td></tr>
		</tbody>
	</table>`

	parsed, err := extractor.ParseTables(html)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "Boys Soccer - Visitors vs Home Team", parsed[0].Title)
}

func TestParseTablesSkipsTableWithoutDateColumn(t *testing.T) {
	html := `<table><thead><tr><th>Name</th></tr></thead><tbody><tr><td>x</td></tr></tbody></table>`
	parsed, err := extractor.ParseTables(html)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}
