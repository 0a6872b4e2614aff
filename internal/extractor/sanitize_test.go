package extractor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teammeet/schedulesync/internal/extractor"
)

func TestSanitizeTitleStripsStreamPrefix(t *testing.T) {
	assert.Equal(t, "Game vs Rival", extractor.SanitizeTitle("Live Stream: Game vs Rival"))
}

func TestSanitizeTitleStripsTicketSuffix(t *testing.T) {
	assert.Equal(t, "Game vs Rival", extractor.SanitizeTitle("Game vs Rival - Buy Tickets"))
}

func TestSanitizeTitleCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "Game vs Rival", extractor.SanitizeTitle("Game   vs\tRival"))
}

func TestSanitizeTitleLeavesPlainTitleAlone(t *testing.T) {
	assert.Equal(t, "Championship Final", extractor.SanitizeTitle("Championship Final"))
}
