package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"edustack.in/resource-bot/internal/features/panel"
	"edustack.in/resource-bot/internal/features/stats"
)

func TestSummaryTextFormatsThousands(t *testing.T) {
	text := summaryText(panel.Render{
		State: panel.StateStats,
		Summary: stats.Summary{
			TotalUsers:        2350,
			ActiveSubscribers: 12,
			VerifiedPayments:  1040,
			PendingRequests:   3,
			TotalResources:    1500,
			SubjectCount:      14,
			MostAccessed:      "CSE211 — Data Structures notes",
		},
	})

	assert.Contains(t, text, "Users: 2 350")
	assert.Contains(t, text, "Verified payments: 1 040")
	assert.Contains(t, text, "Materials: 1 500 in 14 subjects")
	assert.Contains(t, text, "Most accessed: CSE211")
}

func TestSummaryTextOmitsMostAccessedWhenEmpty(t *testing.T) {
	text := summaryText(panel.Render{State: panel.StateStats})
	assert.NotContains(t, text, "Most accessed")
}
