package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
)

func newReportBoard(t *testing.T) (*Board, *ReportUsecase) {
	t.Helper()
	namer := staticNamer{"p1": "Morning Show", "": "Default"}
	b := NewBoard(namer)
	b.AddConnection(domain.Connection{Platform: domain.PlatformFacebook})
	b.AddConnection(domain.Connection{Platform: domain.PlatformYouTube})

	day1 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	promote := func(at time.Time, msg domain.Message) {
		stored, err := b.AddMessage(msg)
		require.NoError(t, err)
		b.now = func() time.Time { return at }
		b.Promote(stored)
	}
	promote(day1, domain.Message{ID: "a", Platform: domain.PlatformFacebook, Sender: "Ann", Content: "hello", ProgramID: "p1"})
	promote(day1, domain.Message{ID: "b", Platform: domain.PlatformYouTube, Sender: "Bob", Content: "praise"})
	promote(day2, domain.Message{ID: "c", Platform: domain.PlatformYouTube, Sender: "Cat", Content: "hello again", ProgramID: "p1"})

	return b, NewReportUsecase(b, namer, time.UTC)
}

func TestReport_HistoryFilters(t *testing.T) {
	_, r := newReportBoard(t)

	all, err := r.History(ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byDate, err := r.History(ReportFilter{Date: "2026-05-01"})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	byProgram, err := r.History(ReportFilter{ProgramName: "Morning Show"})
	require.NoError(t, err)
	assert.Len(t, byProgram, 2)

	combined, err := r.History(ReportFilter{Platform: domain.PlatformYouTube, Search: "HELLO"})
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Equal(t, "c", combined[0].MessageID)

	_, err = r.History(ReportFilter{Date: "05/01/2026"})
	assert.True(t, domain.IsValidation(err))
}

func TestReport_Stats(t *testing.T) {
	_, r := newReportBoard(t)

	stats, err := r.Stats(ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, []domain.PlatformStats{
		{Platform: domain.PlatformFacebook, Count: 1},
		{Platform: domain.PlatformYouTube, Count: 2},
	}, stats)

	byProgram := r.StatsByProgram("p1")
	assert.Equal(t, []domain.PlatformStats{
		{Platform: domain.PlatformFacebook, Count: 1},
		{Platform: domain.PlatformYouTube, Count: 1},
	}, byProgram)
	assert.Empty(t, r.StatsByProgram("nope"))
}

func TestReport_Dates(t *testing.T) {
	_, r := newReportBoard(t)
	assert.Equal(t, []string{"2026-05-02", "2026-05-01"}, r.Dates())
}

func TestReport_Received(t *testing.T) {
	b, r := newReportBoard(t)
	_, err := b.EditContent("b", "edited words")
	require.NoError(t, err)

	rows, err := r.Received(ReportFilter{Search: "edited"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].ID)
	assert.Equal(t, "Default", rows[0].ProgramName)

	rows, err = r.Received(ReportFilter{ProgramName: "Morning Show"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
