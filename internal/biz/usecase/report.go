package usecase

import (
	"sort"
	"strings"
	"time"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
)

const reportDateLayout = "2006-01-02"

// ReportFilter narrows report rows; zero fields match everything
type ReportFilter struct {
	Date        string // YYYY-MM-DD in the report location
	ProgramName string
	Platform    domain.Platform
	Search      string
}

// ReceivedMessage is a stored message with its resolved program name
type ReceivedMessage struct {
	domain.Message
	ProgramName string `json:"program_name,omitempty"`
}

// ReportUsecase builds the displayed/received reports
type ReportUsecase struct {
	board    *Board
	programs ProgramNamer
	loc      *time.Location
}

// NewReportUsecase creates a report usecase; dates are bucketed in loc (local time when nil)
func NewReportUsecase(board *Board, programs ProgramNamer, loc *time.Location) *ReportUsecase {
	if loc == nil {
		loc = time.Local
	}
	return &ReportUsecase{board: board, programs: programs, loc: loc}
}

func (uc *ReportUsecase) validate(f ReportFilter) error {
	if f.Date == "" {
		return nil
	}
	if _, err := time.ParseInLocation(reportDateLayout, f.Date, uc.loc); err != nil {
		return domain.NewValidationError("date", "expected YYYY-MM-DD")
	}
	return nil
}

func (uc *ReportUsecase) matches(f ReportFilter, at time.Time, programName string, platform domain.Platform, sender, content string) bool {
	if f.Date != "" && at.In(uc.loc).Format(reportDateLayout) != f.Date {
		return false
	}
	if f.ProgramName != "" && programName != f.ProgramName {
		return false
	}
	if f.Platform != "" && platform != f.Platform {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(sender), term) && !strings.Contains(strings.ToLower(content), term) {
			return false
		}
	}
	return true
}

// History returns displayed messages matching f, newest first
func (uc *ReportUsecase) History(f ReportFilter) ([]domain.HistoryEntry, error) {
	if err := uc.validate(f); err != nil {
		return nil, err
	}
	var result []domain.HistoryEntry
	for _, h := range uc.board.History() {
		content := h.Content
		if h.EditedContent != "" {
			content = h.EditedContent
		}
		if uc.matches(f, h.DisplayTimestamp, h.ProgramName, h.Platform, h.Sender, content) {
			result = append(result, h)
		}
	}
	return result, nil
}

// Received returns stored messages matching f, newest first
func (uc *ReportUsecase) Received(f ReportFilter) ([]ReceivedMessage, error) {
	if err := uc.validate(f); err != nil {
		return nil, err
	}
	var result []ReceivedMessage
	for _, m := range uc.board.Messages(MessageFilter{Platform: f.Platform}) {
		name := ""
		if uc.programs != nil {
			name = uc.programs.ProgramName(m.ProgramID)
		}
		if uc.matches(f, m.Timestamp, name, m.Platform, m.Sender, m.DisplayContent()) {
			result = append(result, ReceivedMessage{Message: m, ProgramName: name})
		}
	}
	return result, nil
}

// Stats counts displayed messages per platform for entries matching f
func (uc *ReportUsecase) Stats(f ReportFilter) ([]domain.PlatformStats, error) {
	entries, err := uc.History(f)
	if err != nil {
		return nil, err
	}
	return countByPlatform(entries), nil
}

// StatsByProgram counts displayed messages per platform for one program id
func (uc *ReportUsecase) StatsByProgram(programID string) []domain.PlatformStats {
	var entries []domain.HistoryEntry
	for _, h := range uc.board.History() {
		if h.ProgramID == programID {
			entries = append(entries, h)
		}
	}
	return countByPlatform(entries)
}

// Dates lists distinct display dates, newest first
func (uc *ReportUsecase) Dates() []string {
	seen := make(map[string]bool)
	var dates []string
	for _, h := range uc.board.History() {
		d := h.DisplayTimestamp.In(uc.loc).Format(reportDateLayout)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

func countByPlatform(entries []domain.HistoryEntry) []domain.PlatformStats {
	counts := make(map[domain.Platform]int)
	for _, h := range entries {
		counts[h.Platform]++
	}
	result := make([]domain.PlatformStats, 0, len(counts))
	for p, c := range counts {
		result = append(result, domain.PlatformStats{Platform: p, Count: c})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Platform < result[j].Platform })
	return result
}
