package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunBrowse starts the interactive variable browser.
// It shows the browse screen, then transitions to summary.
// Returns the session carrying the user's marks.
func RunBrowse(session *BrowseSession) (*BrowseSession, error) {
	p := tea.NewProgram(NewBrowseModel(session), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	final := finalModel.(BrowseModel)

	sp := tea.NewProgram(NewSummaryModel(final.session), tea.WithAltScreen())
	if _, err := sp.Run(); err != nil {
		return nil, fmt.Errorf("summary error: %w", err)
	}

	return final.session, nil
}

// MarksReport is the JSON structure written for browse decisions
type MarksReport struct {
	Timestamp string             `json:"timestamp"`
	Items     []MarksReportItem  `json:"items"`
	Summary   MarksReportSummary `json:"summary"`
}

// MarksReportItem is a single marked variable in the report
type MarksReportItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Collection string `json:"collection"`
	TotalUsage int    `json:"total_usage"`
	Mark       string `json:"mark"`
}

// MarksReportSummary holds the per-mark totals
type MarksReportSummary struct {
	Total     int `json:"total"`
	Keep      int `json:"keep"`
	Deprecate int `json:"deprecate"`
	Unmarked  int `json:"unmarked"`
}

// BuildMarksReport collects the marked items of a session. Unmarked items
// only count towards the summary.
func BuildMarksReport(session *BrowseSession) MarksReport {
	counts := session.Counts()
	report := MarksReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Items:     make([]MarksReportItem, 0, len(session.Items)-counts[MarkNone]),
		Summary: MarksReportSummary{
			Total:     len(session.Items),
			Keep:      counts[MarkKeep],
			Deprecate: counts[MarkDeprecate],
			Unmarked:  counts[MarkNone],
		},
	}
	for _, item := range session.Items {
		if item.Mark == MarkNone {
			continue
		}
		report.Items = append(report.Items, MarksReportItem{
			ID:         item.Variable.ID,
			Name:       item.Variable.Name,
			Collection: item.Variable.Collection,
			TotalUsage: item.Variable.TotalUsage,
			Mark:       item.Mark.String(),
		})
	}
	return report
}

// SaveMarks writes a JSON report of the browse decisions.
func SaveMarks(session *BrowseSession, outputPath string) error {
	data, err := json.MarshalIndent(BuildMarksReport(session), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal marks: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write marks: %w", err)
	}

	return nil
}
