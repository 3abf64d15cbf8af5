package view

import (
	"fmt"

	"github.com/claude/circuit/internal/models"
)

// HistoryRow is one line of the completed-workouts table.
type HistoryRow struct {
	Day           string
	Date          string
	Title         string
	ScheduledDate string
	CompletedAt   string
}

// HistoryView is the completed-workouts page.
type HistoryView struct {
	Count string
	Rows  []HistoryRow
	Empty string
}

// History lists completed entries newest first. Missing scheduled and
// completion times show as "-".
func History(entries []models.CompletedEntry) HistoryView {
	n := len(entries)
	v := HistoryView{Count: fmt.Sprintf("%d completed workout%s", n, plural(n))}
	if n == 0 {
		v.Empty = "No completed workouts yet."
		return v
	}
	for i := n - 1; i >= 0; i-- {
		e := entries[i]
		v.Rows = append(v.Rows, HistoryRow{
			Day:           e.Day,
			Date:          e.Date,
			Title:         e.Title,
			ScheduledDate: orDash(e.ScheduledDate),
			CompletedAt:   orDash(e.CompletedAt),
		})
	}
	return v
}
