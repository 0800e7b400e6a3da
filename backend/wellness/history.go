package wellness

import (
	"context"
	"sort"
	"time"

	"github.com/jghoshh/bienestar/backend/models"
	"github.com/jghoshh/bienestar/lib/apperr"
)

type HistoryFilter string

const (
	FilterAll   HistoryFilter = "all"
	FilterWeek  HistoryFilter = "week"
	FilterMonth HistoryFilter = "month"
)

// ParseHistoryFilter accepts "", "all", "week" and "month".
func ParseHistoryFilter(value string) (HistoryFilter, error) {
	switch f := HistoryFilter(value); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterWeek, FilterMonth:
		return f, nil
	default:
		return "", apperr.Validation("unknown history filter %q", value)
	}
}

// HistoryItem is either a daily record or an activity.
type HistoryItem struct {
	Kind     string                 `json:"kind"`
	Date     string                 `json:"date"`
	Record   *models.WellnessRecord `json:"record,omitempty"`
	Activity *models.ActivityLog    `json:"activity,omitempty"`
}

const (
	ItemRecord   = "record"
	ItemActivity = "activity"
)

// History merges records and activities, most recent first, keeping the
// items newer than the filter's cutoff. Items whose date does not parse
// are always kept.
func (s *Service) History(ctx context.Context, userID string, filter HistoryFilter) []HistoryItem {
	records := s.GetAllRecords(ctx, userID)
	activities := s.GetAllActivities(ctx, userID)

	items := make([]HistoryItem, 0, len(records)+len(activities))
	for i := range records {
		items = append(items, HistoryItem{Kind: ItemRecord, Date: records[i].Date, Record: &records[i]})
	}
	for i := range activities {
		items = append(items, HistoryItem{Kind: ItemActivity, Date: activities[i].Date, Activity: &activities[i]})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date > items[j].Date })

	cutoff, ok := s.cutoff(filter)
	if !ok {
		return items
	}
	kept := items[:0]
	for _, item := range items {
		day, err := time.Parse(models.DateLayout, item.Date)
		if err != nil || day.After(cutoff) {
			kept = append(kept, item)
		}
	}
	return kept
}

// cutoff returns the day items must be after, or false for no filtering.
func (s *Service) cutoff(filter HistoryFilter) (time.Time, bool) {
	today, _ := time.Parse(models.DateLayout, s.Today())
	switch filter {
	case FilterWeek:
		return today.AddDate(0, 0, -7), true
	case FilterMonth:
		return today.AddDate(0, -1, 0), true
	default:
		return time.Time{}, false
	}
}
