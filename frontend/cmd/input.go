package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jghoshh/bienestar/backend/models"
)

// dayNames maps weekday numbers (1=Sunday) to short names.
var dayNames = map[int]string{1: "Sun", 2: "Mon", 3: "Tue", 4: "Wed", 5: "Thu", 6: "Fri", 7: "Sat"}

// parseDays reads a comma separated weekday list such as "2,4,6" or
// "mon,wed,fri". An empty string means every day.
func parseDays(value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.AllWeekdays(), nil
	}
	seen := map[int]bool{}
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		day, err := strconv.Atoi(part)
		if err != nil {
			day = 0
			for n, name := range dayNames {
				if strings.ToLower(name) == part {
					day = n
				}
			}
		}
		if day < 1 || day > 7 {
			return nil, fmt.Errorf("%q is not a weekday", part)
		}
		seen[day] = true
	}
	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}

func formatDays(days []int) string {
	if len(days) == 7 {
		return "every day"
	}
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, dayNames[d])
	}
	return strings.Join(names, ", ")
}

func parseIntRange(value string, min, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.New("enter a whole number")
	}
	if n < min || n > max {
		return 0, fmt.Errorf("enter a number between %d and %d", min, max)
	}
	return n, nil
}

func parseFloatRange(value string, min, max float64) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, errors.New("enter a number")
	}
	if f < min || f > max {
		return 0, fmt.Errorf("enter a number between %g and %g", min, max)
	}
	return f, nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// bar draws value in [0, 1] as a ten cell bar.
func bar(value float64) string {
	cells := int(value*10 + 0.5)
	if cells < 0 {
		cells = 0
	}
	if cells > 10 {
		cells = 10
	}
	return strings.Repeat("#", cells) + strings.Repeat(".", 10-cells)
}
