package stats

import (
	"math"
	"time"

	"civicdesk/backend/internal/models"
)

// Summarize counts complaints per status. ResponseRate is the share of
// complaints that got past pending without being rejected.
func Summarize(list []models.Complaint) models.Summary {
	var (
		s        models.Summary
		resolved []int
	)
	s.Total = len(list)
	for i := range list {
		c := &list[i]
		switch c.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusAcknowledged:
			s.Acknowledged++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusResolved:
			s.Resolved++
		case models.StatusRejected:
			s.Rejected++
		}
		if c.ResolutionTime != nil {
			resolved = append(resolved, *c.ResolutionTime)
		}
	}
	s.AvgResolutionTime = average(resolved)
	s.ResponseRate = percent(s.Acknowledged+s.InProgress+s.Resolved, s.Total)
	return s
}

// ByCategory reports one row per name, in the given order. Acknowledged
// complaints count as in progress.
func ByCategory(list []models.Complaint, names []string) []models.CategoryStat {
	type acc struct {
		stat  models.CategoryStat
		hours []int
	}
	rows := make(map[string]*acc, len(names))
	for _, n := range names {
		rows[n] = &acc{stat: models.CategoryStat{Category: n}}
	}

	for i := range list {
		c := &list[i]
		a, ok := rows[c.Category]
		if !ok {
			continue
		}
		a.stat.Total++
		switch c.Status {
		case models.StatusResolved:
			a.stat.Resolved++
		case models.StatusPending:
			a.stat.Pending++
		case models.StatusInProgress, models.StatusAcknowledged:
			a.stat.InProgress++
		}
		if c.ResolutionTime != nil {
			a.hours = append(a.hours, *c.ResolutionTime)
		}
	}

	out := make([]models.CategoryStat, 0, len(names))
	for _, n := range names {
		a := rows[n]
		a.stat.AvgResolutionTime = average(a.hours)
		a.stat.ResolutionRate = percent(a.stat.Resolved, a.stat.Total)
		out = append(out, a.stat)
	}
	return out
}

// TimeSeries buckets submissions and resolutions into the last `months`
// calendar months (UTC), oldest first, the month of now included. A
// complaint resolved twice in one month counts once for that month.
func TimeSeries(list []models.Complaint, now time.Time, months int) []models.MonthPoint {
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	first := current.AddDate(0, -(months - 1), 0)

	points := make([]models.MonthPoint, months)
	for i := range points {
		m := first.AddDate(0, i, 0)
		points[i] = models.MonthPoint{
			Month: m.Format("2006-01"),
			Label: m.Format("Jan 2006"),
		}
	}

	index := func(t time.Time) int {
		t = t.UTC()
		i := (t.Year()-first.Year())*12 + int(t.Month()) - int(first.Month())
		if i < 0 || i >= months {
			return -1
		}
		return i
	}

	for i := range list {
		c := &list[i]
		if j := index(c.CreatedAt); j >= 0 {
			points[j].Submitted++
		}
		seen := make(map[int]bool)
		for _, h := range c.History {
			if h.Status != models.StatusResolved {
				continue
			}
			if j := index(h.Timestamp); j >= 0 && !seen[j] {
				seen[j] = true
				points[j].Resolved++
			}
		}
	}
	return points
}

// MapPoints projects complaints for the map layer.
func MapPoints(list []models.Complaint) []models.MapPoint {
	out := make([]models.MapPoint, 0, len(list))
	for i := range list {
		c := &list[i]
		out = append(out, models.MapPoint{
			ID:          c.ID,
			Title:       c.Title,
			Category:    c.Category,
			Status:      c.Status,
			Coordinates: c.Location.Coordinates(),
			Upvotes:     c.UpvoteCount,
			Priority:    c.Priority,
			CreatedAt:   c.CreatedAt,
		})
	}
	return out
}

func average(xs []int) int {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return int(math.Round(float64(sum) / float64(len(xs))))
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}
