package models

import "time"

// Summary is the dashboard headline report.
type Summary struct {
	Total             int `json:"total"`
	Pending           int `json:"pending"`
	Acknowledged      int `json:"acknowledged"`
	InProgress        int `json:"inProgress"`
	Resolved          int `json:"resolved"`
	Rejected          int `json:"rejected"`
	AvgResolutionTime int `json:"avgResolutionTime"`
	ResponseRate      int `json:"responseRate"`
}

// CategoryStat is one row of the by-category report.
type CategoryStat struct {
	Category          string `json:"category"`
	Total             int    `json:"total"`
	Resolved          int    `json:"resolved"`
	Pending           int    `json:"pending"`
	InProgress        int    `json:"inProgress"`
	AvgResolutionTime int    `json:"avgResolutionTime"`
	ResolutionRate    int    `json:"resolutionRate"`
}

// MonthPoint is one month of the time-series report.
type MonthPoint struct {
	Month     string `json:"month"`
	Label     string `json:"label"`
	Submitted int    `json:"submitted"`
	Resolved  int    `json:"resolved"`
}

// MapPoint is the map-layer projection of a complaint.
type MapPoint struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Status      Status     `json:"status"`
	Coordinates [2]float64 `json:"coordinates"`
	Upvotes     int        `json:"upvotes"`
	Priority    Priority   `json:"priority"`
	CreatedAt   time.Time  `json:"createdAt"`
}
