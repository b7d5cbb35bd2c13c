package config

import "time"

const (
	// Complaints
	MaxImages          = 5
	MaxTitleLength     = 200
	MaxDescriptionLen  = 5000
	MaxCommentLength   = 1000
	MapDataLimit       = 200
	DefaultPageSize    = 20
	MaxPageSize        = 100
	TimeSeriesMonths   = 12
	DefaultStatsTTL    = 30 * time.Second
	DefaultTokenTTL    = 7 * 24 * time.Hour
	DefaultLoginPerMin = 10
)

// ReportCategories is the fixed category list used by the by-category
// report unless STATS_DYNAMIC_CATEGORIES is enabled. It is also the seed
// set for the category store.
var ReportCategories = []string{
	"Roads & Infrastructure",
	"Water Supply",
	"Electricity",
	"Sanitation",
	"Public Safety",
	"Parks & Recreation",
	"Noise Pollution",
	"Other",
}
