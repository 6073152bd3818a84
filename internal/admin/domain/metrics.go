package domain

import "sort"

// Count is one bucket of a distribution.
type Count struct {
	Label string
	Count int
}

// ImpressionCount counts one rating given to one impression category.
type ImpressionCount struct {
	Category string
	Rating   string
	Count    int
}

// PointCount counts one improvement point chosen for one service.
type PointCount struct {
	Service string
	Point   string
	Count   int
}

// ResponseMetrics は回答の集計結果。
type ResponseMetrics struct {
	Total                int
	NewCustomers         int
	Repeaters            int
	GoogleReviews        int
	GoogleReviewShare    float64
	WillReturn           []Count
	Satisfaction         []Count
	ImpressionRatings    []ImpressionCount
	TopImprovementPoints []PointCount
}

// Finalize derives the Google review share and orders every distribution
// deterministically. Improvement points are cut to the top n (n <= 0 keeps all).
func (m *ResponseMetrics) Finalize(n int) {
	m.GoogleReviewShare = 0
	if m.Total > 0 {
		m.GoogleReviewShare = float64(m.GoogleReviews) / float64(m.Total)
	}

	sortCounts(m.WillReturn)
	sortCounts(m.Satisfaction)

	sort.SliceStable(m.ImpressionRatings, func(i, j int) bool {
		a, b := m.ImpressionRatings[i], m.ImpressionRatings[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Rating < b.Rating
	})

	sort.SliceStable(m.TopImprovementPoints, func(i, j int) bool {
		a, b := m.TopImprovementPoints[i], m.TopImprovementPoints[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Service != b.Service {
			return a.Service < b.Service
		}
		return a.Point < b.Point
	})
	if n > 0 && len(m.TopImprovementPoints) > n {
		m.TopImprovementPoints = m.TopImprovementPoints[:n]
	}
}

func sortCounts(counts []Count) {
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
}
