package domain

import (
	"errors"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	surveydomain "github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// ErrInvalidResponseID is returned for IDs that cannot name a stored response.
var ErrInvalidResponseID = errors.New("回答IDの形式が不正です")

// ResponseID identifies a stored response (Mongo ObjectID hex).
type ResponseID string

// NewResponseID validates raw as an ObjectID hex string.
func NewResponseID(raw string) (ResponseID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidResponseID
	}
	if _, err := primitive.ObjectIDFromHex(trimmed); err != nil {
		return "", ErrInvalidResponseID
	}
	return ResponseID(trimmed), nil
}

func (id ResponseID) String() string {
	return string(id)
}

// SegmentFilter narrows admin listings to one segment. The zero value matches all.
type SegmentFilter string

const (
	SegmentAll      SegmentFilter = ""
	SegmentNew      SegmentFilter = "new"
	SegmentRepeater SegmentFilter = "repeater"
)

// NewSegmentFilter parses the segment query parameter.
func NewSegmentFilter(raw string) (SegmentFilter, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return SegmentAll, nil
	case "new":
		return SegmentNew, nil
	case "repeater":
		return SegmentRepeater, nil
	}
	return "", errors.New("segment は new または repeater を指定してください")
}

// IsNewCustomer reports the stored isNewCustomer value the filter selects.
func (f SegmentFilter) IsNewCustomer() (bool, bool) {
	switch f {
	case SegmentNew:
		return true, true
	case SegmentRepeater:
		return false, true
	}
	return false, false
}

// Segment converts the filter into the survey segment.
func (f SegmentFilter) Segment() surveydomain.Segment {
	switch f {
	case SegmentNew:
		return surveydomain.SegmentNew
	case SegmentRepeater:
		return surveydomain.SegmentRepeater
	}
	return surveydomain.SegmentUnknown
}

// Excerpt shortens text to at most max runes, appending "…" when cut.
func Excerpt(text string, max int) string {
	text = strings.TrimSpace(text)
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "…"
}
