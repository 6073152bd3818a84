package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OtherHeardFrom is the heard-from choice that requires a free-text companion answer.
const OtherHeardFrom = "その他"

const minVisitYear = 1920

// Segment is the respondent category that selects the intake step set.
type Segment string

const (
	SegmentUnknown  Segment = ""
	SegmentNew      Segment = "new"
	SegmentRepeater Segment = "repeater"
)

// SegmentOf derives the segment from the isNewCustomer answer.
func SegmentOf(isNewCustomer *bool) Segment {
	if isNewCustomer == nil {
		return SegmentUnknown
	}
	if *isNewCustomer {
		return SegmentNew
	}
	return SegmentRepeater
}

// GoogleAccountAnswer is the three-valued affirmance answer of the review gate.
type GoogleAccountAnswer string

const (
	GoogleAccountUnanswered   GoogleAccountAnswer = ""
	GoogleAccountYes          GoogleAccountAnswer = "yes"
	GoogleAccountYesConfirmed GoogleAccountAnswer = "yes-confirmed"
	GoogleAccountNo           GoogleAccountAnswer = "no"
)

// Valid reports whether the answer is one of the known values.
func (a GoogleAccountAnswer) Valid() bool {
	switch a {
	case GoogleAccountUnanswered, GoogleAccountYes, GoogleAccountYesConfirmed, GoogleAccountNo:
		return true
	}
	return false
}

// VisitDate keeps each component as a string-encoded integer. No calendar check is made.
type VisitDate struct {
	Year  string `json:"year"`
	Month string `json:"month"`
	Day   string `json:"day"`
}

// VisitDateOf returns the date of t as a VisitDate without zero padding.
func VisitDateOf(t time.Time) VisitDate {
	return VisitDate{
		Year:  strconv.Itoa(t.Year()),
		Month: strconv.Itoa(int(t.Month())),
		Day:   strconv.Itoa(t.Day()),
	}
}

// IsZero reports whether no component has been chosen.
func (d VisitDate) IsZero() bool {
	return d.Year == "" && d.Month == "" && d.Day == ""
}

// Complete reports whether every component has been chosen.
func (d VisitDate) Complete() bool {
	return strings.TrimSpace(d.Year) != "" && strings.TrimSpace(d.Month) != "" && strings.TrimSpace(d.Day) != ""
}

// CheckRange verifies each component lies in its selectable range.
func (d VisitDate) CheckRange(now time.Time) error {
	if err := checkComponent("year", d.Year, minVisitYear, now.Year()+1); err != nil {
		return err
	}
	if err := checkComponent("month", d.Month, 1, 12); err != nil {
		return err
	}
	return checkComponent("day", d.Day, 1, 31)
}

func checkComponent(name, raw string, min, max int) error {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("visit %s is not a number: %q", name, raw)
	}
	if value < min || value > max {
		return fmt.Errorf("visit %s out of range: %d", name, value)
	}
	return nil
}

// String renders the date the way the confirmation screen shows it.
func (d VisitDate) String() string {
	if !d.Complete() {
		return ""
	}
	return fmt.Sprintf("%s年%s月%s日", strings.TrimSpace(d.Year), strings.TrimSpace(d.Month), strings.TrimSpace(d.Day))
}

// ImpressionRating is the rating given to one impression category.
type ImpressionRating struct {
	Category string `json:"category"`
	Rating   string `json:"rating"`
}
