package domain

// Field names one logical entry of the answer accumulator.
type Field string

const (
	FieldIsNewCustomer     Field = "isNewCustomer"
	FieldHeardFrom         Field = "heardFrom"
	FieldOtherHeardFrom    Field = "otherHeardFrom"
	FieldVisitDate         Field = "visitDate"
	FieldUsagePurpose      Field = "usagePurpose"
	FieldSatisfiedPoints   Field = "satisfiedPoints"
	FieldImprovementPoints Field = "improvementPoints"
	FieldImpressionRatings Field = "impressionRatings"
	FieldSatisfaction      Field = "satisfaction"
	FieldWillReturn        Field = "willReturn"
	FieldHasGoogleAccount  Field = "hasGoogleAccount"
	FieldFeedback          Field = "feedback"
)

// NewCustomerFields are only meaningful on the new-customer path.
var NewCustomerFields = []Field{
	FieldHeardFrom,
	FieldOtherHeardFrom,
	FieldImpressionRatings,
	FieldWillReturn,
}

// RepeaterFields are only meaningful on the repeater path.
var RepeaterFields = []Field{
	FieldSatisfaction,
	FieldUsagePurpose,
	FieldSatisfiedPoints,
	FieldImprovementPoints,
}

// AnswerState is the cumulative answer record carried across steps.
// Values are never mutated in place: Merge and Without return a fresh copy.
type AnswerState struct {
	IsNewCustomer     *bool                   `json:"isNewCustomer,omitempty"`
	HeardFrom         []string                `json:"heardFrom,omitempty"`
	OtherHeardFrom    string                  `json:"otherHeardFrom,omitempty"`
	VisitDate         *VisitDate              `json:"visitDate,omitempty"`
	UsagePurpose      []ServiceKey            `json:"usagePurpose,omitempty"`
	SatisfiedPoints   map[ServiceKey][]string `json:"satisfiedPoints,omitempty"`
	ImprovementPoints map[ServiceKey][]string `json:"improvementPoints,omitempty"`
	ImpressionRatings []ImpressionRating      `json:"impressionRatings,omitempty"`
	Satisfaction      string                  `json:"satisfaction,omitempty"`
	WillReturn        string                  `json:"willReturn,omitempty"`
	HasGoogleAccount  GoogleAccountAnswer     `json:"hasGoogleAccount,omitempty"`
	Feedback          string                  `json:"feedback,omitempty"`
}

// Segment returns the respondent segment chosen so far.
func (a AnswerState) Segment() Segment {
	return SegmentOf(a.IsNewCustomer)
}

// Clone returns a deep copy.
func (a AnswerState) Clone() AnswerState {
	return AnswerState{
		IsNewCustomer:     cloneBool(a.IsNewCustomer),
		HeardFrom:         cloneStrings(a.HeardFrom),
		OtherHeardFrom:    a.OtherHeardFrom,
		VisitDate:         cloneVisitDate(a.VisitDate),
		UsagePurpose:      cloneKeys(a.UsagePurpose),
		SatisfiedPoints:   clonePoints(a.SatisfiedPoints),
		ImprovementPoints: clonePoints(a.ImprovementPoints),
		ImpressionRatings: cloneRatings(a.ImpressionRatings),
		Satisfaction:      a.Satisfaction,
		WillReturn:        a.WillReturn,
		HasGoogleAccount:  a.HasGoogleAccount,
		Feedback:          a.Feedback,
	}
}

// Merge returns a copy of a whose listed fields are overwritten by src.
// Fields not listed are carried over from a untouched.
func (a AnswerState) Merge(src AnswerState, fields ...Field) AnswerState {
	out := a.Clone()
	for _, field := range fields {
		switch field {
		case FieldIsNewCustomer:
			out.IsNewCustomer = cloneBool(src.IsNewCustomer)
		case FieldHeardFrom:
			out.HeardFrom = cloneStrings(src.HeardFrom)
		case FieldOtherHeardFrom:
			out.OtherHeardFrom = src.OtherHeardFrom
		case FieldVisitDate:
			out.VisitDate = cloneVisitDate(src.VisitDate)
		case FieldUsagePurpose:
			out.UsagePurpose = cloneKeys(src.UsagePurpose)
		case FieldSatisfiedPoints:
			out.SatisfiedPoints = clonePoints(src.SatisfiedPoints)
		case FieldImprovementPoints:
			out.ImprovementPoints = clonePoints(src.ImprovementPoints)
		case FieldImpressionRatings:
			out.ImpressionRatings = cloneRatings(src.ImpressionRatings)
		case FieldSatisfaction:
			out.Satisfaction = src.Satisfaction
		case FieldWillReturn:
			out.WillReturn = src.WillReturn
		case FieldHasGoogleAccount:
			out.HasGoogleAccount = src.HasGoogleAccount
		case FieldFeedback:
			out.Feedback = src.Feedback
		}
	}
	return out
}

// Without returns a copy of a with the listed fields cleared.
func (a AnswerState) Without(fields ...Field) AnswerState {
	return a.Merge(AnswerState{}, fields...)
}

// Has reports whether field holds a non-empty value.
func (a AnswerState) Has(field Field) bool {
	switch field {
	case FieldIsNewCustomer:
		return a.IsNewCustomer != nil
	case FieldHeardFrom:
		return len(a.HeardFrom) > 0
	case FieldOtherHeardFrom:
		return a.OtherHeardFrom != ""
	case FieldVisitDate:
		return a.VisitDate != nil && !a.VisitDate.IsZero()
	case FieldUsagePurpose:
		return len(a.UsagePurpose) > 0
	case FieldSatisfiedPoints:
		return len(a.SatisfiedPoints) > 0
	case FieldImprovementPoints:
		return len(a.ImprovementPoints) > 0
	case FieldImpressionRatings:
		return len(a.ImpressionRatings) > 0
	case FieldSatisfaction:
		return a.Satisfaction != ""
	case FieldWillReturn:
		return a.WillReturn != ""
	case FieldHasGoogleAccount:
		return a.HasGoogleAccount != GoogleAccountUnanswered
	case FieldFeedback:
		return a.Feedback != ""
	}
	return false
}

// HeardFromOther reports whether "その他" is among the heard-from answers.
func (a AnswerState) HeardFromOther() bool {
	return ContainsOption(a.HeardFrom, OtherHeardFrom)
}

// ImpressionRating returns the rating given to category, if any.
func (a AnswerState) ImpressionRating(category string) (string, bool) {
	for _, rating := range a.ImpressionRatings {
		if rating.Category == category && rating.Rating != "" {
			return rating.Rating, true
		}
	}
	return "", false
}

// WithImpressionRating returns a copy with category rated, replacing an earlier rating.
func (a AnswerState) WithImpressionRating(category, rating string) AnswerState {
	ratings := cloneRatings(a.ImpressionRatings)
	for i := range ratings {
		if ratings[i].Category == category {
			ratings[i].Rating = rating
			return a.Merge(AnswerState{ImpressionRatings: ratings}, FieldImpressionRatings)
		}
	}
	ratings = append(ratings, ImpressionRating{Category: category, Rating: rating})
	return a.Merge(AnswerState{ImpressionRatings: ratings}, FieldImpressionRatings)
}

// Deduplicated returns a copy in which every multi-select answer lists each
// option once in first-seen order. A category rated twice keeps its last rating.
func (a AnswerState) Deduplicated() AnswerState {
	out := a.Clone()
	out.HeardFrom = uniqueValues(out.HeardFrom)
	out.UsagePurpose = uniqueValues(out.UsagePurpose)
	for key, values := range out.SatisfiedPoints {
		out.SatisfiedPoints[key] = uniqueValues(values)
	}
	for key, values := range out.ImprovementPoints {
		out.ImprovementPoints[key] = uniqueValues(values)
	}
	if len(a.ImpressionRatings) > 1 {
		out = out.Without(FieldImpressionRatings)
		for _, rating := range a.ImpressionRatings {
			out = out.WithImpressionRating(rating.Category, rating.Rating)
		}
	}
	return out
}

func uniqueValues[T comparable](values []T) []T {
	if len(values) < 2 {
		return values
	}
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// CountPoints returns the number of entries across every service in points.
func CountPoints(points map[ServiceKey][]string) int {
	total := 0
	for _, values := range points {
		total += len(values)
	}
	return total
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	value := *v
	return &value
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string{}, values...)
}

func cloneKeys(values []ServiceKey) []ServiceKey {
	if values == nil {
		return nil
	}
	return append([]ServiceKey{}, values...)
}

func cloneVisitDate(v *VisitDate) *VisitDate {
	if v == nil {
		return nil
	}
	value := *v
	return &value
}

func clonePoints(points map[ServiceKey][]string) map[ServiceKey][]string {
	if points == nil {
		return nil
	}
	result := make(map[ServiceKey][]string, len(points))
	for key, values := range points {
		result[key] = cloneStrings(values)
	}
	return result
}

func cloneRatings(values []ImpressionRating) []ImpressionRating {
	if values == nil {
		return nil
	}
	return append([]ImpressionRating{}, values...)
}

// BoolPtr returns a pointer helper for bools.
func BoolPtr(v bool) *bool {
	return &v
}
