package domain

import (
	"fmt"
	"strings"
)

// RecapRow is one question and its answers on the confirmation read-back.
type RecapRow struct {
	Field    Field    `json:"field"`
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
}

// BuildRecap lists the answers relevant to the chosen segment in display order.
func BuildRecap(cfg SurveyConfig, answers AnswerState) []RecapRow {
	rows := make([]RecapRow, 0, 8)
	add := func(field Field, question string, values ...string) {
		cleaned := make([]string, 0, len(values))
		for _, value := range values {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			cleaned = append(cleaned, value)
		}
		if len(cleaned) == 0 {
			return
		}
		rows = append(rows, RecapRow{Field: field, Question: question, Answers: cleaned})
	}

	switch answers.Segment() {
	case SegmentNew:
		add(FieldIsNewCustomer, "ご来店は初めてですか？", "はい（初めて）")
	case SegmentRepeater:
		add(FieldIsNewCustomer, "ご来店は初めてですか？", "いいえ（2回目以降）")
	}
	if answers.VisitDate != nil {
		add(FieldVisitDate, "ご来店日", answers.VisitDate.String())
	}

	switch answers.Segment() {
	case SegmentNew:
		heardFrom := make([]string, 0, len(answers.HeardFrom))
		for _, value := range answers.HeardFrom {
			if value == OtherHeardFrom && strings.TrimSpace(answers.OtherHeardFrom) != "" {
				value = fmt.Sprintf("%s（%s）", value, strings.TrimSpace(answers.OtherHeardFrom))
			}
			heardFrom = append(heardFrom, value)
		}
		add(FieldHeardFrom, "当サロンをどこでお知りになりましたか？", heardFrom...)

		ratings := make([]string, 0, len(answers.ImpressionRatings))
		for _, evaluation := range cfg.NewCustomerOptions.ImpressionEvaluations {
			if rating, ok := answers.ImpressionRating(evaluation.Category); ok {
				ratings = append(ratings, fmt.Sprintf("%s: %s", evaluation.Category, rating))
			}
		}
		add(FieldImpressionRatings, "当サロンの印象", ratings...)
		add(FieldWillReturn, "また来たいと思いますか？", answers.WillReturn)
	case SegmentRepeater:
		add(FieldSatisfaction, "前回と比べた満足度", answers.Satisfaction)
		_, labels := ResolveUsagePurpose(cfg, answers.UsagePurpose)
		add(FieldUsagePurpose, "ご利用メニュー", labels...)
		add(FieldSatisfiedPoints, "満足した点", pointLines(cfg, answers.UsagePurpose, answers.SatisfiedPoints)...)
		add(FieldImprovementPoints, "改善してほしい点", pointLines(cfg, answers.UsagePurpose, answers.ImprovementPoints)...)
	}

	add(FieldFeedback, "ご感想", answers.Feedback)
	return rows
}

func pointLines(cfg SurveyConfig, selected []ServiceKey, points map[ServiceKey][]string) []string {
	lines := make([]string, 0)
	for _, key := range selected {
		for _, value := range points[key] {
			lines = append(lines, fmt.Sprintf("%s: %s", cfg.ServiceLabel(key), value))
		}
	}
	return lines
}
