package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// SubmissionPayload is the wire-ready projection of a finished AnswerState.
// It is built once at the terminal step and never mutated afterwards.
type SubmissionPayload struct {
	IsNewCustomer      bool                    `json:"isNewCustomer"`
	VisitDate          *VisitDate              `json:"visitDate,omitempty"`
	HeardFrom          []string                `json:"heardFrom,omitempty"`
	OtherHeardFrom     string                  `json:"otherHeardFrom,omitempty"`
	ImpressionRatings  []ImpressionRating      `json:"impressionRatings,omitempty"`
	WillReturn         string                  `json:"willReturn,omitempty"`
	Satisfaction       string                  `json:"satisfaction,omitempty"`
	UsagePurposeKeys   []ServiceKey            `json:"usagePurposeKeys,omitempty"`
	UsagePurposeLabels []string                `json:"usagePurposeLabels,omitempty"`
	SatisfiedPoints    map[ServiceKey][]string `json:"satisfiedPoints,omitempty"`
	ImprovementPoints  map[ServiceKey][]string `json:"improvementPoints,omitempty"`
	HasGoogleAccount   GoogleAccountAnswer     `json:"hasGoogleAccount"`
	Feedback           string                  `json:"feedback"`
	IsGoogleReview     bool                    `json:"isGoogleReview"`
}

// NewSubmissionPayload projects answers for the wire. Only the fields of the
// chosen segment are carried; service keys are resolved to labels via cfg.
func NewSubmissionPayload(cfg SurveyConfig, answers AnswerState, isGoogleReview bool) SubmissionPayload {
	answers = answers.Clone()
	payload := SubmissionPayload{
		IsNewCustomer:    answers.Segment() == SegmentNew,
		VisitDate:        answers.VisitDate,
		HasGoogleAccount: answers.HasGoogleAccount,
		Feedback:         strings.TrimSpace(answers.Feedback),
		IsGoogleReview:   isGoogleReview,
	}

	switch answers.Segment() {
	case SegmentNew:
		payload.HeardFrom = answers.HeardFrom
		if answers.HeardFromOther() {
			payload.OtherHeardFrom = strings.TrimSpace(answers.OtherHeardFrom)
		}
		payload.ImpressionRatings = answers.ImpressionRatings
		payload.WillReturn = answers.WillReturn
	case SegmentRepeater:
		payload.Satisfaction = answers.Satisfaction
		payload.UsagePurposeKeys, payload.UsagePurposeLabels = ResolveUsagePurpose(cfg, answers.UsagePurpose)
		payload.SatisfiedPoints = SelectedPoints(answers.SatisfiedPoints, answers.UsagePurpose)
		payload.ImprovementPoints = SelectedPoints(answers.ImprovementPoints, answers.UsagePurpose)
	}
	return payload
}

// ResolveUsagePurpose returns parallel key and label slices with repeated keys
// dropped. A key without a matching definition is used as its own label.
func ResolveUsagePurpose(cfg SurveyConfig, keys []ServiceKey) ([]ServiceKey, []string) {
	if len(keys) == 0 {
		return nil, nil
	}
	resolvedKeys := make([]ServiceKey, 0, len(keys))
	labels := make([]string, 0, len(keys))
	for _, key := range keys {
		if slices.Contains(resolvedKeys, key) {
			continue
		}
		resolvedKeys = append(resolvedKeys, key)
		labels = append(labels, cfg.ServiceLabel(key))
	}
	return resolvedKeys, labels
}

// SelectedPoints keeps only the entries of points whose service is in selected.
func SelectedPoints(points map[ServiceKey][]string, selected []ServiceKey) map[ServiceKey][]string {
	if len(points) == 0 || len(selected) == 0 {
		return nil
	}
	result := make(map[ServiceKey][]string, len(selected))
	for _, key := range selected {
		values, ok := points[key]
		if !ok {
			continue
		}
		result[key] = append([]string{}, values...)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// Segment returns the segment the payload was collected on.
func (p SubmissionPayload) Segment() Segment {
	if p.IsNewCustomer {
		return SegmentNew
	}
	return SegmentRepeater
}

// Validate performs the coherence checks the intake endpoint applies to
// payloads it receives.
func (p SubmissionPayload) Validate() error {
	if !p.HasGoogleAccount.Valid() {
		return fmt.Errorf("不正なGoogleアカウント回答です: %s", p.HasGoogleAccount)
	}
	if p.IsGoogleReview && p.HasGoogleAccount != GoogleAccountYesConfirmed {
		return errors.New("Google口コミ投稿にはGoogleアカウントの確認が必要です")
	}
	if !p.IsGoogleReview && strings.TrimSpace(p.Feedback) == "" {
		return errors.New("ご感想を入力してください")
	}
	if len(p.UsagePurposeKeys) != len(p.UsagePurposeLabels) {
		return errors.New("ご利用メニューのキーとラベルの数が一致しません")
	}
	if p.IsNewCustomer {
		if len(p.UsagePurposeKeys) > 0 || p.Satisfaction != "" {
			return errors.New("新規のお客様の回答にリピーター向けの項目が含まれています")
		}
		return nil
	}
	if len(p.HeardFrom) > 0 || p.WillReturn != "" || len(p.ImpressionRatings) > 0 {
		return errors.New("リピーターのお客様の回答に新規向けの項目が含まれています")
	}
	return nil
}

// Response is a received submission as stored by the intake backend.
type Response struct {
	ID         string
	Payload    SubmissionPayload
	ClientIP   string
	ReceivedAt time.Time
}
