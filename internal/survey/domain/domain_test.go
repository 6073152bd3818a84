package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() SurveyConfig {
	return SurveyConfig{
		NewCustomerOptions: NewCustomerOptions{
			HeardFromOptions: []string{"Google検索", "Instagram", OtherHeardFrom},
			ImpressionEvaluations: []ImpressionEvaluation{
				{Category: "店舗の雰囲気", RatingOptions: []string{"良い", "普通", "改善が必要"}},
				{Category: "接客サービス", RatingOptions: []string{"良い", "普通", "改善が必要"}},
			},
			WillReturnOptions: []string{"ぜひ行きたい", "どちらとも言えない", "行きたくない"},
		},
		RepeaterOptions: RepeaterOptions{
			SatisfactionOptions: []string{"良くなった", "同じ", "悪くなった"},
		},
		ServiceDefinitions: []ServiceDefinition{
			{Key: "color", Label: "カラー", SatisfiedOptions: []string{"色味"}, ImprovementOptions: []string{"特になし"}},
			{Key: "cut", Label: "カット", SatisfiedOptions: []string{"理想のスタイル"}, ImprovementOptions: []string{"特になし"}},
		},
	}
}

func TestSurveyConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*SurveyConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*SurveyConfig) {}},
		{
			name: "duplicate service key",
			mutate: func(c *SurveyConfig) {
				c.ServiceDefinitions = append(c.ServiceDefinitions, c.ServiceDefinitions[0])
			},
			wantErr: true,
		},
		{
			name:    "empty heard-from",
			mutate:  func(c *SurveyConfig) { c.NewCustomerOptions.HeardFromOptions = nil },
			wantErr: true,
		},
		{
			name: "empty improvement options",
			mutate: func(c *SurveyConfig) {
				c.ServiceDefinitions[1].ImprovementOptions = []string{}
			},
			wantErr: true,
		},
		{
			name: "blank option",
			mutate: func(c *SurveyConfig) {
				c.RepeaterOptions.SatisfactionOptions = []string{"同じ", " "}
			},
			wantErr: true,
		},
		{
			name: "duplicate impression category",
			mutate: func(c *SurveyConfig) {
				c.NewCustomerOptions.ImpressionEvaluations[1].Category = "店舗の雰囲気"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestServiceLabelFallsBackToKey(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	assert.Equal(t, "カラー", cfg.ServiceLabel("color"))
	assert.Equal(t, "perm", cfg.ServiceLabel("perm"))
}

func TestMergeCopiesOnlyListedFields(t *testing.T) {
	t.Parallel()

	base := AnswerState{
		IsNewCustomer: BoolPtr(false),
		Satisfaction:  "同じ",
	}
	draft := AnswerState{
		UsagePurpose:    []ServiceKey{"cut"},
		SatisfiedPoints: map[ServiceKey][]string{"cut": {"理想のスタイル"}},
		Feedback:        "ignored",
	}

	merged := base.Merge(draft, FieldUsagePurpose, FieldSatisfiedPoints)

	want := AnswerState{
		IsNewCustomer:   BoolPtr(false),
		Satisfaction:    "同じ",
		UsagePurpose:    []ServiceKey{"cut"},
		SatisfiedPoints: map[ServiceKey][]string{"cut": {"理想のスタイル"}},
	}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("unexpected merge result (-want +got):\n%s", diff)
	}

	draft.SatisfiedPoints["cut"][0] = "mutated"
	draft.UsagePurpose[0] = "color"
	assert.Equal(t, "理想のスタイル", merged.SatisfiedPoints["cut"][0])
	assert.Equal(t, ServiceKey("cut"), merged.UsagePurpose[0])
	assert.Empty(t, base.UsagePurpose)
}

func TestMergeIsMonotonic(t *testing.T) {
	t.Parallel()

	state := AnswerState{}
	steps := []struct {
		draft  AnswerState
		fields []Field
	}{
		{draft: AnswerState{IsNewCustomer: BoolPtr(true)}, fields: []Field{FieldIsNewCustomer}},
		{draft: AnswerState{HeardFrom: []string{"Google検索"}, WillReturn: "ぜひ行きたい"}, fields: []Field{FieldHeardFrom, FieldWillReturn}},
		{draft: AnswerState{HasGoogleAccount: GoogleAccountNo}, fields: []Field{FieldHasGoogleAccount}},
		{draft: AnswerState{Feedback: "また来ます"}, fields: []Field{FieldFeedback}},
	}

	every := []Field{FieldIsNewCustomer, FieldVisitDate, FieldHasGoogleAccount, FieldFeedback}
	every = append(every, NewCustomerFields...)
	every = append(every, RepeaterFields...)

	for i, step := range steps {
		before := state.Clone()
		state = state.Merge(step.draft, step.fields...)
		for _, field := range every {
			if before.Has(field) && !containsField(step.fields, field) {
				require.True(t, state.Has(field), "step %d dropped %s", i, field)
			}
		}
	}

	assert.Equal(t, SegmentNew, state.Segment())
	assert.Equal(t, []string{"Google検索"}, state.HeardFrom)
	assert.Equal(t, "また来ます", state.Feedback)
}

func TestWithoutClearsFields(t *testing.T) {
	t.Parallel()

	state := AnswerState{
		IsNewCustomer:  BoolPtr(true),
		HeardFrom:      []string{OtherHeardFrom},
		OtherHeardFrom: "友人",
		WillReturn:     "ぜひ行きたい",
	}

	cleared := state.Without(NewCustomerFields...)

	assert.False(t, cleared.Has(FieldHeardFrom))
	assert.False(t, cleared.Has(FieldOtherHeardFrom))
	assert.False(t, cleared.Has(FieldWillReturn))
	assert.True(t, cleared.Has(FieldIsNewCustomer))
	assert.True(t, state.Has(FieldHeardFrom))
}

func TestWithImpressionRatingReplaces(t *testing.T) {
	t.Parallel()

	state := AnswerState{}.
		WithImpressionRating("店舗の雰囲気", "普通").
		WithImpressionRating("接客サービス", "良い").
		WithImpressionRating("店舗の雰囲気", "良い")

	require.Len(t, state.ImpressionRatings, 2)
	rating, ok := state.ImpressionRating("店舗の雰囲気")
	assert.True(t, ok)
	assert.Equal(t, "良い", rating)
}

func TestResolveUsagePurposeIsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	keys := []ServiceKey{"cut", "perm", "color"}

	firstKeys, firstLabels := ResolveUsagePurpose(cfg, keys)
	secondKeys, secondLabels := ResolveUsagePurpose(cfg, firstKeys)

	assert.Equal(t, []string{"カット", "perm", "カラー"}, firstLabels)
	assert.Equal(t, firstKeys, secondKeys)
	assert.Equal(t, firstLabels, secondLabels)
}

func TestResolveUsagePurposeDropsRepeatedKeys(t *testing.T) {
	t.Parallel()

	keys, labels := ResolveUsagePurpose(testConfig(), []ServiceKey{"color", "cut", "color"})

	assert.Equal(t, []ServiceKey{"color", "cut"}, keys)
	assert.Equal(t, []string{"カラー", "カット"}, labels)
}

func TestDeduplicatedCollapsesRepeatedChoices(t *testing.T) {
	t.Parallel()

	state := AnswerState{
		HeardFrom:    []string{"Google検索", "Instagram", "Google検索"},
		UsagePurpose: []ServiceKey{"color", "color"},
		SatisfiedPoints: map[ServiceKey][]string{
			"color": {"希望した色味で満足できた", "希望した色味で満足できた"},
		},
		ImprovementPoints: map[ServiceKey][]string{"color": {"特になし", "特になし"}},
		ImpressionRatings: []ImpressionRating{
			{Category: "店舗の雰囲気", Rating: "普通"},
			{Category: "接客サービス", Rating: "良い"},
			{Category: "店舗の雰囲気", Rating: "良い"},
		},
	}

	got := state.Deduplicated()

	want := AnswerState{
		HeardFrom:         []string{"Google検索", "Instagram"},
		UsagePurpose:      []ServiceKey{"color"},
		SatisfiedPoints:   map[ServiceKey][]string{"color": {"希望した色味で満足できた"}},
		ImprovementPoints: map[ServiceKey][]string{"color": {"特になし"}},
		ImpressionRatings: []ImpressionRating{
			{Category: "店舗の雰囲気", Rating: "良い"},
			{Category: "接客サービス", Rating: "良い"},
		},
	}
	assert.Equal(t, want, got)
	assert.Len(t, state.HeardFrom, 3)
}

func TestNewSubmissionPayloadPartitionsBySegment(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	t.Run("new customer", func(t *testing.T) {
		t.Parallel()

		answers := AnswerState{
			IsNewCustomer:     BoolPtr(true),
			HeardFrom:         []string{"Google検索"},
			OtherHeardFrom:    "stale",
			ImpressionRatings: []ImpressionRating{{Category: "店舗の雰囲気", Rating: "良い"}},
			WillReturn:        "ぜひ行きたい",
			Satisfaction:      "同じ",
			UsagePurpose:      []ServiceKey{"cut"},
			HasGoogleAccount:  GoogleAccountYesConfirmed,
		}

		payload := NewSubmissionPayload(cfg, answers, true)

		assert.True(t, payload.IsNewCustomer)
		assert.True(t, payload.IsGoogleReview)
		assert.Empty(t, payload.OtherHeardFrom)
		assert.Empty(t, payload.Satisfaction)
		assert.Empty(t, payload.UsagePurposeKeys)
		assert.NoError(t, payload.Validate())
	})

	t.Run("repeater", func(t *testing.T) {
		t.Parallel()

		answers := AnswerState{
			IsNewCustomer:     BoolPtr(false),
			HeardFrom:         []string{"Google検索"},
			Satisfaction:      "同じ",
			UsagePurpose:      []ServiceKey{"cut"},
			SatisfiedPoints:   map[ServiceKey][]string{"cut": {"理想のスタイル"}, "color": {"色味"}},
			ImprovementPoints: map[ServiceKey][]string{"cut": {"特になし"}},
			HasGoogleAccount:  GoogleAccountNo,
			Feedback:          "  ありがとうございました  ",
		}

		payload := NewSubmissionPayload(cfg, answers, false)

		assert.False(t, payload.IsNewCustomer)
		assert.Empty(t, payload.HeardFrom)
		assert.Equal(t, []ServiceKey{"cut"}, payload.UsagePurposeKeys)
		assert.Equal(t, []string{"カット"}, payload.UsagePurposeLabels)
		assert.Equal(t, map[ServiceKey][]string{"cut": {"理想のスタイル"}}, payload.SatisfiedPoints)
		assert.Equal(t, "ありがとうございました", payload.Feedback)
		assert.NoError(t, payload.Validate())
	})
}

func TestSubmissionPayloadValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload SubmissionPayload
		wantErr bool
	}{
		{
			name:    "google review requires confirmation",
			payload: SubmissionPayload{IsNewCustomer: true, HasGoogleAccount: GoogleAccountYes, IsGoogleReview: true},
			wantErr: true,
		},
		{
			name:    "internal feedback requires text",
			payload: SubmissionPayload{IsNewCustomer: true, HasGoogleAccount: GoogleAccountNo},
			wantErr: true,
		},
		{
			name:    "mixed segments",
			payload: SubmissionPayload{IsNewCustomer: true, Satisfaction: "同じ", HasGoogleAccount: GoogleAccountNo, Feedback: "x"},
			wantErr: true,
		},
		{
			name:    "label count mismatch",
			payload: SubmissionPayload{UsagePurposeKeys: []ServiceKey{"cut"}, HasGoogleAccount: GoogleAccountNo, Feedback: "x"},
			wantErr: true,
		},
		{
			name:    "unknown google answer",
			payload: SubmissionPayload{HasGoogleAccount: "maybe", Feedback: "x"},
			wantErr: true,
		},
		{
			name:    "repeater feedback",
			payload: SubmissionPayload{Satisfaction: "同じ", HasGoogleAccount: GoogleAccountNo, Feedback: "x"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.payload.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVisitDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC)
	date := VisitDateOf(now)

	assert.Equal(t, VisitDate{Year: "2024", Month: "5", Day: "3"}, date)
	assert.Equal(t, "2024年5月3日", date.String())
	assert.NoError(t, date.CheckRange(now))

	// 2月31日のような暦上存在しない日付も範囲内なら受け付ける
	assert.NoError(t, VisitDate{Year: "2024", Month: "2", Day: "31"}.CheckRange(now))
	assert.Error(t, VisitDate{Year: "1919", Month: "1", Day: "1"}.CheckRange(now))
	assert.Error(t, VisitDate{Year: "2026", Month: "1", Day: "1"}.CheckRange(now))
	assert.Error(t, VisitDate{Year: "2024", Month: "13", Day: "1"}.CheckRange(now))
	assert.Error(t, VisitDate{Year: "2024", Month: "x", Day: "1"}.CheckRange(now))
	assert.Empty(t, VisitDate{Year: "2024"}.String())
}

func TestBuildRecapShowsOnlyChosenSegment(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	answers := AnswerState{
		IsNewCustomer:     BoolPtr(false),
		VisitDate:         &VisitDate{Year: "2024", Month: "5", Day: "3"},
		HeardFrom:         []string{"Google検索"},
		Satisfaction:      "良くなった",
		UsagePurpose:      []ServiceKey{"cut"},
		SatisfiedPoints:   map[ServiceKey][]string{"cut": {"理想のスタイル"}},
		ImprovementPoints: map[ServiceKey][]string{"cut": {"特になし"}},
		Feedback:          "満足です",
	}

	rows := BuildRecap(cfg, answers)

	fields := make([]Field, 0, len(rows))
	for _, row := range rows {
		fields = append(fields, row.Field)
	}
	assert.Equal(t, []Field{
		FieldIsNewCustomer,
		FieldVisitDate,
		FieldSatisfaction,
		FieldUsagePurpose,
		FieldSatisfiedPoints,
		FieldImprovementPoints,
		FieldFeedback,
	}, fields)
	assert.Equal(t, []string{"カット: 理想のスタイル"}, rows[4].Answers)
}

func TestBuildRecapAnnotatesOtherHeardFrom(t *testing.T) {
	t.Parallel()

	answers := AnswerState{
		IsNewCustomer:  BoolPtr(true),
		HeardFrom:      []string{"Instagram", OtherHeardFrom},
		OtherHeardFrom: "友人の紹介",
	}

	rows := BuildRecap(testConfig(), answers)

	require.Len(t, rows, 2)
	assert.Equal(t, FieldHeardFrom, rows[1].Field)
	assert.Equal(t, []string{"Instagram", "その他（友人の紹介）"}, rows[1].Answers)
}

func containsField(fields []Field, target Field) bool {
	for _, field := range fields {
		if field == target {
			return true
		}
	}
	return false
}
