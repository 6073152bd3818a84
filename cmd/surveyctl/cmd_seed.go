package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/sngm3741/salon-survey-services/api/internal/config"
	mongorepo "github.com/sngm3741/salon-survey-services/api/internal/infrastructure/mongo"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

type seedOptions struct {
	count           int
	days            int
	googleShare     float64
	dropCollections bool
	randomSeed      int64
}

var seedOpts seedOptions

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample survey responses into MongoDB",
	Long: `Insert randomly generated survey responses into the response collection.

Answers are drawn from the active survey configuration so the admin listing
and metrics have realistic data. MONGO_URI, MONGO_DB and RESPONSE_COLLECTION
are read from the environment as the API server does.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.count, "count", 50, "生成する回答数")
	seedCmd.Flags().IntVar(&seedOpts.days, "days", 30, "受信日時を散らす日数")
	seedCmd.Flags().Float64Var(&seedOpts.googleShare, "google-share", 0.3, "Google 口コミへ進んだ回答の割合")
	seedCmd.Flags().BoolVar(&seedOpts.dropCollections, "drop", false, "既存コレクションを削除してから投入する")
	seedCmd.Flags().Int64Var(&seedOpts.randomSeed, "seed", time.Now().UnixNano(), "乱数シード（再現用）")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	if seedOpts.count <= 0 {
		return fmt.Errorf("count は 1 以上を指定してください")
	}
	if seedOpts.days <= 0 {
		seedOpts.days = 1
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	surveyCfg, err := activeProvider().Config()
	if err != nil {
		return fmt.Errorf("アンケート設定を読み込めません: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.FixedZone("JST", 9*60*60)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("MongoDB 接続に失敗しました: %w", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()
	db := client.Database(cfg.MongoDatabase)

	if seedOpts.dropCollections {
		for _, name := range []string{cfg.ResponseCollection, cfg.FailedNotificationCollection} {
			if err := db.Collection(name).Drop(ctx); err != nil {
				logger.Warn("コレクション削除に失敗しました", zap.String("collection", name), zap.Error(err))
			}
		}
	}

	repo := mongorepo.NewResponseRepository(db, cfg.ResponseCollection)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("インデックス作成に失敗しました: %w", err)
	}

	rng := rand.New(rand.NewSource(seedOpts.randomSeed))
	responses := generateResponses(rng, surveyCfg, seedOpts, time.Now().In(loc))
	for i := range responses {
		if err := repo.Create(ctx, &responses[i]); err != nil {
			return fmt.Errorf("回答データの挿入に失敗しました: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seed 完了: responses=%d (seed=%d)\n", len(responses), seedOpts.randomSeed)
	fmt.Fprintf(cmd.OutOrStdout(), "Mongo: %s / %s.%s\n", cfg.MongoURI, cfg.MongoDatabase, cfg.ResponseCollection)
	return nil
}

var sampleFeedback = []string{
	"スタッフの皆さんが丁寧で、安心して施術を受けられました。",
	"仕上がりに満足しています。また次回もお願いしたいです。",
	"待ち時間が少し長かったので、予約時間通りに始まると嬉しいです。",
	"カウンセリングが分かりやすく、相談しやすかったです。",
	"店内がとても清潔で居心地が良かったです。",
	"料金がもう少し分かりやすいと助かります。",
}

// generateResponses builds responses the way a respondent would answer with cfg.
func generateResponses(rng *rand.Rand, cfg domain.SurveyConfig, opts seedOptions, now time.Time) []domain.Response {
	responses := make([]domain.Response, 0, opts.count)
	window := time.Duration(opts.days) * 24 * time.Hour
	for i := 0; i < opts.count; i++ {
		receivedAt := now.Add(-time.Duration(rng.Int63n(int64(window))))
		answers := randomAnswers(rng, cfg, receivedAt)

		isGoogleReview := rng.Float64() < opts.googleShare
		if isGoogleReview {
			answers.HasGoogleAccount = domain.GoogleAccountYesConfirmed
			answers.Feedback = ""
		} else {
			answers.HasGoogleAccount = domain.GoogleAccountNo
			answers.Feedback = sampleFeedback[rng.Intn(len(sampleFeedback))]
		}

		responses = append(responses, domain.Response{
			Payload:    domain.NewSubmissionPayload(cfg, answers, isGoogleReview),
			ClientIP:   fmt.Sprintf("192.0.2.%d", 1+rng.Intn(254)),
			ReceivedAt: receivedAt.UTC(),
		})
	}
	return responses
}

func randomAnswers(rng *rand.Rand, cfg domain.SurveyConfig, visited time.Time) domain.AnswerState {
	date := domain.VisitDateOf(visited)
	answers := domain.AnswerState{
		IsNewCustomer: domain.BoolPtr(rng.Intn(2) == 0),
		VisitDate:     &date,
	}

	if *answers.IsNewCustomer {
		opts := cfg.NewCustomerOptions
		answers.HeardFrom = pickUnique(rng, opts.HeardFromOptions, 1+rng.Intn(2))
		if answers.HeardFromOther() {
			answers.OtherHeardFrom = "通りがかり"
		}
		for _, evaluation := range opts.ImpressionEvaluations {
			if rng.Intn(5) == 0 {
				continue
			}
			answers.ImpressionRatings = append(answers.ImpressionRatings, domain.ImpressionRating{
				Category: evaluation.Category,
				Rating:   evaluation.RatingOptions[rng.Intn(len(evaluation.RatingOptions))],
			})
		}
		if len(answers.ImpressionRatings) == 0 {
			first := opts.ImpressionEvaluations[0]
			answers.ImpressionRatings = []domain.ImpressionRating{{Category: first.Category, Rating: first.RatingOptions[0]}}
		}
		answers.WillReturn = opts.WillReturnOptions[rng.Intn(len(opts.WillReturnOptions))]
		return answers
	}

	satisfaction := cfg.RepeaterOptions.SatisfactionOptions
	answers.Satisfaction = satisfaction[rng.Intn(len(satisfaction))]
	answers.SatisfiedPoints = map[domain.ServiceKey][]string{}
	answers.ImprovementPoints = map[domain.ServiceKey][]string{}
	for _, idx := range rng.Perm(len(cfg.ServiceDefinitions))[:1+rng.Intn(min(2, len(cfg.ServiceDefinitions)))] {
		def := cfg.ServiceDefinitions[idx]
		answers.UsagePurpose = append(answers.UsagePurpose, def.Key)
		answers.SatisfiedPoints[def.Key] = pickUnique(rng, def.SatisfiedOptions, 1+rng.Intn(2))
		answers.ImprovementPoints[def.Key] = pickUnique(rng, def.ImprovementOptions, 1)
	}
	return answers
}

func pickUnique(rng *rand.Rand, source []string, count int) []string {
	if count >= len(source) {
		return append([]string(nil), source...)
	}
	result := make([]string, 0, count)
	for _, idx := range rng.Perm(len(source))[:count] {
		result = append(result, source[idx])
	}
	return result
}
