package mongo

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// ResponseDocument は受信した回答 1 件の MongoDB スキーマ。
// サービスごとのポイントは集計しやすいよう配列で保持する。
type ResponseDocument struct {
	ID                 primitive.ObjectID         `bson:"_id"`
	IsNewCustomer      bool                       `bson:"isNewCustomer"`
	IsGoogleReview     bool                       `bson:"isGoogleReview"`
	VisitDate          *VisitDateDocument         `bson:"visitDate,omitempty"`
	HeardFrom          []string                   `bson:"heardFrom,omitempty"`
	OtherHeardFrom     string                     `bson:"otherHeardFrom,omitempty"`
	ImpressionRatings  []ImpressionRatingDocument `bson:"impressionRatings,omitempty"`
	WillReturn         string                     `bson:"willReturn,omitempty"`
	Satisfaction       string                     `bson:"satisfaction,omitempty"`
	UsagePurposeKeys   []string                   `bson:"usagePurposeKeys,omitempty"`
	UsagePurposeLabels []string                   `bson:"usagePurposeLabels,omitempty"`
	SatisfiedPoints    []ServicePointsDocument    `bson:"satisfiedPoints,omitempty"`
	ImprovementPoints  []ServicePointsDocument    `bson:"improvementPoints,omitempty"`
	HasGoogleAccount   string                     `bson:"hasGoogleAccount"`
	Feedback           string                     `bson:"feedback"`
	ClientIP           string                     `bson:"clientIp,omitempty"`
	ReceivedAt         time.Time                  `bson:"receivedAt"`
}

// VisitDateDocument は来店日の埋め込みドキュメント。
type VisitDateDocument struct {
	Year  string `bson:"year"`
	Month string `bson:"month"`
	Day   string `bson:"day"`
}

// ImpressionRatingDocument は新規のお客様の印象評価 1 項目。
type ImpressionRatingDocument struct {
	Category string `bson:"category"`
	Rating   string `bson:"rating"`
}

// ServicePointsDocument はサービス 1 つ分の選択ポイント。
type ServicePointsDocument struct {
	Key    string   `bson:"key"`
	Label  string   `bson:"label"`
	Points []string `bson:"points"`
}

func newResponseDocument(resp domain.Response) ResponseDocument {
	p := resp.Payload
	doc := ResponseDocument{
		IsNewCustomer:      p.IsNewCustomer,
		IsGoogleReview:     p.IsGoogleReview,
		HeardFrom:          p.HeardFrom,
		OtherHeardFrom:     p.OtherHeardFrom,
		WillReturn:         p.WillReturn,
		Satisfaction:       p.Satisfaction,
		UsagePurposeLabels: p.UsagePurposeLabels,
		HasGoogleAccount:   string(p.HasGoogleAccount),
		Feedback:           p.Feedback,
		ClientIP:           resp.ClientIP,
		ReceivedAt:         resp.ReceivedAt,
	}
	if p.VisitDate != nil {
		doc.VisitDate = &VisitDateDocument{Year: p.VisitDate.Year, Month: p.VisitDate.Month, Day: p.VisitDate.Day}
	}
	for _, r := range p.ImpressionRatings {
		doc.ImpressionRatings = append(doc.ImpressionRatings, ImpressionRatingDocument{Category: r.Category, Rating: r.Rating})
	}
	for _, key := range p.UsagePurposeKeys {
		doc.UsagePurposeKeys = append(doc.UsagePurposeKeys, string(key))
	}
	labels := labelIndex(p.UsagePurposeKeys, p.UsagePurposeLabels)
	doc.SatisfiedPoints = servicePointsDocuments(p.SatisfiedPoints, labels)
	doc.ImprovementPoints = servicePointsDocuments(p.ImprovementPoints, labels)
	return doc
}

func (doc ResponseDocument) toDomain() domain.Response {
	p := domain.SubmissionPayload{
		IsNewCustomer:      doc.IsNewCustomer,
		IsGoogleReview:     doc.IsGoogleReview,
		HeardFrom:          doc.HeardFrom,
		OtherHeardFrom:     doc.OtherHeardFrom,
		WillReturn:         doc.WillReturn,
		Satisfaction:       doc.Satisfaction,
		UsagePurposeLabels: doc.UsagePurposeLabels,
		HasGoogleAccount:   domain.GoogleAccountAnswer(doc.HasGoogleAccount),
		Feedback:           doc.Feedback,
	}
	if doc.VisitDate != nil {
		p.VisitDate = &domain.VisitDate{Year: doc.VisitDate.Year, Month: doc.VisitDate.Month, Day: doc.VisitDate.Day}
	}
	for _, r := range doc.ImpressionRatings {
		p.ImpressionRatings = append(p.ImpressionRatings, domain.ImpressionRating{Category: r.Category, Rating: r.Rating})
	}
	for _, key := range doc.UsagePurposeKeys {
		p.UsagePurposeKeys = append(p.UsagePurposeKeys, domain.ServiceKey(key))
	}
	p.SatisfiedPoints = pointsMap(doc.SatisfiedPoints)
	p.ImprovementPoints = pointsMap(doc.ImprovementPoints)

	return domain.Response{
		ID:         doc.ID.Hex(),
		Payload:    p,
		ClientIP:   doc.ClientIP,
		ReceivedAt: doc.ReceivedAt,
	}
}

func labelIndex(keys []domain.ServiceKey, labels []string) map[domain.ServiceKey]string {
	index := make(map[domain.ServiceKey]string, len(keys))
	for i, key := range keys {
		if i < len(labels) {
			index[key] = labels[i]
		}
	}
	return index
}

// servicePointsDocuments flattens points into documents ordered by key.
func servicePointsDocuments(points map[domain.ServiceKey][]string, labels map[domain.ServiceKey]string) []ServicePointsDocument {
	if len(points) == 0 {
		return nil
	}
	keys := make([]string, 0, len(points))
	for key := range points {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)

	docs := make([]ServicePointsDocument, 0, len(keys))
	for _, key := range keys {
		label, ok := labels[domain.ServiceKey(key)]
		if !ok || label == "" {
			label = key
		}
		docs = append(docs, ServicePointsDocument{
			Key:    key,
			Label:  label,
			Points: append([]string{}, points[domain.ServiceKey(key)]...),
		})
	}
	return docs
}

func pointsMap(docs []ServicePointsDocument) map[domain.ServiceKey][]string {
	if len(docs) == 0 {
		return nil
	}
	points := make(map[domain.ServiceKey][]string, len(docs))
	for _, doc := range docs {
		points[domain.ServiceKey(doc.Key)] = append([]string{}, doc.Points...)
	}
	return points
}
