package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	adminapp "github.com/sngm3741/salon-survey-services/api/internal/admin/application"
	admindomain "github.com/sngm3741/salon-survey-services/api/internal/admin/domain"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// ResponseRepository は受信した回答を MongoDB で扱うリポジトリ。
// 公開側の書き込みと管理側の参照・集計の両方を担う。
type ResponseRepository struct {
	responses *mongo.Collection
}

// NewResponseRepository は回答コレクションを束縛したリポジトリを生成する。
func NewResponseRepository(db *mongo.Database, collectionName string) *ResponseRepository {
	return &ResponseRepository{responses: db.Collection(collectionName)}
}

// EnsureIndexes は一覧・集計で使うインデックスを作成する。
func (r *ResponseRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.responses.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "receivedAt", Value: -1}}},
		{Keys: bson.D{{Key: "isNewCustomer", Value: 1}, {Key: "receivedAt", Value: -1}}},
		{Keys: bson.D{{Key: "isGoogleReview", Value: 1}, {Key: "receivedAt", Value: -1}}},
	})
	return err
}

// Create は回答をドキュメントへ変換して登録し、採番した ID を response へ書き戻す。
func (r *ResponseRepository) Create(ctx context.Context, response *domain.Response) error {
	if response == nil {
		return errors.New("response payload is nil")
	}
	doc := newResponseDocument(*response)
	doc.ID = primitive.NewObjectID()
	if _, err := r.responses.InsertOne(ctx, doc); err != nil {
		return err
	}
	response.ID = doc.ID.Hex()
	return nil
}

// Find は絞り込み条件を Mongo クエリへ変換し、受信日時の新しい順に返す。
func (r *ResponseRepository) Find(ctx context.Context, filter adminapp.ResponseFilter, paging adminapp.Paging) ([]domain.Response, error) {
	order := -1
	if paging.Sort == "oldest" {
		order = 1
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "receivedAt", Value: order}, {Key: "_id", Value: order}})
	if paging.Limit > 0 {
		findOpts.SetLimit(int64(paging.Limit))
		if paging.Page > 1 {
			skip := int64((paging.Page - 1) * paging.Limit)
			findOpts.SetSkip(skip)
		}
	}

	cursor, err := r.responses.Find(ctx, buildResponseFilter(filter), findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	responses := make([]domain.Response, 0)
	for cursor.Next(ctx) {
		var doc ResponseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		responses = append(responses, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return responses, nil
}

// Count は条件に一致する回答数を返す。
func (r *ResponseRepository) Count(ctx context.Context, filter adminapp.ResponseFilter) (int64, error) {
	return r.responses.CountDocuments(ctx, buildResponseFilter(filter))
}

// FindByID は単一の回答を復元する。存在しない場合は mongo.ErrNoDocuments を返す。
func (r *ResponseRepository) FindByID(ctx context.Context, id admindomain.ResponseID) (*domain.Response, error) {
	objectID, err := primitive.ObjectIDFromHex(id.String())
	if err != nil {
		return nil, err
	}
	var doc ResponseDocument
	if err := r.responses.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		return nil, err
	}
	response := doc.toDomain()
	return &response, nil
}

type labelCount struct {
	Label string `bson:"_id"`
	Count int    `bson:"count"`
}

type metricsFacet struct {
	Segments []struct {
		IsNewCustomer bool `bson:"_id"`
		Count         int  `bson:"count"`
	} `bson:"segments"`
	GoogleReviews []struct {
		Count int `bson:"count"`
	} `bson:"googleReviews"`
	WillReturn   []labelCount `bson:"willReturn"`
	Satisfaction []labelCount `bson:"satisfaction"`
	Impressions  []struct {
		Key struct {
			Category string `bson:"category"`
			Rating   string `bson:"rating"`
		} `bson:"_id"`
		Count int `bson:"count"`
	} `bson:"impressions"`
	Improvements []struct {
		Key struct {
			Service string `bson:"service"`
			Point   string `bson:"point"`
		} `bson:"_id"`
		Count int `bson:"count"`
	} `bson:"improvements"`
}

// Metrics は $facet で区分別件数と各分布を 1 回の集計で求める。
// 割合の算出と並び替えはアプリケーション層で行う。
func (r *ResponseRepository) Metrics(ctx context.Context, filter adminapp.ResponseFilter) (admindomain.ResponseMetrics, error) {
	nonEmpty := bson.M{"$nin": bson.A{"", nil}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildResponseFilter(filter)}},
		{{Key: "$facet", Value: bson.M{
			"segments": bson.A{
				bson.M{"$group": bson.M{"_id": "$isNewCustomer", "count": bson.M{"$sum": 1}}},
			},
			"googleReviews": bson.A{
				bson.M{"$match": bson.M{"isGoogleReview": true}},
				bson.M{"$count": "count"},
			},
			"willReturn": bson.A{
				bson.M{"$match": bson.M{"willReturn": nonEmpty}},
				bson.M{"$group": bson.M{"_id": "$willReturn", "count": bson.M{"$sum": 1}}},
			},
			"satisfaction": bson.A{
				bson.M{"$match": bson.M{"satisfaction": nonEmpty}},
				bson.M{"$group": bson.M{"_id": "$satisfaction", "count": bson.M{"$sum": 1}}},
			},
			"impressions": bson.A{
				bson.M{"$unwind": "$impressionRatings"},
				bson.M{"$match": bson.M{"impressionRatings.rating": nonEmpty}},
				bson.M{"$group": bson.M{
					"_id":   bson.M{"category": "$impressionRatings.category", "rating": "$impressionRatings.rating"},
					"count": bson.M{"$sum": 1},
				}},
			},
			"improvements": bson.A{
				bson.M{"$unwind": "$improvementPoints"},
				bson.M{"$unwind": "$improvementPoints.points"},
				bson.M{"$group": bson.M{
					"_id":   bson.M{"service": "$improvementPoints.label", "point": "$improvementPoints.points"},
					"count": bson.M{"$sum": 1},
				}},
			},
		}}},
	}

	cursor, err := r.responses.Aggregate(ctx, pipeline)
	if err != nil {
		return admindomain.ResponseMetrics{}, err
	}
	defer cursor.Close(ctx)

	var metrics admindomain.ResponseMetrics
	if cursor.Next(ctx) {
		var facet metricsFacet
		if err := cursor.Decode(&facet); err != nil {
			return admindomain.ResponseMetrics{}, err
		}
		metrics = facet.toMetrics()
	}
	if err := cursor.Err(); err != nil {
		return admindomain.ResponseMetrics{}, err
	}
	return metrics, nil
}

func (f metricsFacet) toMetrics() admindomain.ResponseMetrics {
	var m admindomain.ResponseMetrics
	for _, s := range f.Segments {
		m.Total += s.Count
		if s.IsNewCustomer {
			m.NewCustomers += s.Count
		} else {
			m.Repeaters += s.Count
		}
	}
	if len(f.GoogleReviews) > 0 {
		m.GoogleReviews = f.GoogleReviews[0].Count
	}
	m.WillReturn = toCounts(f.WillReturn)
	m.Satisfaction = toCounts(f.Satisfaction)
	for _, imp := range f.Impressions {
		m.ImpressionRatings = append(m.ImpressionRatings, admindomain.ImpressionCount{
			Category: imp.Key.Category,
			Rating:   imp.Key.Rating,
			Count:    imp.Count,
		})
	}
	for _, p := range f.Improvements {
		m.TopImprovementPoints = append(m.TopImprovementPoints, admindomain.PointCount{
			Service: p.Key.Service,
			Point:   p.Key.Point,
			Count:   p.Count,
		})
	}
	return m
}

func toCounts(rows []labelCount) []admindomain.Count {
	counts := make([]admindomain.Count, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, admindomain.Count{Label: row.Label, Count: row.Count})
	}
	return counts
}

func buildResponseFilter(filter adminapp.ResponseFilter) bson.M {
	mongoFilter := bson.M{}
	if isNew, ok := filter.Segment.IsNewCustomer(); ok {
		mongoFilter["isNewCustomer"] = isNew
	}
	if filter.GoogleReview != nil {
		mongoFilter["isGoogleReview"] = *filter.GoogleReview
	}
	received := bson.M{}
	if filter.Since != nil {
		received["$gte"] = filter.Since.UTC()
	}
	if filter.Until != nil {
		received["$lt"] = filter.Until.UTC()
	}
	if len(received) > 0 {
		mongoFilter["receivedAt"] = received
	}
	return mongoFilter
}
