package mongo

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	adminapp "github.com/sngm3741/salon-survey-services/api/internal/admin/application"
	admindomain "github.com/sngm3741/salon-survey-services/api/internal/admin/domain"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

func TestResponseDocumentRoundTripsThroughBSON(t *testing.T) {
	t.Parallel()

	received := time.Date(2024, 5, 3, 6, 30, 0, 0, time.UTC)
	want := domain.Response{
		Payload: domain.SubmissionPayload{
			IsNewCustomer:      false,
			VisitDate:          &domain.VisitDate{Year: "2024", Month: "5", Day: "3"},
			Satisfaction:       "良くなった",
			UsagePurposeKeys:   []domain.ServiceKey{"cut", "unknown"},
			UsagePurposeLabels: []string{"カット", "unknown"},
			SatisfiedPoints:    map[domain.ServiceKey][]string{"cut": {"理想のスタイルになった"}},
			ImprovementPoints:  map[domain.ServiceKey][]string{"cut": {"特になし"}, "unknown": {"待ち時間"}},
			HasGoogleAccount:   domain.GoogleAccountNo,
			Feedback:           "また伺います",
		},
		ClientIP:   "203.0.113.5",
		ReceivedAt: received,
	}

	doc := newResponseDocument(want)
	doc.ID = primitive.NewObjectID()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded ResponseDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got := decoded.toDomain()
	want.ID = doc.ID.Hex()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestServicePointsDocumentsResolveLabels(t *testing.T) {
	t.Parallel()

	labels := labelIndex([]domain.ServiceKey{"color"}, []string{"カラー"})
	docs := servicePointsDocuments(map[domain.ServiceKey][]string{
		"perm":  {"持ちが良い"},
		"color": {"色味"},
	}, labels)

	assert.Equal(t, []ServicePointsDocument{
		{Key: "color", Label: "カラー", Points: []string{"色味"}},
		{Key: "perm", Label: "perm", Points: []string{"持ちが良い"}},
	}, docs)
	assert.Nil(t, servicePointsDocuments(nil, labels))
}

func TestBuildResponseFilter(t *testing.T) {
	t.Parallel()

	yes := true
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, bson.M{}, buildResponseFilter(adminapp.ResponseFilter{}))
	assert.Equal(t, bson.M{
		"isNewCustomer":  false,
		"isGoogleReview": true,
		"receivedAt":     bson.M{"$gte": since},
	}, buildResponseFilter(adminapp.ResponseFilter{
		Segment:      admindomain.SegmentRepeater,
		GoogleReview: &yes,
		Since:        &since,
	}))
}

func TestMetricsFacetToMetrics(t *testing.T) {
	t.Parallel()

	raw, err := bson.Marshal(bson.M{
		"segments": bson.A{
			bson.M{"_id": true, "count": int32(3)},
			bson.M{"_id": false, "count": int32(2)},
		},
		"googleReviews": bson.A{bson.M{"count": int32(2)}},
		"willReturn":    bson.A{bson.M{"_id": "ぜひ行きたい", "count": int32(2)}},
		"satisfaction":  bson.A{},
		"impressions": bson.A{
			bson.M{"_id": bson.M{"category": "接客", "rating": "良い"}, "count": int32(3)},
		},
		"improvements": bson.A{
			bson.M{"_id": bson.M{"service": "カット", "point": "待ち時間"}, "count": int64(1)},
		},
	})
	require.NoError(t, err)

	var facet metricsFacet
	require.NoError(t, bson.Unmarshal(raw, &facet))
	m := facet.toMetrics()

	assert.Equal(t, 5, m.Total)
	assert.Equal(t, 3, m.NewCustomers)
	assert.Equal(t, 2, m.Repeaters)
	assert.Equal(t, 2, m.GoogleReviews)
	assert.Equal(t, []admindomain.Count{{Label: "ぜひ行きたい", Count: 2}}, m.WillReturn)
	assert.Empty(t, m.Satisfaction)
	assert.Equal(t, []admindomain.ImpressionCount{{Category: "接客", Rating: "良い", Count: 3}}, m.ImpressionRatings)
	assert.Equal(t, []admindomain.PointCount{{Service: "カット", Point: "待ち時間", Count: 1}}, m.TopImprovementPoints)
}
