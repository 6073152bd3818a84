package admin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	adminapp "github.com/sngm3741/salon-survey-services/api/internal/admin/application"
	admindomain "github.com/sngm3741/salon-survey-services/api/internal/admin/domain"
	"github.com/sngm3741/salon-survey-services/api/internal/interfaces/http/common"
)

func (h *Handler) responseListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter, err := h.parseFilter(query)
		if err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, err.Error())
			return
		}
		limit, _ := common.ParsePositiveInt(query.Get("limit"), 0)
		page, _ := common.ParsePositiveInt(query.Get("page"), 1)
		paging := adminapp.Paging{Page: page, Limit: limit, Sort: strings.TrimSpace(query.Get("sort"))}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		result, err := h.responses.List(ctx, filter, paging)
		if err != nil {
			if errors.Is(err, adminapp.ErrInvalidPeriod) {
				common.WriteMessage(h.logger, w, http.StatusBadRequest, err.Error())
				return
			}
			h.logger.Error("回答一覧の取得に失敗", zap.Error(err))
			common.WriteMessage(h.logger, w, http.StatusInternalServerError, "回答一覧の取得に失敗しました")
			return
		}

		items := make([]adminResponseSummary, 0, len(result.Items))
		for _, item := range result.Items {
			items = append(items, toSummaryResponse(item))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, adminResponseListResponse{
			Items: items,
			Total: result.Total,
			Page:  result.Page,
			Limit: result.Limit,
		})
	}
}

func (h *Handler) responseDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idParam := strings.TrimSpace(chi.URLParam(r, "id"))
		if idParam == "" {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, "回答IDが指定されていません")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		response, err := h.responses.Detail(ctx, idParam)
		if err != nil {
			switch {
			case errors.Is(err, admindomain.ErrInvalidResponseID):
				common.WriteMessage(h.logger, w, http.StatusBadRequest, err.Error())
			case errors.Is(err, mongo.ErrNoDocuments):
				common.WriteMessage(h.logger, w, http.StatusNotFound, "回答が見つかりません")
			default:
				h.logger.Error("回答の取得に失敗", zap.String("id", idParam), zap.Error(err))
				common.WriteMessage(h.logger, w, http.StatusInternalServerError, "回答の取得に失敗しました")
			}
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, toDetailResponse(*response))
	}
}

func (h *Handler) responseMetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := h.parseFilter(r.URL.Query())
		if err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		metrics, err := h.responses.Metrics(ctx, filter)
		if err != nil {
			if errors.Is(err, adminapp.ErrInvalidPeriod) {
				common.WriteMessage(h.logger, w, http.StatusBadRequest, err.Error())
				return
			}
			h.logger.Error("回答の集計に失敗", zap.Error(err))
			common.WriteMessage(h.logger, w, http.StatusInternalServerError, "回答の集計に失敗しました")
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, toMetricsResponse(metrics))
	}
}

// parseFilter reads segment, googleReview, from and to (YYYY-MM-DD, inclusive).
func (h *Handler) parseFilter(query url.Values) (adminapp.ResponseFilter, error) {
	segment, err := admindomain.NewSegmentFilter(query.Get("segment"))
	if err != nil {
		return adminapp.ResponseFilter{}, err
	}
	googleReview, ok := common.ParseOptionalBool(query.Get("googleReview"))
	if !ok {
		return adminapp.ResponseFilter{}, errors.New("googleReview は true または false を指定してください")
	}
	since, ok := common.ParseOptionalDate(query.Get("from"), h.location)
	if !ok {
		return adminapp.ResponseFilter{}, errors.New("from は YYYY-MM-DD 形式で指定してください")
	}
	until, ok := common.ParseOptionalDate(query.Get("to"), h.location)
	if !ok {
		return adminapp.ResponseFilter{}, errors.New("to は YYYY-MM-DD 形式で指定してください")
	}
	if until != nil {
		next := until.AddDate(0, 0, 1)
		until = &next
	}
	return adminapp.ResponseFilter{
		Segment:      segment,
		GoogleReview: googleReview,
		Since:        since,
		Until:        until,
	}, nil
}
