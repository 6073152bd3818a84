package public

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sngm3741/salon-survey-services/api/internal/apperr"
	"github.com/sngm3741/salon-survey-services/api/internal/interfaces/http/common"
	publicapp "github.com/sngm3741/salon-survey-services/api/internal/public/application"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// responseCreateHandler is the endpoint the dispatcher posts SubmissionPayloads to.
func (h *Handler) responseCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload domain.SubmissionPayload
		if err := common.DecodeJSON(r, &payload); err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		response, err := h.responses.Receive(ctx, publicapp.ReceiveResponseCommand{
			Payload:  payload,
			ClientIP: clientIP(r),
		})
		if err != nil {
			if errors.Is(err, apperr.ErrValidation) {
				common.WriteMessage(h.logger, w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), apperr.ErrValidation.Error()+": "))
				return
			}
			h.logger.Error("回答の保存に失敗", zap.Error(err))
			common.WriteMessage(h.logger, w, http.StatusInternalServerError, "回答の保存に失敗しました")
			return
		}

		h.logger.Info("回答を受信しました",
			zap.String("responseId", response.ID),
			zap.String("segment", string(payload.Segment())),
			zap.Bool("googleReview", payload.IsGoogleReview),
		)

		if !payload.IsGoogleReview {
			received := *response
			h.background.Add(1)
			go func() {
				defer h.background.Done()
				h.notifyResponseReceipt(context.Background(), received)
			}()
		}

		common.WriteJSON(h.logger, w, http.StatusCreated, createResponseResponse{Status: "ok", ID: response.ID})
	}
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
