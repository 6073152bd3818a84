package public

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sngm3741/salon-survey-services/api/internal/apperr"
	"github.com/sngm3741/salon-survey-services/api/internal/interfaces/http/common"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/flow"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/submission"
)

func (h *Handler) surveyConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := h.configs.Config()
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, cfg)
	}
}

func (h *Handler) sessionCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.controller.Start(h.sessions.NewID())
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if err := h.sessions.Create(session); err != nil {
			h.logger.Error("セッションの作成に失敗", zap.Error(err))
			common.WriteMessage(h.logger, w, http.StatusInternalServerError, "アンケートを開始できませんでした")
			return
		}
		common.WriteJSON(h.logger, w, http.StatusCreated, h.sessionView(session))
	}
}

func (h *Handler) sessionDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.sessions.Get(sessionID(r))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, h.sessionView(session))
	}
}

func (h *Handler) sessionAdvanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input domain.AnswerState
		if err := common.DecodeJSON(r, &input); err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, err.Error())
			return
		}

		session, err := h.sessions.Update(sessionID(r), func(s flow.Session) (flow.Session, error) {
			return h.controller.Advance(submissionContext(r), s, input)
		})
		if err != nil {
			h.writeStepError(w, session, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, h.sessionView(session))
	}
}

func (h *Handler) sessionBackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.sessions.Update(sessionID(r), h.controller.Back)
		if err != nil {
			h.writeStepError(w, session, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, h.sessionView(session))
	}
}

func (h *Handler) sessionSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.sessions.Update(sessionID(r), func(s flow.Session) (flow.Session, error) {
			return h.controller.Submit(submissionContext(r), s)
		})
		if err != nil {
			h.writeStepError(w, session, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, h.sessionView(session))
	}
}

// writeStepError reports a failed transition. Validation failures list the
// offending fields; any other error carries the session as it now stands so
// the browser can stay on, or return to, the right screen.
func (h *Handler) writeStepError(w http.ResponseWriter, session flow.Session, err error) {
	if session.ID == "" {
		common.WriteError(h.logger, w, err)
		return
	}

	view := h.sessionView(session)
	var fieldErrs flow.FieldErrors
	if errors.As(err, &fieldErrs) {
		common.WriteJSON(h.logger, w, http.StatusUnprocessableEntity, fieldErrorsResponse{
			Error:   apperr.Message(err),
			Kind:    apperr.Kind(err),
			Errors:  fieldErrs,
			Session: view,
		})
		return
	}

	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("アンケートの遷移に失敗",
			zap.String("sessionId", session.ID),
			zap.String("state", string(session.State)),
			zap.String("kind", apperr.Kind(err)),
			zap.Error(err),
		)
	}
	common.WriteJSON(h.logger, w, status, sessionErrorResponse{
		Error:   apperr.Message(err),
		Kind:    apperr.Kind(err),
		Session: view,
	})
}

func (h *Handler) sessionView(session flow.Session) sessionResponse {
	_, canGoBack := flow.BackTarget(session.State)
	view := sessionResponse{
		ID:             session.ID,
		State:          session.State,
		Title:          session.State.Title(),
		Segment:        session.Segment(),
		Draft:          h.controller.Draft(session),
		RedirectURL:    session.RedirectURL,
		LastError:      session.LastError,
		SubmitAttempts: session.SubmitAttempts,
		CanGoBack:      canGoBack,
		Terminal:       session.State.Terminal(),
	}
	if session.State == flow.StateConfirm || session.State == flow.StateSubmitError {
		if recap, err := h.controller.Recap(session); err == nil {
			view.Recap = recap
		}
	}
	return view
}

// submissionContext carries the respondent's address to the dispatcher so the
// intake endpoint rate-limits and records the respondent rather than this server.
func submissionContext(r *http.Request) context.Context {
	return submission.WithClientIP(r.Context(), clientIP(r))
}

func sessionID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}
