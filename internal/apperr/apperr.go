// Package apperr defines the error taxonomy shared by the survey flow,
// the submission dispatcher and the HTTP layer.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrValidation marks step-local validation failures. They never leave the step.
	ErrValidation = errors.New("validation failed")
	// ErrConfigUnavailable is fatal for the whole flow.
	ErrConfigUnavailable = errors.New("survey configuration unavailable")
	// ErrEndpointNotConfigured is a precondition failure surfaced to the respondent.
	ErrEndpointNotConfigured = errors.New("submission endpoint not configured")
	// ErrSubmissionFailed is recoverable; the accumulator is kept for a retry.
	ErrSubmissionFailed = errors.New("submission failed")
	ErrSessionNotFound  = errors.New("session not found")
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid transition")
)

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrValidation):
		return "validation"

	case errors.Is(err, ErrConfigUnavailable):
		return "config_unavailable"

	case errors.Is(err, ErrEndpointNotConfigured):
		return "endpoint_not_configured"

	case errors.Is(err, ErrSubmissionFailed):
		return "submission_failed"

	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"

	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity

	case errors.Is(err, ErrConfigUnavailable),
		errors.Is(err, ErrEndpointNotConfigured):
		return http.StatusServiceUnavailable

	case errors.Is(err, ErrSubmissionFailed):
		return http.StatusBadGateway

	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// Message returns the respondent-facing Japanese message for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "入力内容に不備があります。必須項目をご確認ください。"
	case errors.Is(err, ErrConfigUnavailable):
		return "アンケートの設定を読み込めませんでした。しばらく待ってから再度お試しください。"
	case errors.Is(err, ErrEndpointNotConfigured):
		return "APIエンドポイントが設定されていません。管理者にお問い合わせください。"
	case errors.Is(err, ErrSubmissionFailed):
		return "フォームの送信中にエラーが発生しました。もう一度送信してください。"
	case errors.Is(err, ErrSessionNotFound):
		return "アンケートの有効期限が切れました。最初からやり直してください。"
	case errors.Is(err, ErrInvalidTransition):
		return "この操作は現在の画面では行えません。"
	case errors.Is(err, context.DeadlineExceeded):
		return "通信がタイムアウトしました。"
	default:
		return "サーバーでエラーが発生しました。"
	}
}
