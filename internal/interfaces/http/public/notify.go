package public

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	mongorepo "github.com/sngm3741/salon-survey-services/api/internal/infrastructure/mongo"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

const (
	staffNotificationTarget = "staff_notification"
	notificationTimeout     = 30 * time.Second
	discordAttempts         = 3
	discordRetryDelay       = 200 * time.Millisecond
)

// notifyResponseReceipt pushes internal feedback to the staff channels.
// Discord is tried first; Slack is the fallback; if both fail the message is
// kept in failed_notifications.
func (h *Handler) notifyResponseReceipt(ctx context.Context, response domain.Response) {
	discordDest := strings.TrimSpace(h.discordDestination)
	slackDest := strings.TrimSpace(h.slackDestination)
	if strings.TrimSpace(h.messengerEndpoint) == "" || (discordDest == "" && slackDest == "") {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notificationTimeout)
	defer cancel()

	identifier := response.ID
	if identifier == "" {
		identifier = "survey"
	}

	var discordErr, slackErr error
	attempts := 0

	if discordDest != "" {
		discordErr = h.sendMessengerWithRetry(ctx, discordDest, identifier, buildDiscordResponseMessage(h.adminResponseBaseURL, response), discordAttempts, discordRetryDelay)
		attempts += discordAttempts
		if discordErr == nil {
			return
		}
		h.logger.Warn("Discord通知の送信に失敗", zap.String("responseId", response.ID), zap.Error(discordErr))
	}

	if slackDest != "" {
		slackErr = h.sendMessengerWithRetry(ctx, slackDest, identifier, buildSlackResponseMessage(h.adminResponseBaseURL, response), 1, 0)
		attempts++
		if slackErr == nil {
			return
		}
		h.logger.Warn("Slack通知の送信に失敗", zap.String("responseId", response.ID), zap.Error(slackErr))
	}

	h.persistNotificationFailure(ctx, response, errors.Join(discordErr, slackErr), attempts)
}

func buildDiscordResponseMessage(adminBaseURL string, response domain.Response) string {
	p := response.Payload
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("**%s** から新しいアンケート回答があります。\n", segmentDisplayName(p.Segment())))
	if p.VisitDate != nil {
		builder.WriteString(fmt.Sprintf("- 来店日: %s\n", p.VisitDate.String()))
	}
	if p.Segment() == domain.SegmentNew {
		if p.WillReturn != "" {
			builder.WriteString(fmt.Sprintf("- 再来店意向: %s\n", p.WillReturn))
		}
	} else {
		if p.Satisfaction != "" {
			builder.WriteString(fmt.Sprintf("- 前回と比べて: %s\n", p.Satisfaction))
		}
		if len(p.UsagePurposeLabels) > 0 {
			builder.WriteString(fmt.Sprintf("- ご利用メニュー: %s\n", strings.Join(p.UsagePurposeLabels, " / ")))
		}
	}
	builder.WriteString(fmt.Sprintf("- ご感想: %s\n", strings.TrimSpace(p.Feedback)))
	if link := adminLink(adminBaseURL, response.ID); link != "" {
		builder.WriteString(fmt.Sprintf("[管理画面で確認](%s)\n", link))
	}
	return builder.String()
}

func buildSlackResponseMessage(adminBaseURL string, response domain.Response) string {
	p := response.Payload
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(":memo: %sから新しいアンケート回答があります。\n", segmentDisplayName(p.Segment())))
	if p.VisitDate != nil {
		builder.WriteString(fmt.Sprintf("来店日: %s\n", p.VisitDate.String()))
	}
	if feedback := strings.TrimSpace(p.Feedback); feedback != "" {
		builder.WriteString(fmt.Sprintf("ご感想: %s\n", feedback))
	}
	if link := adminLink(adminBaseURL, response.ID); link != "" {
		builder.WriteString(fmt.Sprintf("管理画面: %s\n", link))
	}
	return builder.String()
}

func segmentDisplayName(segment domain.Segment) string {
	if segment == domain.SegmentNew {
		return "新規のお客様"
	}
	return "リピーターのお客様"
}

func adminLink(baseURL, id string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" || id == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + id
}

func (h *Handler) sendMessengerWithRetry(ctx context.Context, destination, userID, text string, attempts int, delay time.Duration) error {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return errors.New("destination is empty")
	}
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := h.sendMessengerMessage(ctx, destination, userID, text); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if delay > 0 && i < attempts-1 {
			select {
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}

func (h *Handler) persistNotificationFailure(ctx context.Context, response domain.Response, cause error, attempts int) {
	if h.failedNotifications == nil || cause == nil {
		return
	}
	payload := map[string]any{
		"responseId":     response.ID,
		"isNewCustomer":  response.Payload.IsNewCustomer,
		"feedback":       response.Payload.Feedback,
		"identifier":     response.ID,
		"isGoogleReview": response.Payload.IsGoogleReview,
	}
	// ctx may already be spent by the retries.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.failedNotifications.Record(recordCtx, mongorepo.FailedNotification{
		Target:   staffNotificationTarget,
		Payload:  payload,
		Error:    cause.Error(),
		Attempts: attempts,
	}); err != nil {
		h.logger.Error("failed_notifications への保存に失敗", zap.Error(err))
	}
}

func (h *Handler) sendMessengerMessage(ctx context.Context, destination, userID, bodyText string) error {
	trimmedUserID := strings.TrimSpace(userID)
	if trimmedUserID == "" {
		return errors.New("userID is required")
	}

	payload := map[string]any{
		"userId": trimmedUserID,
		"text":   bodyText,
	}
	if dest := strings.TrimSpace(destination); dest != "" {
		payload["destination"] = dest
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("メッセンジャー送信用ペイロードの作成に失敗: %w", err)
	}

	timeout := h.httpClient.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimRight(h.messengerEndpoint, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("メッセンジャー送信リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("メッセンジャー送信リクエストに失敗: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return fmt.Errorf("メッセンジャー送信でエラーが発生: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(message)))
	}
	return nil
}
