package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/Zienararya/e-fridge/internal/config"
	"github.com/Zienararya/e-fridge/internal/middleware"
	"github.com/Zienararya/e-fridge/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NotificationStore reads notification rows and device tokens.
type NotificationStore interface {
	FetchNotifikasi(ctx context.Context, id int64) (*models.NotifikasiRow, error)
	FetchDeviceTokens(ctx context.Context, userID int64) ([]models.DeviceToken, error)
}

// PushSender authenticates to the provider and delivers single messages.
type PushSender interface {
	AccessToken(ctx context.Context) (string, error)
	Send(ctx context.Context, accessToken string, msg models.FCMMessage) models.DeliveryResult
}

// ReportPublisher emits a delivery summary after a completed fan-out.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report models.DeliveryReport) error
}

type PushHandler struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   NotificationStore
	sender  PushSender
	redis   *redis.Client   // nil disables the idempotency guard
	reports ReportPublisher // nil disables delivery reports
}

func NewPushHandler(
	cfg *config.Config,
	logger *zap.Logger,
	store NotificationStore,
	sender PushSender,
	redisClient *redis.Client,
	reports ReportPublisher,
) *PushHandler {
	return &PushHandler{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		sender:  sender,
		redis:   redisClient,
		reports: reports,
	}
}

// HandlePush runs the pipeline: normalize the body, resolve device tokens,
// obtain a fresh provider access token, fan the message out one token at a
// time, and report per-token outcomes.
func (h *PushHandler) HandlePush(c *gin.Context) {
	ctx := c.Request.Context()
	correlationID := c.GetString(middleware.CorrelationIDKey)

	if h.cfg.MissingEnv() {
		c.JSON(http.StatusInternalServerError, models.APIError{Error: "Missing env"})
		return
	}

	var req models.PushRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusInternalServerError, models.APIError{Error: err.Error()})
		return
	}

	res := resolveLocal(&req)
	h.logger.Info("push invoked",
		zap.String("correlation_id", correlationID),
		zap.Stringer("kind", res.kind),
		zap.Bool("has_record", len(req.Record) > 0),
		zap.String("table", req.Table),
	)

	if res.skip {
		h.logger.Info("record received but iswarning is not true; skipping push",
			zap.String("correlation_id", correlationID),
		)
		c.JSON(http.StatusOK, models.SkippedResponse{Skipped: true, Reason: "iswarning not true"})
		return
	}

	idemKey := idempotencyKey(&res)
	if duplicate, err := h.alreadyDelivered(ctx, idemKey); err != nil {
		h.logger.Warn("idempotency check failed", zap.Error(err))
	} else if duplicate {
		c.JSON(http.StatusOK, models.SkippedResponse{Skipped: true, Reason: "duplicate delivery"})
		return
	}

	if res.needsLookup {
		row, err := h.store.FetchNotifikasi(ctx, res.lookupID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.APIError{Error: err.Error()})
			return
		}
		if row == nil {
			c.JSON(http.StatusNotFound, models.APIError{Error: "Notifikasi not found"})
			return
		}
		fillFromRow(&res, row)
	}

	if !res.complete() {
		h.logger.Info("missing required fields after all resolution attempts",
			zap.String("correlation_id", correlationID),
			zap.Bool("has_user", res.hasUser),
			zap.Bool("has_title", res.target.Title != ""),
			zap.Bool("has_message", res.target.Message != ""),
		)
		c.JSON(http.StatusBadRequest, models.APIError{Error: "Missing required fields"})
		return
	}

	tokens, err := h.store.FetchDeviceTokens(ctx, res.target.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.APIError{Error: err.Error()})
		return
	}
	if len(tokens) == 0 {
		c.JSON(http.StatusOK, models.PushResponse{Sent: 0, Results: []models.DeliveryResult{}})
		return
	}

	accessToken, err := h.sender.AccessToken(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.APIError{Error: err.Error()})
		return
	}

	// Serial fan-out in token fetch order; one token failing never aborts
	// the rest of the batch.
	results := make([]models.DeliveryResult, 0, len(tokens))
	for _, t := range tokens {
		msg := models.FCMMessage{
			Message: models.FCMMessageBody{
				Token: t.Token,
				Notification: models.FCMNotification{
					Title: res.target.Title,
					Body:  res.target.Message,
				},
				Data: res.target.Data,
			},
		}
		results = append(results, h.sender.Send(ctx, accessToken, msg))
	}

	// Only a completed fan-out consumes the idempotency key; failed or
	// rejected attempts stay retryable by the caller.
	h.markDelivered(ctx, idemKey)

	h.publishReport(ctx, correlationID, &res, results)

	h.logger.Info("push summary",
		zap.String("correlation_id", correlationID),
		zap.Int64("user_id", res.target.UserID),
		zap.String("title", res.target.Title),
		zap.String("message", truncate(res.target.Message, 60)),
		zap.Int("sent", len(results)),
	)
	c.JSON(http.StatusOK, models.PushResponse{Sent: len(results), Results: results})
}

// idempotencyKey identifies webhook and lookup deliveries by their row id.
// Requests without an event identity (direct calls) are never deduped.
func idempotencyKey(res *resolution) string {
	if res.hasRecordID {
		return fmt.Sprintf("push:idempotency:webhook:%d", res.recordID)
	}
	if res.needsLookup {
		return fmt.Sprintf("push:idempotency:lookup:%d", res.lookupID)
	}
	return ""
}

func (h *PushHandler) alreadyDelivered(ctx context.Context, key string) (bool, error) {
	if h.redis == nil || key == "" {
		return false, nil
	}
	n, err := h.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (h *PushHandler) markDelivered(ctx context.Context, key string) {
	if h.redis == nil || key == "" {
		return
	}
	if err := h.redis.Set(ctx, key, "delivered", 24*time.Hour).Err(); err != nil {
		h.logger.Warn("failed to record idempotency key", zap.Error(err))
	}
}

func (h *PushHandler) publishReport(ctx context.Context, correlationID string, res *resolution, results []models.DeliveryResult) {
	if h.reports == nil {
		return
	}
	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	report := models.DeliveryReport{
		UserID:        res.target.UserID,
		Title:         res.target.Title,
		Sent:          len(results),
		Failed:        failed,
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
	if err := h.reports.PublishReport(ctx, report); err != nil {
		h.logger.Warn("failed to publish delivery report", zap.Error(err))
	}
}

// truncate counts runes so a multi-byte character is never split.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
