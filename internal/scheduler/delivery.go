package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/advelops/adcp-salesagent/internal/adapter"
	"github.com/advelops/adcp-salesagent/internal/adapter/dispatch"
	"github.com/advelops/adcp-salesagent/internal/analytics"
	"github.com/advelops/adcp-salesagent/internal/db"
	"github.com/advelops/adcp-salesagent/internal/lifecycle"
	"github.com/advelops/adcp-salesagent/internal/models"
	"github.com/advelops/adcp-salesagent/internal/observability"
	"github.com/advelops/adcp-salesagent/internal/webhook"
	"go.uber.org/zap"
)

// deliveryTaskType is the task_type recorded in WebhookDeliveryLog for
// scheduled delivery-report webhooks.
const deliveryTaskType = "media_buy_delivery"

// webhookLockTTL bounds how long a scheduler instance holds the per-tick
// dedup claim, long enough to cover one delivery attempt.
const webhookLockTTL = 10 * time.Minute

// DeliverySchedulerConfig bundles the dependencies the webhook scheduler
// dispatches through.
type DeliverySchedulerConfig struct {
	Store      *db.Postgres
	Redis      *db.RedisStore
	Dispatcher *dispatch.Dispatcher
	Resolver   lifecycle.AdapterResolver
	Sender     *webhook.Sender
	Analytics  *analytics.Store
	Logger     *zap.Logger
	Metrics    observability.MetricsRegistry
}

// DeliveryScheduler periodically delivers per-media-buy delivery-report
// webhooks with dedup and sequence tracking.
type DeliveryScheduler struct {
	cfg DeliverySchedulerConfig
}

// NewDeliveryScheduler builds a DeliveryScheduler.
func NewDeliveryScheduler(cfg DeliverySchedulerConfig) *DeliveryScheduler {
	return &DeliveryScheduler{cfg: cfg}
}

// Tick runs one pass over active media buys carrying a reporting_webhook,
// skipping any whose frequency isn't daily or whose dedup window already
// saw a delivery.
func (d *DeliveryScheduler) Tick(ctx context.Context) error {
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.IncrementSchedulerTick("delivery_webhook")
	}

	// "approved" in the spec's status set has no MediaBuy-status counterpart
	// (it names a creative status); active media buys are the only real
	// candidates for scheduled delivery.
	buys, err := d.cfg.Store.LoadMediaBuysByStatus(ctx, []string{models.MediaBuyStatusActive})
	if err != nil {
		if d.cfg.Metrics != nil {
			d.cfg.Metrics.IncrementSchedulerTickError("delivery_webhook")
		}
		return err
	}

	now := time.Now().UTC()
	for _, buy := range buys {
		rw, ok := d.reportingWebhook(buy)
		if !ok {
			continue
		}
		if rw.Frequency != "daily" {
			if d.cfg.Metrics != nil {
				d.cfg.Metrics.IncrementWebhookSkipped("unsupported_frequency")
			}
			continue
		}
		if err := d.deliverOne(ctx, buy, *rw, now, models.NotificationTypeScheduled, false); err != nil {
			d.logf("deliver webhook for %s: %v", buy.MediaBuyID, err)
		}
	}
	return nil
}

// TriggerNow delivers a media buy's report immediately, bypassing both
// frequency gating and the dedup window.
func (d *DeliveryScheduler) TriggerNow(ctx context.Context, tenantID, mediaBuyID string) error {
	buy, err := d.cfg.Store.LoadMediaBuy(ctx, tenantID, mediaBuyID)
	if err != nil {
		return err
	}
	if buy == nil {
		return fmt.Errorf("media buy %s not found", mediaBuyID)
	}
	rw, ok := d.reportingWebhook(*buy)
	if !ok {
		return fmt.Errorf("media buy %s has no reporting_webhook configured", mediaBuyID)
	}
	return d.deliverOne(ctx, *buy, *rw, time.Now().UTC(), models.NotificationTypeTriggered, true)
}

func (d *DeliveryScheduler) deliverOne(ctx context.Context, buy models.MediaBuy, rw lifecycle.ReportingWebhook, now time.Time, notificationType string, skipDedupAndGate bool) error {
	periodEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	periodStart := periodEnd.AddDate(0, 0, -1)
	nextExpectedAt := periodEnd.AddDate(0, 0, 1)

	if !skipDedupAndGate {
		if d.cfg.Redis != nil {
			claimed, err := d.cfg.Redis.AcquireWebhookTick(buy.MediaBuyID, deliveryTaskType, periodStart, webhookLockTTL)
			if err != nil {
				return fmt.Errorf("acquire webhook tick: %w", err)
			}
			if !claimed {
				if d.cfg.Metrics != nil {
					d.cfg.Metrics.IncrementWebhookSkipped("already_delivered")
				}
				return nil
			}
		}
	}

	adp, err := d.cfg.Resolver(buy.TenantID, "")
	if err != nil {
		return fmt.Errorf("resolve adapter: %w", err)
	}

	seq, err := d.cfg.Store.NextWebhookSequence(ctx, buy.MediaBuyID, deliveryTaskType)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	delivery, err := d.cfg.Dispatcher.GetMediaBuyDelivery(ctx, adp, adapter.DeliveryRequest{
		MediaBuyIDs: []string{buy.MediaBuyID},
		StartDate:   periodStart,
		EndDate:     periodEnd,
	})
	if err != nil {
		d.recordAttempt(ctx, buy, notificationType, seq, models.WebhookDeliveryStatusFailed)
		return fmt.Errorf("fetch delivery: %w", err)
	}
	if d.cfg.Analytics != nil {
		if err := d.cfg.Analytics.RecordDelivery(ctx, buy.TenantID, delivery.Rows, periodStart, periodEnd); err != nil {
			d.logf("record delivery history for %s: %v", buy.MediaBuyID, err)
		}
	}

	payload := webhook.Payload{
		MediaBuyID:       buy.MediaBuyID,
		NotificationType: notificationType,
		SequenceNumber:   seq,
		NextExpectedAt:   nextExpectedAt,
		PartialData:      false,
		UnavailableCount: 0,
		Rows:             delivery.Rows,
	}

	auth := d.resolveAuth(ctx, buy, rw)
	if err := d.cfg.Sender.Deliver(ctx, rw.URL, auth, payload); err != nil {
		d.recordAttempt(ctx, buy, notificationType, seq, models.WebhookDeliveryStatusFailed)
		if d.cfg.Metrics != nil {
			d.cfg.Metrics.IncrementWebhookDelivery(notificationType, "failed")
		}
		return fmt.Errorf("send webhook: %w", err)
	}

	d.recordAttempt(ctx, buy, notificationType, seq, models.WebhookDeliveryStatusDelivered)
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.IncrementWebhookDelivery(notificationType, "delivered")
	}
	return nil
}

// resolveAuth prefers a registered PushNotificationConfig over the inline
// credentials a buyer supplied with the original request.
func (d *DeliveryScheduler) resolveAuth(ctx context.Context, buy models.MediaBuy, rw lifecycle.ReportingWebhook) webhook.Authentication {
	cfg, err := d.cfg.Store.LoadPushNotificationConfig(ctx, buy.TenantID, buy.PrincipalID)
	if err == nil && cfg != nil && cfg.IsActive && cfg.URL == rw.URL {
		return webhook.Authentication{Type: "bearer", Token: cfg.AuthenticationToken}
	}
	if rw.Authentication != nil {
		return webhook.Authentication{Type: rw.Authentication.Type, Token: rw.Authentication.Token}
	}
	return webhook.Authentication{Type: "jwt"}
}

func (d *DeliveryScheduler) recordAttempt(ctx context.Context, buy models.MediaBuy, notificationType string, seq int, status string) {
	entry := models.WebhookDeliveryLog{
		MediaBuyID:       buy.MediaBuyID,
		TaskType:         deliveryTaskType,
		NotificationType: notificationType,
		SequenceNumber:   seq,
		Status:           status,
	}
	if err := d.cfg.Store.InsertWebhookDeliveryLog(ctx, buy.TenantID, entry); err != nil {
		d.logf("insert delivery log %s: %v", buy.MediaBuyID, err)
	}
}

func (d *DeliveryScheduler) reportingWebhook(buy models.MediaBuy) (*lifecycle.ReportingWebhook, bool) {
	if len(buy.RawRequest) == 0 {
		return nil, false
	}
	var req lifecycle.CreateMediaBuyRequest
	if err := json.Unmarshal(buy.RawRequest, &req); err != nil {
		d.logf("unmarshal raw_request for %s: %v", buy.MediaBuyID, err)
		return nil, false
	}
	if req.ReportingWebhook == nil {
		return nil, false
	}
	return req.ReportingWebhook, true
}

func (d *DeliveryScheduler) logf(format string, args ...any) {
	if d.cfg.Logger == nil {
		return
	}
	d.cfg.Logger.Sugar().Warnf(format, args...)
}
