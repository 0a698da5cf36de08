package rest

import (
	"context"
	"errors"

	"github.com/AzielCF/az-aiwa/botengine"
	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	"github.com/AzielCF/az-aiwa/infrastructure/whatsapp"
	"github.com/AzielCF/az-aiwa/pkg/crypto"
	pkgError "github.com/AzielCF/az-aiwa/pkg/error"
	"github.com/AzielCF/az-aiwa/pkg/metrics"
	"github.com/AzielCF/az-aiwa/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Submitter accepts a parsed message for background processing.
// *botengine.Engine implements it.
type Submitter interface {
	Submit(ctx context.Context, msg domainChat.InboundMessage) (botengine.SubmitOutcome, error)
}

type WebhookConfig struct {
	VerifyToken string
	AppSecret   string
	Allow       *whatsapp.AllowList
	Debug       bool
}

type Webhook struct {
	Engine Submitter
	cfg    WebhookConfig
}

func InitRestWebhook(app fiber.Router, engine Submitter, cfg WebhookConfig) Webhook {
	handler := Webhook{Engine: engine, cfg: cfg}
	app.Get("/webhook", handler.Verify)
	app.Post("/webhook", handler.Receive)
	return handler
}

// Verify answers the Cloud API subscription handshake.
func (h *Webhook) Verify(c *fiber.Ctx) error {
	challenge, err := whatsapp.VerifySubscription(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
		h.cfg.VerifyToken,
	)
	if err != nil {
		var gerr pkgError.GenericError
		if errors.As(err, &gerr) {
			logrus.Warnf("[WEBHOOK] Verification rejected: %v", err)
			return c.Status(gerr.StatusCode()).JSON(utils.ResponseData{
				Status:  gerr.StatusCode(),
				Code:    gerr.ErrCode(),
				Message: gerr.Error(),
			})
		}
		return err
	}

	logrus.Info("[WEBHOOK] Subscription verified")
	return c.Status(fiber.StatusOK).SendString(challenge)
}

// Receive always acknowledges with 200 so the Cloud API does not redeliver;
// processing continues in the background.
func (h *Webhook) Receive(c *fiber.Ctx) error {
	body := c.Body()
	if h.cfg.Debug {
		logrus.Debugf("[WEBHOOK] Delivery received: %s", string(body))
	}

	if !crypto.VerifySignature(c.Get("X-Hub-Signature-256"), body, h.cfg.AppSecret) {
		metrics.InboundTotal.WithLabelValues("rejected").Inc()
		logrus.Warn("[WEBHOOK] Delivery with invalid signature ignored")
		return ok(c)
	}

	msg, parsed := whatsapp.ParseInbound(body)
	if !parsed {
		metrics.InboundTotal.WithLabelValues("ignored").Inc()
		return ok(c)
	}

	if !h.cfg.Allow.Allowed(msg.SenderID) {
		metrics.InboundTotal.WithLabelValues("filtered").Inc()
		logrus.WithField("sender", msg.SenderSuffix()).Debug("[WEBHOOK] Sender not in allowed contacts, ignored")
		return ok(c)
	}

	logrus.WithFields(logrus.Fields{
		"message_id": msg.MessageID,
		"sender":     msg.SenderSuffix(),
	}).Infof("[WEBHOOK] New message: %s", preview(msg.Body, 50))

	outcome, err := h.Engine.Submit(c.UserContext(), msg)
	if err != nil {
		logrus.WithError(err).WithField("message_id", msg.MessageID).Error("[WEBHOOK] Failed to submit message")
		return ok(c)
	}
	if outcome == botengine.OutcomeDropped {
		logrus.WithField("message_id", msg.MessageID).Warn("[WEBHOOK] Worker queue full, message dropped")
	}
	return ok(c)
}

func ok(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "OK"})
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
