package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/orderme/internal/config"
	"github.com/spec-kit/orderme/internal/events"
)

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Send(ctx context.Context, to, text string) error
}

// NotificationService reacts to account events, delivering verification
// codes and recording audit lines.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	sms        SMSSender
}

// NewNotificationService creates the service. A nil sender falls back to the
// logging gateway stub.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.VerificationConfig, sms SMSSender) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sms == nil {
		sms = NewLogSMSSender(logger, cfg)
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		sms:        sms,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventVerificationRequested, n.handleVerificationRequested)
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventAdminRegistered, n.handleAdminRegistered)
	n.dispatcher.Subscribe(events.EventTokenRevoked, n.handleTokenRevoked)
}

func (n *NotificationService) handleVerificationRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.VerificationRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	text := fmt.Sprintf("[OrderMe] Your verification code is %s.", payload.Code)
	if err := n.sms.Send(ctx, payload.PhoneNumber, text); err != nil {
		n.logger.Error("verification sms failed",
			zap.String("verification_id", payload.VerificationID),
			zap.String("phone", maskPhone(payload.PhoneNumber)),
			zap.Error(err))
		return err
	}
	return nil
}

func (n *NotificationService) handleUserRegistered(_ context.Context, event events.Event) error {
	n.logger.Info("UserRegistered", zap.String("user_id", event.SubjectID))
	return nil
}

func (n *NotificationService) handleAdminRegistered(_ context.Context, event events.Event) error {
	n.logger.Info("AdminRegistered", zap.String("admin_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTokenRevoked(_ context.Context, event events.Event) error {
	n.logger.Info("TokenRevoked", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

type logSMSSender struct {
	logger *zap.Logger
	cfg    config.VerificationConfig
}

// NewLogSMSSender returns a gateway stub that only logs outgoing messages.
func NewLogSMSSender(logger *zap.Logger, cfg config.VerificationConfig) SMSSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logSMSSender{logger: logger, cfg: cfg}
}

func (s *logSMSSender) Send(_ context.Context, to, _ string) error {
	if strings.TrimSpace(s.cfg.WebhookURL) == "" {
		s.logger.Debug("sms gateway not configured; message dropped", zap.String("to", maskPhone(to)))
		return nil
	}
	s.logger.Debug("sendSMSStub",
		zap.String("url", s.cfg.WebhookURL),
		zap.String("from", s.cfg.SenderNumber),
		zap.String("to", maskPhone(to)))
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
