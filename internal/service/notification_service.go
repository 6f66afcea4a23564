package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/estates-web/internal/events"
	"github.com/spec-kit/estates-web/internal/mailer"
)

// NotificationService turns account events into transactional email.
type NotificationService struct {
	dispatcher events.Dispatcher
	mail       mailer.Mailer
	baseURL    string
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mail mailer.Mailer, baseURL string, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mail:       mail,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to the account events carrying mail payloads.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		n.logger.Error("unexpected payload type", zap.String("event_type", string(event.Type)))
		return nil
	}

	msg := mailer.Message{
		To:      payload.Email,
		ToName:  payload.Name,
		Subject: "Confirma tu cuenta",
		HTML: fmt.Sprintf(confirmBody,
			payload.Name,
			fmt.Sprintf("%s/auth/confirmar/%s", n.baseURL, payload.Token)),
	}
	n.send(ctx, event, msg)
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		n.logger.Error("unexpected payload type", zap.String("event_type", string(event.Type)))
		return nil
	}

	msg := mailer.Message{
		To:      payload.Email,
		ToName:  payload.Name,
		Subject: "Restablece tu contraseña",
		HTML: fmt.Sprintf(resetBody,
			payload.Name,
			fmt.Sprintf("%s/auth/olvide-password/%s", n.baseURL, payload.Token)),
	}
	n.send(ctx, event, msg)
	return nil
}

// send is fire and forget: a delivery failure is logged, never surfaced to
// the user, and never rolls back the mutation that preceded it.
func (n *NotificationService) send(ctx context.Context, event events.Event, msg mailer.Message) {
	if err := n.mail.Send(ctx, msg); err != nil {
		n.logger.Error("mail delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("to", msg.To),
			zap.Error(err))
	}
}

const confirmBody = `<p>Hola %s,</p>
<p>Tu cuenta ya está casi lista, solo debes confirmarla en el siguiente enlace:</p>
<p><a href="%s">Confirmar cuenta</a></p>
<p>Si tú no creaste esta cuenta, puedes ignorar este mensaje.</p>`

const resetBody = `<p>Hola %s,</p>
<p>Has solicitado restablecer tu contraseña. Genera una nueva en el siguiente enlace:</p>
<p><a href="%s">Restablecer contraseña</a></p>
<p>Si tú no solicitaste el cambio, puedes ignorar este mensaje.</p>`
