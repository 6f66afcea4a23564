package worker

import (
	"github.com/spec-kit/estates-web/internal/service"
)

// StartNotificationWorker registers the mail handlers on the dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
