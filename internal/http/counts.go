package http

import "github.com/fyrsmithlabs/managerd/internal/services"

// CountFromRegistry counts the stored collections and live notifications.
// It returns nil when the registry is missing a service.
func CountFromRegistry(reg services.Registry) *StatusCounts {
	if reg == nil || reg.Chat() == nil || reg.Entities() == nil || reg.Notifier() == nil {
		return nil
	}
	return &StatusCounts{
		Messages:      len(reg.Chat().History()),
		Tasks:         len(reg.Entities().Tasks()),
		Transactions:  len(reg.Entities().Transactions()),
		Notifications: len(reg.Notifier().List()),
	}
}
