package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/brigade-pos/brigade/internal/lowstock"
)

// LowStockNotifier turns sweep findings into queued alert emails.
type LowStockNotifier struct {
	Client *Client
	To     string
}

// NewLowStockNotifier constructs the notifier. Alerts go to a single
// operations address; per-restaurant recipients can come later from
// restaurant_settings.
func NewLowStockNotifier(client *Client, to string) *LowStockNotifier {
	return &LowStockNotifier{Client: client, To: to}
}

// NotifyLowStock queues one alert email carrying the whole low list.
func (n *LowStockNotifier) NotifyLowStock(ctx context.Context, restaurantID string, items []lowstock.Item, threshold int) error {
	if n == nil || n.Client == nil || n.To == "" {
		return nil
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Restaurant %s has %d ingredient(s) below the threshold of %d:\n\n", restaurantID, len(items), threshold)
	for _, item := range items {
		fmt.Fprintf(&body, "  - %s: %.2f %s remaining\n", item.Name, item.Remaining, item.Unit)
	}
	_, err := n.Client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      n.To,
		Subject: fmt.Sprintf("Low stock alert: %d ingredient(s) at %s", len(items), restaurantID),
		Body:    body.String(),
	})
	return err
}
