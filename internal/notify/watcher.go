package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// Watcher consumes the event bus and forwards market lifecycle events to a
// Notifier. Which event types are announced is controlled by the Notifier's
// allowed-event filter.
type Watcher struct {
	bus      domain.EventBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewWatcher creates a Watcher over the given bus and notifier.
func NewWatcher(bus domain.EventBus, notifier *Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_watcher")),
	}
}

// Run subscribes to the bus and dispatches notifications until ctx is
// cancelled or the subscription closes.
func (w *Watcher) Run(ctx context.Context) error {
	events, err := w.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("notify: subscribe: %w", err)
	}
	w.logger.Info("notify: watcher started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			title, message := format(e)
			if err := w.notifier.Notify(ctx, string(e.Type), title, message); err != nil {
				w.logger.WarnContext(ctx, "notify: dispatch failed",
					slog.String("event", string(e.Type)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// format renders an event into a notification title and body.
func format(e domain.Event) (title, message string) {
	switch e.Type {
	case domain.EventPlatformInitialized:
		return "Platform initialized", "The market platform is live."
	case domain.EventMarketCreated:
		return "Market created", fmt.Sprintf("Market %d opened for trading.", e.MarketID)
	case domain.EventOutcomePurchased:
		return "Outcome purchased", fmt.Sprintf("Buy on market %d.", e.MarketID)
	case domain.EventOutcomeSold:
		return "Outcome sold", fmt.Sprintf("Sell on market %d.", e.MarketID)
	case domain.EventMarketResolved:
		return "Market resolved", fmt.Sprintf("Market %d has been resolved.", e.MarketID)
	case domain.EventMarketCancelled:
		return "Market cancelled", fmt.Sprintf("Market %d was cancelled; holders can redeem refunds.", e.MarketID)
	case domain.EventWinningsRedeemed:
		return "Winnings redeemed", fmt.Sprintf("Payout on market %d.", e.MarketID)
	case domain.EventCancelledRedeemed:
		return "Refund redeemed", fmt.Sprintf("Refund on market %d.", e.MarketID)
	default:
		return string(e.Type), fmt.Sprintf("Event on market %d.", e.MarketID)
	}
}
