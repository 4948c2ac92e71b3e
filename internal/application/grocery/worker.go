package grocery

import (
	"context"

	domain "github.com/pantrychef/pantry/internal/domain/grocery"
	domoutbox "github.com/pantrychef/pantry/internal/domain/outbox"
	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/observability/logctx"
)

// DepletionWorker records stock rows that cooking used up.
type DepletionWorker struct {
	subscriber domoutbox.Subscriber
	depleted   observability.Counter // grocery_items_depleted_total
	log        observability.Logger
}

func NewDepletionWorker(subscriber domoutbox.Subscriber, tel observability.Observability) *DepletionWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &DepletionWorker{
		subscriber: subscriber,
		depleted:   tel.Metrics().Counter(observability.MGroceryDepleted),
		log:        tel.Logger().With(observability.F("service", "grocery_depletion_worker")),
	}
}

func (w *DepletionWorker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domain.DepletedEvent{}.EventName(), w.handleDepleted)
}

func (w *DepletionWorker) handleDepleted(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domain.DepletedEvent)
	if !ok {
		return nil
	}
	w.depleted.Add(1)
	logctx.FromOr(ctx, w.log).Info("grocery_depleted",
		observability.F("user_id", evt.UserID),
		observability.F("item_id", evt.ItemID),
		observability.F("name", evt.Name),
	)
	return nil
}
