package grocery

import "time"

// DepletedEvent is emitted when cooking consumed the whole of a stock row and the row was removed.
type DepletedEvent struct {
	UserID     string    `json:"userId"`
	ItemID     string    `json:"itemId"`
	Name       string    `json:"name"`
	Unit       string    `json:"unit"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e DepletedEvent) PartitionKey() string { return e.UserID }

func (DepletedEvent) EventName() string { return "grocery.depleted" }

func NewDepletedEvent(item *Item) DepletedEvent {
	return DepletedEvent{
		UserID:     item.UserID,
		ItemID:     item.ID,
		Name:       item.Name,
		Unit:       item.Unit,
		OccurredAt: time.Now().UTC(),
	}
}
