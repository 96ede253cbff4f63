package kitchen

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/logger"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/mq"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
)

// Ticket is what the kitchen displays get when an order settles.
type Ticket struct {
	TableID   string       `json:"table_id"`
	TableName string       `json:"table_name"`
	Employee  string       `json:"employee"`
	Items     []TicketItem `json:"items"`
	SentAt    time.Time    `json:"sent_at"`
}

type TicketItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

// Dispatcher publishes tickets to the kitchen fanout exchange. The sale
// never depends on it: callers treat errors as warnings.
type Dispatcher struct {
	mq *mq.Client
	lg *logger.Logger
}

func NewDispatcher(client *mq.Client, lg *logger.Logger) *Dispatcher {
	return &Dispatcher{mq: client, lg: lg}
}

func (d *Dispatcher) Dispatch(ctx context.Context, tableID, tableName, employee string, items []domain.LineItem) error {
	t := Ticket{
		TableID:   tableID,
		TableName: tableName,
		Employee:  employee,
		SentAt:    time.Now().UTC(),
	}
	for _, li := range items {
		t.Items = append(t.Items, TicketItem{Name: li.Name, Quantity: li.Quantity, Note: li.Note})
	}
	body, err := json.Marshal(t)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := d.mq.Publish(pubCtx, mq.KitchenExchange, "", body); err != nil {
		return err
	}
	d.lg.Debug("kitchen_ticket_sent", map[string]any{"table_id": tableID, "items": len(t.Items)})
	return nil
}
