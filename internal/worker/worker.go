package worker

import (
	"context"
	"errors"
	"log"

	"approval-gateway/internal/broker"
	"approval-gateway/internal/models"
	"approval-gateway/internal/service"
	"approval-gateway/internal/store"
)

// ApprovalWorker consumes order submissions from the checkout topic and runs
// them through the same approval path the HTTP endpoint uses.
type ApprovalWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	approval     *service.ApprovalService
	store        *store.Store
}

// NewApprovalWorker creates a new approval worker
func NewApprovalWorker(
	consumer *broker.Consumer,
	approval *service.ApprovalService,
	store *store.Store,
) *ApprovalWorker {
	w := &ApprovalWorker{
		consumer: consumer,
		approval: approval,
		store:    store,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderSubmitted(w.handleOrderSubmitted)
	w.eventHandler = eventHandler

	return w
}

// handleOrderSubmitted evaluates a submitted order. Kafka delivery is
// at-least-once, so orders no longer in pending status are skipped instead
// of re-evaluated.
func (w *ApprovalWorker) handleOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error {
	order, err := w.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		log.Printf("Order lookup failed for submission event: order=%s err=%v", event.OrderID, err)
		return err
	}
	if order.Status != models.OrderStatusPending {
		log.Printf("Skipping already decided order: order=%s status=%s", order.ID, order.Status)
		return nil
	}

	items := make([]service.ItemRequest, len(event.Items))
	for i, item := range event.Items {
		items[i] = service.ItemRequest{VariantID: item.VariantID, Quantity: item.Quantity}
	}

	req := &service.ApproveOrderRequest{
		OrderID:      event.OrderID,
		CustomerData: service.CustomerData{Email: event.Email},
		Items:        items,
		TotalAmount:  event.TotalAmount,
	}

	decision, err := w.approval.EvaluateOrder(ctx, req)
	if err != nil {
		// Malformed submissions cannot succeed on redelivery; commit them.
		if errors.Is(err, service.ErrInvalidRequest) {
			log.Printf("Dropping invalid submission event: order=%s", event.OrderID)
			return nil
		}
		return err
	}

	log.Printf("Processed order submission: order=%s approved=%t reason=%s",
		event.OrderID, decision.Approved, decision.Reason)
	return nil
}

// Start starts the worker
func (w *ApprovalWorker) Start(ctx context.Context) error {
	log.Println("Starting approval worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ApprovalWorker) Stop() error {
	log.Println("Stopping approval worker...")
	return w.consumer.Close()
}
