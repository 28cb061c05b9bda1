package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/brigade-pos/brigade/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskInventoryDeduct deducts stock for one committed sale.
	TaskInventoryDeduct = "inventory:deduct"
	// TaskLowStockSweep evaluates thresholds and raises alerts.
	TaskLowStockSweep = "lowstock:sweep"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// DeductPayload carries one sale into the deduction worker.
type DeductPayload struct {
	RestaurantID string       `json:"restaurantId"`
	SourceID     string       `json:"sourceId"`
	SourceType   string       `json:"sourceType"`
	Items        []DeductLine `json:"items"`
}

// DeductLine is one sold item inside a deduction payload.
type DeductLine struct {
	ItemID   string  `json:"itemId"`
	ItemName string  `json:"itemName"`
	Quantity int     `json:"quantity"`
	Size     string  `json:"size,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// NewDeductTask constructs an Asynq task from a deduction input.
func NewDeductTask(input inventory.DeductionInput) (*asynq.Task, error) {
	payload := DeductPayload{
		RestaurantID: input.RestaurantID,
		SourceID:     input.SourceID,
		SourceType:   input.SourceType,
	}
	for _, item := range input.Items {
		payload.Items = append(payload.Items, DeductLine{
			ItemID:   item.ItemID,
			ItemName: item.ItemName,
			Quantity: item.Quantity,
			Size:     item.Size,
			Price:    item.Price,
		})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryDeduct, data), nil
}

// Input converts the payload back into the engine's input type.
func (p DeductPayload) Input() inventory.DeductionInput {
	input := inventory.DeductionInput{
		RestaurantID: p.RestaurantID,
		SourceID:     p.SourceID,
		SourceType:   p.SourceType,
	}
	for _, line := range p.Items {
		input.Items = append(input.Items, inventory.SoldItem{
			ItemID:   line.ItemID,
			ItemName: line.ItemName,
			Quantity: line.Quantity,
			Size:     line.Size,
			Price:    line.Price,
		})
	}
	return input
}

// SweepPayload selects the sweep scope. An empty restaurant id sweeps all.
type SweepPayload struct {
	RestaurantID string `json:"restaurantId,omitempty"`
}

// NewLowStockSweepTask constructs an Asynq task.
func NewLowStockSweepTask(payload SweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockSweep, data), nil
}
