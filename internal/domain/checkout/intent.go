package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// IntentStatus is the saga state of one checkout attempt
type IntentStatus string

const (
	IntentStarted             IntentStatus = "STARTED"
	IntentCompleted           IntentStatus = "COMPLETED"
	IntentFailed              IntentStatus = "FAILED"
	IntentNeedsReconciliation IntentStatus = "NEEDS_RECONCILIATION"
)

// Step names a store write performed by checkout, in the order they happen
type Step string

const (
	StepInventory Step = "INVENTORY"
	StepCatalog   Step = "CATALOG"
	StepOrder     Step = "ORDER"
	StepCart      Step = "CART"
)

// Intent records which store writes of a checkout have completed. The three stores
// are not covered by one transaction, so a crashed or partially failed checkout is
// recovered by reading this record.
type Intent struct {
	ID             uuid.UUID
	IdempotencyKey string
	CustomerID     uuid.UUID
	Strategy       string
	Status         IntentStatus
	CompletedSteps []Step
	OrderID        *uuid.UUID
	OrderNumber    string
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewIntent starts a saga record
func NewIntent(customerID uuid.UUID, strategy, idempotencyKey string) *Intent {
	now := time.Now()
	return &Intent{
		ID:             uuid.New(),
		IdempotencyKey: idempotencyKey,
		CustomerID:     customerID,
		Strategy:       strategy,
		Status:         IntentStarted,
		CompletedSteps: make([]Step, 0, 4),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasStep reports whether step already completed
func (i *Intent) HasStep(step Step) bool {
	for _, s := range i.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// MarkStep records a completed store write
func (i *Intent) MarkStep(step Step) {
	if i.HasStep(step) {
		return
	}
	i.CompletedSteps = append(i.CompletedSteps, step)
	i.UpdatedAt = time.Now()
}

// AttachOrder records the order built by this checkout
func (i *Intent) AttachOrder(orderID uuid.UUID, orderNumber string) {
	i.OrderID = &orderID
	i.OrderNumber = orderNumber
	i.UpdatedAt = time.Now()
}

// Complete closes the saga successfully
func (i *Intent) Complete() {
	i.Status = IntentCompleted
	i.LastError = ""
	i.UpdatedAt = time.Now()
}

// Fail closes the saga. When any store was already written the intent is left for
// reconciliation instead of being marked failed.
func (i *Intent) Fail(err error) {
	if err != nil {
		i.LastError = err.Error()
	}
	if len(i.CompletedSteps) > 0 {
		i.Status = IntentNeedsReconciliation
	} else {
		i.Status = IntentFailed
	}
	i.UpdatedAt = time.Now()
}

// FlagForReconciliation marks a completed checkout whose secondary writes failed
func (i *Intent) FlagForReconciliation(reason string) {
	i.Status = IntentNeedsReconciliation
	i.LastError = reason
	i.UpdatedAt = time.Now()
}

// Restart reopens a failed intent so its idempotency key can be retried. Only
// intents that never wrote to a store can be restarted.
func (i *Intent) Restart() error {
	if i.Status != IntentFailed || len(i.CompletedSteps) > 0 {
		return shared.ErrInvalidState.WithDetail("intent_status", string(i.Status))
	}
	i.Status = IntentStarted
	i.LastError = ""
	i.UpdatedAt = time.Now()
	return nil
}

// IsTerminal returns true once no further checkout work will touch the intent
func (i *Intent) IsTerminal() bool {
	return i.Status == IntentCompleted || i.Status == IntentFailed
}

// IsStale returns true for an unfinished intent older than maxAge
func (i *Intent) IsStale(now time.Time, maxAge time.Duration) bool {
	return i.Status == IntentStarted && now.Sub(i.UpdatedAt) > maxAge
}

// Validate checks the record before persisting
func (i *Intent) Validate() error {
	if i.CustomerID == uuid.Nil {
		return shared.NewValidationError("Checkout intent needs a customer")
	}
	return nil
}
