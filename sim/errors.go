package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeInventory means a buffer or the finished-goods pool would drop
	// below zero. It always aborts the run.
	ErrNegativeInventory = errors.New("negative inventory")

	// ErrInvalidConfiguration is returned when a model cannot be built from its configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrPolicyDecisionFailed wraps errors raised by DispatchPolicy.Decide.
	// The machine keeps its current product type instead.
	ErrPolicyDecisionFailed = errors.New("policy decision failed")

	// ErrPolicyTrainingFailed wraps errors raised by DispatchPolicy.Train.
	// The examples stay buffered for the next learning turn.
	ErrPolicyTrainingFailed = errors.New("policy training failed")
)

// InventoryError describes a rejected inventory withdrawal.
type InventoryError struct {
	Where       string // e.g. "layer 1 buffer", "finished products"
	ProductType int
	Have        int
	Want        int
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("%s: product %d has %d units, cannot take %d", e.Where, e.ProductType, e.Have, e.Want)
}

func (e *InventoryError) Unwrap() error {
	return ErrNegativeInventory
}

// invalidConfig formats an ErrInvalidConfiguration with context.
func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
