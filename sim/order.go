// Defines the Order struct that models a customer order moving through the order book.
// Tracks demand, due time and the reward/penalty terms settled on delivery.

package sim

import (
	"fmt"
)

// OrderState represents the lifecycle state of an order.
type OrderState string

const (
	OrderPending   OrderState = "pending"
	OrderDelivered OrderState = "delivered"
	OrderEvicted   OrderState = "evicted"
)

// Order is a demand record. Only DueTime and State change after creation.
type Order struct {
	ID       int   // Unique identifier, assigned by the model's IDAllocator
	Demand   []int // Units required per product type
	DueTime  int   // Turns left before the order is late; decremented once per turn while pending
	Reward   int   // Fixed payment on full delivery
	Penalty  int   // Subtracted from the payment when delivered with DueTime <= 0
	Priority int   // Higher priority orders are kept when the order book is full

	ArrivalTurn   int        // Turn the order entered the order book
	DeliveredTurn int        // Turn the order was delivered (valid when State == OrderDelivered)
	State         OrderState // pending, delivered, evicted
}

// NewOrder creates a pending order. The demand slice is copied.
func NewOrder(demand []int, dueTime, reward, penalty, priority int) *Order {
	d := make([]int, len(demand))
	copy(d, demand)
	return &Order{
		Demand:   d,
		DueTime:  dueTime,
		Reward:   reward,
		Penalty:  penalty,
		Priority: priority,
		State:    OrderPending,
	}
}

// Validate checks that the demand vector is non-negative and non-empty.
func (o *Order) Validate(productTypes int) error {
	if len(o.Demand) != productTypes {
		return invalidConfig("order demand has %d product types, want %d", len(o.Demand), productTypes)
	}
	total := 0
	for p, n := range o.Demand {
		if n < 0 {
			return invalidConfig("order demand for product %d is negative (%d)", p, n)
		}
		total += n
	}
	if total == 0 {
		return invalidConfig("order demands no units")
	}
	return nil
}

// Units returns the total number of units demanded.
func (o *Order) Units() int {
	total := 0
	for _, n := range o.Demand {
		total += n
	}
	return total
}

// Value prices the demand: sum of demand[i] * prices[i].
func (o *Order) Value(prices []int) int {
	value := 0
	for p, n := range o.Demand {
		value += n * prices[p]
	}
	return value
}

// Late reports whether a delivery now would incur the penalty.
func (o *Order) Late() bool {
	return o.DueTime <= 0
}

// Payout is the net reward for delivering the order now.
func (o *Order) Payout(prices []int) int {
	payout := o.Reward + o.Value(prices)
	if o.Late() {
		payout -= o.Penalty
	}
	return payout
}

func (o Order) String() string {
	return fmt.Sprintf("Order: (ID: %d, Demand: %v, DueTime: %d, Reward: %d, Penalty: %d, Priority: %d, State: %s)",
		o.ID, o.Demand, o.DueTime, o.Reward, o.Penalty, o.Priority, o.State)
}
