// Package trace records per-turn decisions and order outcomes of a production
// line run for offline analysis.
// This package has no dependencies on sim/ — it stores pure data types.
package trace

// DecisionRecord captures one dispatch decision by a machine.
type DecisionRecord struct {
	Turn      int
	MachineID int
	Previous  int  // product type before the decision (-1 = none)
	Chosen    int  // product type after the decision
	Switched  bool // a switch cost was charged
	Fallback  bool // the policy failed and Previous was kept
}

// DeliveryRecord captures one delivered order.
type DeliveryRecord struct {
	Turn    int
	OrderID int
	Reward  int  // net reward credited
	Late    bool // the penalty was applied
}

// EvictionRecord captures an order dropped by the full order book.
type EvictionRecord struct {
	Turn     int
	OrderID  int
	Priority int
}

// BreakdownRecord captures a machine breakdown.
type BreakdownRecord struct {
	Turn        int
	MachineID   int
	ProductType int  // product the machine was committed to
	Returned    bool // a claimed unit went back to the buffer
}
