package sim

// OrderSource supplies the orders arriving at a turn. Returned orders are
// owned by the model; IDs are assigned on arrival.
type OrderSource interface {
	Next(turn int) []*Order
}

// TurnStats summarizes one completed turn. Counts are per-turn deltas unless
// noted otherwise.
type TurnStats struct {
	Turn             int
	Arrived          int
	Delivered        int
	Evicted          int
	LateDeliveries   int
	Reward           int // net reward credited this turn
	Penalty          int // penalties subtracted this turn
	Breakdowns       int
	Switches         int
	DecisionFailures int
	TrainingFailures int
	UnitsCompleted   []int // per layer

	QueueSize     int // sum of all layer buffers after the turn
	InProcess     int // claimed units held by machines after the turn
	FinishedGoods int // undelivered finished units after the turn
	OrderBookSize int // pending orders after the turn
	TotalReward   int // cumulative net reward
}

// TurnObserver receives a TurnStats after every completed turn.
type TurnObserver interface {
	ObserveTurn(stats TurnStats)
}
