package sim

// DispatchPolicy decides which product type an idle machine produces next and
// learns from delivery outcomes. Implementations live outside the core
// (see sim/policy) and are injected per machine at construction time.
type DispatchPolicy interface {
	// Decide returns the product type machineID should work on, given the
	// current FeatureVector. The result must lie in [0, productTypes); anything
	// else counts as a failed decision.
	Decide(features FeatureVector, machineID int) (int, error)

	// Train receives every example accumulated since the previous successful
	// call. A returned error leaves the examples queued for the next attempt.
	Train(examples []TrainingExample) error
}

// Label is the outcome class attached to a training example.
type Label string

const (
	LabelGood Label = "GOOD"
	LabelBad  Label = "BAD"
)

// LabelFor thresholds a net reward into a Label.
func LabelFor(reward, threshold int) Label {
	if reward > threshold {
		return LabelGood
	}
	return LabelBad
}

// TrainingExample pairs the observed state at a delivery with its outcome.
type TrainingExample struct {
	Turn     int             // turn of the delivery
	OrderID  int             // delivered order
	Features FeatureVector   // state snapshot at delivery, same layout as decisions
	History  []FeatureVector // earlier delivery snapshots, oldest first (may be empty)
	Reward   int             // net reward of the delivery
	Label    Label
}
