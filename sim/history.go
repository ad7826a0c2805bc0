package sim

// History keeps the most recent delivery snapshots, evicting the oldest once
// Capacity entries are stored.
type History struct {
	capacity int
	entries  []FeatureVector
}

// NewHistory creates a History. Panics if capacity < 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		panic("NewHistory: capacity must be >= 1")
	}
	return &History{capacity: capacity}
}

// Add records a snapshot, evicting the oldest when full.
func (h *History) Add(fv FeatureVector) {
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, fv.Clone())
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	return len(h.entries)
}

// Example builds a training example from the newest snapshot and the
// snapshots preceding it. Returns a zero example if the history is empty.
func (h *History) Example(reward, threshold int) TrainingExample {
	if len(h.entries) == 0 {
		return TrainingExample{Reward: reward, Label: LabelFor(reward, threshold)}
	}
	last := len(h.entries) - 1
	earlier := make([]FeatureVector, 0, last)
	for _, fv := range h.entries[:last] {
		earlier = append(earlier, fv.Clone())
	}
	return TrainingExample{
		Features: h.entries[last].Clone(),
		History:  earlier,
		Reward:   reward,
		Label:    LabelFor(reward, threshold),
	}
}
