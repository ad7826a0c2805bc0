package sim

import "fmt"

// FeatureVector is the observable state handed to a DispatchPolicy.
//
// Layout (layer-major, stable for a run):
//
//	for each layer in order:
//	    one health scalar per machine in list order (1 = operational, 0 = broken)
//	    one buffer-occupancy scalar per product type
//
// Use FeatureLayout to locate individual entries.
type FeatureVector []float64

// Clone returns an independent copy.
func (fv FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(fv))
	copy(out, fv)
	return out
}

// FeatureLayout maps machines and layer buffers to FeatureVector indices.
type FeatureLayout struct {
	productTypes int
	width        int
	machineIDs   [][]int     // per layer, machine IDs in list order
	bufferStart  []int       // per layer, index of buffer slot for product 0
	healthIndex  map[int]int // machine ID -> vector index
	machineLayer map[int]int // machine ID -> layer index
}

// NewFeatureLayout builds a layout from per-layer machine IDs.
func NewFeatureLayout(machineIDs [][]int, productTypes int) *FeatureLayout {
	l := &FeatureLayout{
		productTypes: productTypes,
		machineIDs:   make([][]int, len(machineIDs)),
		bufferStart:  make([]int, len(machineIDs)),
		healthIndex:  make(map[int]int),
		machineLayer: make(map[int]int),
	}
	idx := 0
	for layer, ids := range machineIDs {
		l.machineIDs[layer] = append([]int(nil), ids...)
		for _, id := range ids {
			l.healthIndex[id] = idx
			l.machineLayer[id] = layer
			idx++
		}
		l.bufferStart[layer] = idx
		idx += productTypes
	}
	l.width = idx
	return l
}

// SequentialFeatureLayout is the layout of a model whose machines were numbered
// 0, 1, 2, ... in layer order, which is how NewModel assigns machine IDs.
// It lets a policy be built before the model it will serve.
func SequentialFeatureLayout(machinesPerLayer []int, productTypes int) *FeatureLayout {
	ids := make([][]int, len(machinesPerLayer))
	next := 0
	for layer, n := range machinesPerLayer {
		for i := 0; i < n; i++ {
			ids[layer] = append(ids[layer], next)
			next++
		}
	}
	return NewFeatureLayout(ids, productTypes)
}

// Width returns the FeatureVector length.
func (l *FeatureLayout) Width() int { return l.width }

// ProductTypes returns the number of product types.
func (l *FeatureLayout) ProductTypes() int { return l.productTypes }

// LayerCount returns the number of layers.
func (l *FeatureLayout) LayerCount() int { return len(l.machineIDs) }

// MachineIDs returns the machine IDs of a layer in list order.
func (l *FeatureLayout) MachineIDs(layer int) []int {
	return append([]int(nil), l.machineIDs[layer]...)
}

// HealthIndex returns the vector index of a machine's health flag.
func (l *FeatureLayout) HealthIndex(machineID int) (int, bool) {
	idx, ok := l.healthIndex[machineID]
	return idx, ok
}

// LayerOf returns the layer index a machine belongs to.
func (l *FeatureLayout) LayerOf(machineID int) (int, bool) {
	layer, ok := l.machineLayer[machineID]
	return layer, ok
}

// BufferIndex returns the vector index of a layer's buffer slot for productType.
func (l *FeatureLayout) BufferIndex(layer, productType int) int {
	return l.bufferStart[layer] + productType
}

// Names returns a human-readable name for every vector index.
func (l *FeatureLayout) Names() []string {
	names := make([]string, 0, l.width)
	for layer, ids := range l.machineIDs {
		for _, id := range ids {
			names = append(names, fmt.Sprintf("health_m%d", id))
		}
		for p := 0; p < l.productTypes; p++ {
			names = append(names, fmt.Sprintf("buffer_l%d_p%d", layer, p))
		}
	}
	return names
}
