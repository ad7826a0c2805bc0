// Implements the OrderBook, which holds outstanding orders ranked by priority.

package sim

import (
	"fmt"
	"sort"
	"strings"
)

// OrderBook is a bounded collection of pending orders kept in priority order
// (highest first, ties by lower ID first). When full, an incoming order
// replaces the lowest-priority order only if its priority is strictly higher;
// otherwise the incoming order itself is dropped.
type OrderBook struct {
	capacity int
	orders   []*Order
}

// NewOrderBook creates an empty order book. Panics if capacity < 1.
func NewOrderBook(capacity int) *OrderBook {
	if capacity < 1 {
		panic(fmt.Sprintf("NewOrderBook: capacity must be >= 1, got %d", capacity))
	}
	return &OrderBook{capacity: capacity, orders: make([]*Order, 0, capacity)}
}

// Capacity returns the maximum number of orders held.
func (ob *OrderBook) Capacity() int {
	return ob.capacity
}

// Len returns the number of pending orders.
func (ob *OrderBook) Len() int {
	return len(ob.orders)
}

// Offer inserts an order. It returns whether the order was kept and the order
// that was dropped as a result (the lowest-priority resident or the offered
// order itself), or nil if nothing was dropped. Dropped orders are marked
// OrderEvicted.
func (ob *OrderBook) Offer(o *Order) (accepted bool, evicted *Order) {
	if len(ob.orders) >= ob.capacity {
		lowest := ob.orders[len(ob.orders)-1]
		if o.Priority <= lowest.Priority {
			o.State = OrderEvicted
			return false, o
		}
		ob.orders = ob.orders[:len(ob.orders)-1]
		lowest.State = OrderEvicted
		evicted = lowest
	}
	idx := sort.Search(len(ob.orders), func(i int) bool {
		return ranksBefore(o, ob.orders[i])
	})
	ob.orders = append(ob.orders, nil)
	copy(ob.orders[idx+1:], ob.orders[idx:])
	ob.orders[idx] = o
	return true, evicted
}

// ranksBefore orders by priority descending, then ID ascending.
func ranksBefore(a, b *Order) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.ID < b.ID
}

// Remove deletes the order with the given ID. Returns false if absent.
func (ob *OrderBook) Remove(id int) bool {
	for i, o := range ob.orders {
		if o.ID == id {
			ob.orders = append(ob.orders[:i], ob.orders[i+1:]...)
			return true
		}
	}
	return false
}

// Peek returns the highest-priority order, or nil if empty.
func (ob *OrderBook) Peek() *Order {
	if len(ob.orders) == 0 {
		return nil
	}
	return ob.orders[0]
}

// Items returns the pending orders in priority order.
// The returned slice is a copy; the orders themselves are shared.
func (ob *OrderBook) Items() []*Order {
	out := make([]*Order, len(ob.orders))
	copy(out, ob.orders)
	return out
}

// Age decrements the due time of every pending order by one turn.
func (ob *OrderBook) Age() {
	for _, o := range ob.orders {
		o.DueTime--
	}
}

func (ob *OrderBook) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, o := range ob.orders {
		sb.WriteString(fmt.Sprint(*o))
		if i < len(ob.orders)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
