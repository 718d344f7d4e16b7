package reactive

// BoolSignal wraps Signal[bool] with convenience methods.
type BoolSignal struct {
	*Signal[bool]
}

// NewBoolSignal creates a new BoolSignal with the given initial value.
func NewBoolSignal(initial bool) *BoolSignal {
	return &BoolSignal{NewSignal(initial)}
}

// Toggle inverts the boolean value.
func (s *BoolSignal) Toggle() {
	s.Update(func(b bool) bool { return !b })
}

// SetTrue sets the value to true.
func (s *BoolSignal) SetTrue() {
	s.Set(true)
}

// SetFalse sets the value to false.
func (s *BoolSignal) SetFalse() {
	s.Set(false)
}

// Float64Signal wraps Signal[float64] with convenience methods.
type Float64Signal struct {
	*Signal[float64]
}

// NewFloat64Signal creates a new Float64Signal with the given initial value.
func NewFloat64Signal(initial float64) *Float64Signal {
	return &Float64Signal{NewSignal(initial)}
}

// Add adds n to the value.
func (s *Float64Signal) Add(n float64) {
	s.Update(func(v float64) float64 { return v + n })
}

// SliceSignal wraps Signal[[]T] with convenience methods for ordered sets.
type SliceSignal[T any] struct {
	*Signal[[]T]
}

// NewSliceSignal creates a new SliceSignal. A nil initial becomes an empty
// slice so Get never returns nil.
func NewSliceSignal[T any](initial []T) *SliceSignal[T] {
	if initial == nil {
		initial = []T{}
	}
	return &SliceSignal[T]{NewSignal(initial)}
}

// Append adds an item to the end of the slice.
func (s *SliceSignal[T]) Append(item T) {
	s.Update(func(items []T) []T {
		return append(items, item)
	})
}

// AppendAll adds multiple items to the end of the slice.
func (s *SliceSignal[T]) AppendAll(items ...T) {
	s.Update(func(current []T) []T {
		return append(current, items...)
	})
}

// RemoveAt removes the item at index, preserving the order of the rest.
// Out-of-range indexes are a no-op.
func (s *SliceSignal[T]) RemoveAt(index int) {
	s.Update(func(items []T) []T {
		if index < 0 || index >= len(items) {
			return items
		}
		result := make([]T, 0, len(items)-1)
		result = append(result, items[:index]...)
		result = append(result, items[index+1:]...)
		return result
	})
}

// Truncate drops items beyond n. A no-op when the slice is already shorter.
func (s *SliceSignal[T]) Truncate(n int) {
	s.Update(func(items []T) []T {
		if n < 0 || n >= len(items) {
			return items
		}
		return items[:n]
	})
}

// Clear removes all items.
func (s *SliceSignal[T]) Clear() {
	s.Set([]T{})
}

// Len returns the slice length. Reads the signal, so it creates a dependency
// inside tracked contexts.
func (s *SliceSignal[T]) Len() int {
	return len(s.Get())
}
