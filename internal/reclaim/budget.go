package reclaim

// ByteBudget is the remaining number of bytes a reclamation pass may free.
// It is a value type: Spend returns the depleted budget instead of mutating
// shared state, so the depletion order across targets stays auditable.
// A budget is never replenished within a run.
type ByteBudget struct {
	remaining int64
}

// NewByteBudget creates a budget of n bytes. Negative values clamp to zero.
func NewByteBudget(n int64) ByteBudget {
	if n < 0 {
		n = 0
	}
	return ByteBudget{remaining: n}
}

// MBToBytes converts a configured megabyte limit to bytes.
func MBToBytes(mb int64) int64 {
	return mb * 1024 * 1024
}

// Remaining returns the bytes left in the budget.
func (b ByteBudget) Remaining() int64 {
	return b.remaining
}

// Exhausted reports whether the budget has no bytes left.
func (b ByteBudget) Exhausted() bool {
	return b.remaining <= 0
}

// Spend returns the budget reduced by n bytes, floored at zero. Spending can
// legitimately exceed the remainder: the engine checks the budget before a
// deletion, not after, so the last deleted file may overshoot.
func (b ByteBudget) Spend(n int64) ByteBudget {
	if n <= 0 {
		return b
	}
	remaining := b.remaining - n
	if remaining < 0 {
		remaining = 0
	}
	return ByteBudget{remaining: remaining}
}
