package limits

import "fmt"

// Budget counts a resource against an optional limit. A zero limit
// means unlimited; a nil Budget is always unlimited.
type Budget struct {
	limit int64
	used  int64
}

func NewBudget(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.limit
}

func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used
}

type LimitError struct {
	Limit int64
}

func (e LimitError) Error() string {
	return fmt.Sprintf("limit exceeded (%d)", e.Limit)
}

func (b *Budget) Charge(n int64) error {
	if b == nil || n <= 0 {
		return nil
	}
	if b.limit > 0 && b.used+n > b.limit {
		return LimitError{Limit: b.limit}
	}
	b.used += n
	return nil
}

// Release gives back n units; used never drops below zero.
func (b *Budget) Release(n int64) {
	if b == nil || n <= 0 {
		return
	}
	b.used -= n
	if b.used < 0 {
		b.used = 0
	}
}
