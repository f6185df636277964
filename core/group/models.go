package group

import (
	"errors"
	"sort"
	"time"
)

var (
	// errors
	ErrNotFound = errors.New("group not found")
)

// Group is an identified collection of trainees and group managers.
// Membership is many-to-many. Like users, groups are created and
// destroyed by the host application.
type Group struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Edge is a single membership fact: user u belongs to group g with a
// given role. It is the unit the membership store mutates; any
// mutation must invalidate derived access caches touching either end.
type Edge struct {
	UserID  int    `json:"user_id"`
	GroupID int    `json:"group_id"`
	Role    string `json:"role"`
}

// IDSet is an unordered set of identifiers. Resolver results are sets:
// idempotent and order-independent.
type IDSet map[int]struct{}

func NewIDSet(ids ...int) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(ids ...int) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s IDSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Union(other IDSet) IDSet {
	res := make(IDSet, len(s)+len(other))
	for id := range s {
		res[id] = struct{}{}
	}
	for id := range other {
		res[id] = struct{}{}
	}
	return res
}

// Intersects reports whether the two sets share at least one id.
func (s IDSet) Intersects(other IDSet) bool {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	for id := range small {
		if _, ok := big[id]; ok {
			return true
		}
	}
	return false
}

func (s IDSet) Clone() IDSet {
	res := make(IDSet, len(s))
	for id := range s {
		res[id] = struct{}{}
	}
	return res
}

func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// IDs returns the set members sorted ascending, for stable queries and
// test output. The set itself carries no order.
func (s IDSet) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
