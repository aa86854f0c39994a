// Package rules contains the threshold sets that drive birth, survival and death.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// ErrParse is returned when threshold text is malformed.
var ErrParse = errors.New("malformed threshold list")

// MaxValue is the largest member a set may hold. Dying countdowns are
// stored as uint32.
const MaxValue = math.MaxUint32

// MaxMembers bounds how many values one threshold list may expand to.
const MaxMembers = 4096

// Thresholds is a set of neighbor-count values matched exactly.
// {3,6} matches 3 or 6 neighbors, not the interval between them.
type Thresholds struct {
	values []int // sorted, unique, non-negative
}

// NewThresholds builds a set from the given values. Duplicates collapse.
func NewThresholds(values ...int) (Thresholds, error) {
	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v < 0 {
			return Thresholds{}, fmt.Errorf("%w: negative value %d", ErrParse, v)
		}
		if uint64(v) > MaxValue {
			return Thresholds{}, fmt.Errorf("%w: value %d exceeds %d", ErrParse, v, uint64(MaxValue))
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return Thresholds{values: out}, nil
}

// MustThresholds is NewThresholds for literals known to be valid.
func MustThresholds(values ...int) Thresholds {
	t, err := NewThresholds(values...)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseThresholds reads a comma separated list such as "3,6" or "5-8,10".
// A range a-b expands to its members.
func ParseThresholds(text string) (Thresholds, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Thresholds{}, nil
	}

	var values []int
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Thresholds{}, fmt.Errorf("%w: empty entry in %q", ErrParse, text)
		}

		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			v, err := strconv.Atoi(part)
			if err != nil {
				return Thresholds{}, fmt.Errorf("%w: %q", ErrParse, part)
			}
			if len(values) >= MaxMembers {
				return Thresholds{}, fmt.Errorf("%w: more than %d values in %q", ErrParse, MaxMembers, text)
			}
			values = append(values, v)
			continue
		}

		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return Thresholds{}, fmt.Errorf("%w: range %q", ErrParse, part)
		}
		to, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil || to < from {
			return Thresholds{}, fmt.Errorf("%w: range %q", ErrParse, part)
		}
		if uint64(to)-uint64(from) >= uint64(MaxMembers-len(values)) {
			return Thresholds{}, fmt.Errorf("%w: range %q expands past %d values", ErrParse, part, MaxMembers)
		}
		for i := 0; i <= to-from; i++ {
			values = append(values, from+i)
		}
	}
	return NewThresholds(values...)
}

// Contains reports whether n is a member of the set.
func (t Thresholds) Contains(n int) bool {
	i := sort.SearchInts(t.values, n)
	return i < len(t.values) && t.values[i] == n
}

// Draw picks a member uniformly at random. The set must not be empty.
func (t Thresholds) Draw(rng *rand.Rand) int {
	return t.values[rng.Intn(len(t.values))]
}

// Len returns the number of members.
func (t Thresholds) Len() int {
	return len(t.values)
}

// Empty reports whether the set has no members.
func (t Thresholds) Empty() bool {
	return len(t.values) == 0
}

// Values returns a copy of the members in ascending order.
func (t Thresholds) Values() []int {
	out := make([]int, len(t.values))
	copy(out, t.values)
	return out
}

// Max returns the largest member, or 0 for an empty set.
func (t Thresholds) Max() int {
	if len(t.values) == 0 {
		return 0
	}
	return t.values[len(t.values)-1]
}

// String renders the set in the same form ParseThresholds accepts.
func (t Thresholds) String() string {
	parts := make([]string, len(t.values))
	for i, v := range t.values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
