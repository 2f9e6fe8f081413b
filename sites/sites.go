package sites

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gpmaplab/epistat/errs"
)

// Label identifies one interaction term by the 1-based indices of the
// sites it spans. The zeroth-order intercept is the special label {0};
// every other label holds a strictly increasing list of site indices
// whose length equals the term's epistatic order.
type Label []int

// Order returns the epistatic order of the label: 0 for the intercept,
// otherwise the number of sites the label spans.
func (l Label) Order() int {
	if len(l) == 1 && l[0] == 0 {
		return 0
	}

	return len(l)
}

// Key returns the canonical comma-separated form of the label, e.g.
// "0" for the intercept or "1,3" for the pairwise term between sites
// 1 and 3. Keys are stable and suitable for map lookups.
func (l Label) Key() string {
	parts := make([]string, len(l))
	for i, s := range l {
		parts[i] = strconv.Itoa(s)
	}

	return strings.Join(parts, ",")
}

// String returns the canonical key form of the label.
func (l Label) String() string { return l.Key() }

// Equal reports whether two labels span the same sites.
func (l Label) Equal(other Label) bool {
	return slices.Equal(l, other)
}

// ParseKey parses the canonical comma-separated label form produced by
// Label.Key.
//
// Returns:
//   - Label: the parsed label
//   - error: errs.ErrInvalidLabel when the key is empty, contains a
//     non-integer token, or lists site indices out of order
func ParseKey(key string) (Label, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", errs.ErrInvalidLabel)
	}

	parts := strings.Split(key, ",")
	label := make(Label, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: token %q is not an integer", errs.ErrInvalidLabel, p)
		}
		label[i] = v
	}

	if len(label) == 1 && label[0] == 0 {
		return label, nil
	}

	for i, s := range label {
		if s < 1 {
			return nil, fmt.Errorf("%w: site index %d must be positive", errs.ErrInvalidLabel, s)
		}
		if i > 0 && s <= label[i-1] {
			return nil, fmt.Errorf("%w: site indices must be strictly increasing", errs.ErrInvalidLabel)
		}
	}

	return label, nil
}

// Enumerate lists every interaction label for a genotype of the given
// length, up to and including the given order, in canonical order:
// the intercept first, then all single-site labels, then all pairs,
// and so on.
//
// The result always contains 1 + sum over k=1..order of C(length, k)
// labels.
//
// Parameters:
//   - length: number of mutated sites (at least 1)
//   - order: highest epistatic order to enumerate, in [1, length]
//
// Returns:
//   - []Label: labels in canonical enumeration order
//   - error: errs.ErrOrderOutOfRange when length or order is invalid
func Enumerate(length, order int) ([]Label, error) {
	if length < 1 {
		return nil, fmt.Errorf("%w: genotype length %d, need at least one site", errs.ErrOrderOutOfRange, length)
	}
	if order < 1 || order > length {
		return nil, fmt.Errorf("%w: order %d not in [1, %d]", errs.ErrOrderOutOfRange, order, length)
	}

	labels := make([]Label, 0, Count(length, order))
	labels = append(labels, Label{0})

	for k := 1; k <= order; k++ {
		comb := make([]int, k)
		for i := range comb {
			comb[i] = i + 1
		}
		for {
			labels = append(labels, Label(slices.Clone(comb)))

			// Advance to the next k-combination of {1..length}.
			i := k - 1
			for i >= 0 && comb[i] == length-k+i+1 {
				i--
			}
			if i < 0 {
				break
			}
			comb[i]++
			for j := i + 1; j < k; j++ {
				comb[j] = comb[j-1] + 1
			}
		}
	}

	return labels, nil
}

// Count returns the number of labels Enumerate produces for the given
// length and order: 1 + sum over k=1..order of C(length, k).
func Count(length, order int) int {
	n := 1
	for k := 1; k <= order; k++ {
		n += Binomial(length, k)
	}

	return n
}

// Binomial returns the binomial coefficient C(n, k), or 0 when k is
// outside [0, n].
func Binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}

	c := 1
	for i := 1; i <= k; i++ {
		c = c * (n - k + i) / i
	}

	return c
}

// OrderRange returns the half-open index range [start, stop) occupied
// by labels of exactly the given order within the canonical
// enumeration for the given length. Order 0 always maps to [0, 1).
//
// Returns:
//   - start, stop: index range into the slice returned by Enumerate
//   - error: errs.ErrOrderOutOfRange when order is negative or exceeds
//     length
func OrderRange(length, order int) (start, stop int, err error) {
	if length < 1 {
		return 0, 0, fmt.Errorf("%w: genotype length %d, need at least one site", errs.ErrOrderOutOfRange, length)
	}
	if order < 0 || order > length {
		return 0, 0, fmt.Errorf("%w: order %d not in [0, %d]", errs.ErrOrderOutOfRange, order, length)
	}

	if order == 0 {
		return 0, 1, nil
	}

	start = 1
	for k := 1; k < order; k++ {
		start += Binomial(length, k)
	}

	return start, start + Binomial(length, order), nil
}

// Truncate returns the labels whose order does not exceed the given
// order, preserving their relative ordering. The input slice is not
// modified; returned labels alias the input labels.
func Truncate(labels []Label, order int) []Label {
	out := make([]Label, 0, len(labels))
	for _, l := range labels {
		if l.Order() <= order {
			out = append(out, l)
		}
	}

	return out
}

// Encode translates genotypes into binary strings relative to the
// wildtype reference: position i encodes to '0' when it matches
// wildtype[i] and '1' otherwise.
//
// Parameters:
//   - wildtype: reference genotype
//   - genotypes: genotypes to encode, each the same length as wildtype
//
// Returns:
//   - []string: binary-encoded genotypes, index-aligned with the input
//   - error: errs.ErrNoGenotypes when genotypes is empty,
//     errs.ErrGenotypeLengthMismatch when any genotype's length
//     differs from the wildtype's
func Encode(wildtype string, genotypes []string) ([]string, error) {
	if len(genotypes) == 0 {
		return nil, errs.ErrNoGenotypes
	}

	binary := make([]string, len(genotypes))
	buf := make([]byte, len(wildtype))
	for i, g := range genotypes {
		if len(g) != len(wildtype) {
			return nil, fmt.Errorf("%w: genotype %q has length %d, wildtype %q has length %d",
				errs.ErrGenotypeLengthMismatch, g, len(g), wildtype, len(wildtype))
		}

		for j := 0; j < len(g); j++ {
			if g[j] == wildtype[j] {
				buf[j] = '0'
			} else {
				buf[j] = '1'
			}
		}
		binary[i] = string(buf)
	}

	return binary, nil
}

// MutationCount returns the number of mutated sites ('1' characters)
// in a binary-encoded genotype.
func MutationCount(binary string) int {
	return strings.Count(binary, "1")
}

// Complete returns all 2^length binary genotypes in ascending binary
// order ("000", "001", "010", ...), the canonical row order for the
// Hadamard decomposition.
//
// Returns errs.ErrOrderOutOfRange when length is outside [1, 30]; the
// upper bound keeps the full enumeration addressable in memory.
func Complete(length int) ([]string, error) {
	if length < 1 || length > 30 {
		return nil, fmt.Errorf("%w: genotype length %d not in [1, 30]", errs.ErrOrderOutOfRange, length)
	}

	n := 1 << length
	out := make([]string, n)
	buf := make([]byte, length)
	for i := range n {
		for j := 0; j < length; j++ {
			if i&(1<<(length-1-j)) != 0 {
				buf[j] = '1'
			} else {
				buf[j] = '0'
			}
		}
		out[i] = string(buf)
	}

	return out, nil
}
