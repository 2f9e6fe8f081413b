package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/errs"
)

// SourceKind discriminates the X/y source selector variants.
type SourceKind uint8

const (
	// SourceObserved selects the attached map's observed genotypes.
	SourceObserved SourceKind = iota + 1
	// SourceComplete selects the complete genotype enumeration; the
	// attached map must cover all 2^L genotypes.
	SourceComplete
	// SourceFitted reuses the matrix retained by the previous Fit call.
	SourceFitted
	// SourceMatrix is a literal model matrix.
	SourceMatrix
	// SourceVector is a literal phenotype vector.
	SourceVector
)

// Source selects where a fit or predict call takes its model matrix or
// phenotype vector from: a named view of the attached map or a literal
// matrix/vector. The zero Source is invalid.
type Source struct {
	kind SourceKind
	name string
	x    *mat.Dense
	y    []float64
}

// Observed selects the attached map's observed genotypes ("obs").
func Observed() Source {
	return Source{kind: SourceObserved, name: "obs"}
}

// Complete selects the complete genotype enumeration ("complete").
func Complete() Source {
	return Source{kind: SourceComplete, name: "complete"}
}

// Fitted reuses the matrix retained by the previous Fit call ("fit").
func Fitted() Source {
	return Source{kind: SourceFitted, name: "fit"}
}

// Matrix wraps a literal model matrix as a source.
func Matrix(x *mat.Dense) Source {
	return Source{kind: SourceMatrix, name: "matrix", x: x}
}

// Vector wraps a literal phenotype vector as a source.
func Vector(y []float64) Source {
	return Source{kind: SourceVector, name: "vector", y: y}
}

// ParseSource parses the string selector forms "obs", "complete", and
// "fit".
//
// Returns errs.ErrInvalidSource for any other string.
func ParseSource(tag string) (Source, error) {
	switch tag {
	case "obs":
		return Observed(), nil
	case "complete":
		return Complete(), nil
	case "fit":
		return Fitted(), nil
	default:
		return Source{}, fmt.Errorf("%w: %q, want \"obs\", \"complete\" or \"fit\"", errs.ErrInvalidSource, tag)
	}
}

// Kind returns the selector variant.
func (s Source) Kind() SourceKind { return s.kind }

// Named reports whether the source is one of the named map views
// ("obs", "complete", "fit") rather than a literal matrix or vector.
func (s Source) Named() bool {
	switch s.kind {
	case SourceObserved, SourceComplete, SourceFitted:
		return true
	default:
		return false
	}
}

// Name returns the selector name: the string form for named sources,
// "matrix" or "vector" for literals.
func (s Source) Name() string { return s.name }

// String returns the selector name.
func (s Source) String() string {
	if s.kind == 0 {
		return "invalid"
	}

	return s.name
}

// matrix returns the literal design matrix carried by a Matrix source.
func (s Source) matrix() (*mat.Dense, error) {
	if s.kind != SourceMatrix || s.x == nil {
		return nil, fmt.Errorf("%w: source %v carries no matrix", errs.ErrInvalidSource, s)
	}

	return s.x, nil
}

// vector returns the literal phenotype vector carried by a Vector
// source.
func (s Source) vector() ([]float64, error) {
	if s.kind != SourceVector || s.y == nil {
		return nil, fmt.Errorf("%w: source %v carries no vector", errs.ErrInvalidSource, s)
	}

	return s.y, nil
}
