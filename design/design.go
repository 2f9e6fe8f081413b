package design

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/sites"
)

// Encoding selects how genotype-label membership maps onto matrix
// entries.
type Encoding uint8

const (
	// EncodingLocal is 0/1 dummy coding: X[i][j] = 1 when genotype i is
	// mutated at every site of label j, 0 otherwise. The intercept
	// column is all ones.
	EncodingLocal Encoding = iota + 1

	// EncodingGlobal is ±1 Walsh coding: X[i][j] is the product over
	// the label's sites of +1 (wildtype at the site) or -1 (mutated).
	// The intercept column is all +1.
	EncodingGlobal
)

// String returns the model-type tag of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingLocal:
		return "local"
	case EncodingGlobal:
		return "global"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// ParseEncoding parses a model-type tag ("local" or "global") into an
// Encoding.
func ParseEncoding(tag string) (Encoding, error) {
	switch tag {
	case "local":
		return EncodingLocal, nil
	case "global":
		return EncodingGlobal, nil
	default:
		return 0, fmt.Errorf("invalid model type: %q, want \"local\" or \"global\"", tag)
	}
}

// Build constructs the model matrix for binary-encoded genotypes over
// the given interaction labels: one row per genotype, one column per
// label, entries determined by the encoding.
//
// Parameters:
//   - binary: binary-encoded genotypes, all the same length
//   - labels: interaction labels in canonical order
//   - enc: EncodingLocal or EncodingGlobal
//
// Returns:
//   - *mat.Dense: the len(binary) x len(labels) model matrix
//   - error: errs.ErrNoGenotypes, errs.ErrGenotypeLengthMismatch,
//     errs.ErrInvalidLabel when a label names a site outside the
//     genotype, or a plain error for an unknown encoding
func Build(binary []string, labels []sites.Label, enc Encoding) (*mat.Dense, error) {
	if len(binary) == 0 {
		return nil, errs.ErrNoGenotypes
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no labels", errs.ErrInvalidLabel)
	}
	if enc != EncodingLocal && enc != EncodingGlobal {
		return nil, fmt.Errorf("invalid design encoding: %d", enc)
	}

	length := len(binary[0])
	for i, b := range binary {
		if len(b) != length {
			return nil, fmt.Errorf("%w: genotype %d has length %d, want %d",
				errs.ErrGenotypeLengthMismatch, i, len(b), length)
		}
	}
	for _, label := range labels {
		for _, s := range label {
			if s > length {
				return nil, fmt.Errorf("%w: label %v names site %d, genotype has %d sites",
					errs.ErrInvalidLabel, label, s, length)
			}
		}
	}

	x := mat.NewDense(len(binary), len(labels), nil)
	for i, b := range binary {
		for j, label := range labels {
			x.Set(i, j, entry(b, label, enc))
		}
	}

	return x, nil
}

// entry computes one matrix cell for a binary genotype and label.
func entry(binary string, label sites.Label, enc Encoding) float64 {
	if label.Order() == 0 {
		return 1
	}

	switch enc {
	case EncodingLocal:
		for _, s := range label {
			if binary[s-1] != '1' {
				return 0
			}
		}

		return 1
	default: // EncodingGlobal
		v := 1.0
		for _, s := range label {
			if binary[s-1] == '1' {
				v = -v
			}
		}

		return v
	}
}
