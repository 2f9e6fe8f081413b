// Package encoding provides internal payload codecs for the sample chunk
// format.
//
// It currently holds the dataset-names payload codec: a length-prefixed
// list of dataset name strings that a chunk carries when xxHash64 dataset
// IDs alone are not enough (a hash collision was detected, or names were
// forced on). The columnar step and value codecs live in the public
// encoding package.
//
// This package is internal; use the samplestore package instead.
package encoding
