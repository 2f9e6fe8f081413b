// Package samplestore provides chunked, append-only persistence for sampler
// output.
//
// # Chunk Format
//
// A chunk is a self-describing binary section holding one batch of recorded
// steps for a set of named datasets:
//
//	Header (32B) | Index Entries (16B each) | Step Payload | Value Payload | Names Payload
//
// The header carries the chunk flag word (magic number, endianness,
// encoding and compression selectors), the absolute start step, the walker
// count, the dataset count and the section offsets. Each index entry holds
// the xxHash64 dataset ID, the recorded step count, the per-walker value
// width and delta-encoded payload offsets. Step indices are delta-of-delta
// varint encoded by default; values are Gorilla XOR encoded by default, so
// rejected-proposal repeats cost one bit each. Both payloads can be
// independently compressed with zstd, S2 or LZ4. The names payload travels
// with the chunk when a hash collision was detected or names are forced on.
//
// # Encoding and Decoding
//
//	encoder, _ := samplestore.NewEncoder(startStep, nwalkers)
//	encoder.StartDataset("samples", len(steps), ncoef)
//	encoder.AddSteps(steps, rows)
//	encoder.EndDataset()
//	data, _ := encoder.Finish()
//
//	decoder, _ := samplestore.NewDecoder(data)
//	chunk, _ := decoder.Decode()
//	for row := range chunk.Values(hash.ID("samples")) { ... }
//
// # Store
//
// Store stacks chunks into an append-only file. Datasets are registered once
// with a fixed width, batches of recorded steps are appended one chunk at a
// time, and the file grows without rewriting existing data:
//
//	store, _ := samplestore.Create("run.epst", nwalkers)
//	store.CreateDataset(samplestore.DatasetSamples, ncoef)
//	store.CreateDataset(samplestore.DatasetProbabilities, 1)
//	store.Append(samplestore.Batch{Steps: steps, Values: rows})
//	store.Close()
//
// Reopening with Open rebuilds the dataset registry from the chunks, and
// MostProbable joins the standard "samples" and "probabilities" datasets to
// locate the highest-probability sample.
package samplestore
