// Package apng provides a pure Go decoder for PNG images and the APNG
// animated extension, designed for rendering bitmap assets and animated
// icons with tight memory budgets.
//
// The decoder walks the chunk stream incrementally through three explicit
// stages (header, metadata, per-frame image data), keeps a single latched
// error that blocks further work after the first failure, and degrades
// gracefully on malformed input instead of panicking.
//
// The package supports:
//   - Greyscale, truecolor, indexed, and alpha color types
//   - Sub-byte bit depths (1/2/4-bit) with padding-bit removal
//   - 16-bit samples (pass-through)
//   - APNG animation control (acTL/fcTL/fdAT)
//   - Palette (PLTE) and transparency (tRNS) chunks
//
// Adam7 interlacing is permanently unsupported and reported as an error.
// Chunk CRCs are parsed as framing but never verified.
//
// Basic usage:
//
//	img, err := apng.Decode(reader)
//
// Staged decoding with the low-level API:
//
//	dec := apng.NewDecoder(data)
//	if err := dec.DecodeFrame(); err != nil { ... }
//	pixels := dec.Buffer()
package apng
