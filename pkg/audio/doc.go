// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Chunk and the float/int16 sample conversions
// Package audio provides the fundamental audio types used by resonate-tape.
//
// This package defines:
//   - Format: describes the session stream (sample rate, channels, bit depth)
//   - Chunk: a move-only block of interleaved float PCM from the generator
//
// It also provides the float <-> int16 conversions used for history and export.
// The scaling is intentionally asymmetric to stay bit-compatible with earlier
// exports: negative floats scale by 32768, non-negative by 32767, and int16
// decodes by 1/32768.
//
// Example:
//
//	pcm := audio.FloatToInt16(chunk.Samples())
//	back := audio.Int16ToFloat(pcm)
package audio
