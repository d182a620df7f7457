// ABOUTME: Audio encoder package for encoding PCM to wire and file formats
// ABOUTME: Provides Encoder interface, PCM and Opus encoders, and the WAV writer
// Package encode provides audio encoders for the generator wire and for export.
//
// Supports: PCM (16-bit little-endian), Opus, WAV (RIFF PCM16)
//
// Encoders accept int16 samples, the resolution history is kept at.
//
// Example:
//
//	encoder, err := encode.NewPCM(format)
//	data, err := encoder.Encode(samples)
//
//	wav := encode.EncodeWAV(chunks, 48000, 2)
package encode
