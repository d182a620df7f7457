// ABOUTME: Audio decoder package for wire chunks and audio files
// ABOUTME: Provides Decoder for PCM/Opus chunks and FileReader for MP3, FLAC, WAV
// Package decode turns encoded audio into interleaved float32 samples.
//
// Wire decoders (Decoder): PCM (16-bit little-endian), Opus.
// File readers (FileReader): MP3, FLAC, WAV.
//
// 16-bit input is scaled by 1/32768, matching audio.Int16ToFloat.
//
// Example:
//
//	decoder, err := decode.NewPCM(format)
//	samples, err := decoder.Decode(audioData)
//
//	r, err := decode.OpenFile("loop.flac")
//	n, err := r.Read(buf)
package decode
