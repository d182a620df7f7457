// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts generator audio to the output device's sample rate
// Package resample provides streaming sample rate conversion.
//
// Uses linear interpolation between consecutive frames, keeping the last
// frame of each chunk so interpolation spans chunk boundaries.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out := r.Process(chunk)
package resample
