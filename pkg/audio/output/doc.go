// ABOUTME: Audio output package for real-time playback
// ABOUTME: Provides pull-based Output backends, the Mixer and the Deck
// Package output drives an audio device from a pull Source.
//
// Backends call Source.Fill from their real-time context: the malgo data
// callback, the oto reader goroutine, or the Null ticker. Fill must not
// block, lock, or allocate.
//
// Mixer runs the live stream through a low-pass and high-pass Filter, sums
// at most one history Clip, applies volume and feeds the result to an
// Analyser for level and spectrum display. Deck owns the device and the
// mixer for the control side.
//
// Example:
//
//	deck := output.NewDeck(output.NewMalgo(), buffer)
//	rate, err := deck.Open(48000, 2)
//	deck.SetLowPass(8000)
//	err = deck.PlayClip(output.NewClip(samples, 2))
package output
