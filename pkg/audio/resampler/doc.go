// Package resampler converts 16-bit mono PCM between sample rates.
//
// Template recordings that are not already 16 kHz are converted with the
// pure Go resampler from github.com/tphakala/go-audio-resampling before
// feature extraction.
package resampler
