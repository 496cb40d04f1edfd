// Package pcm handles 16-bit signed PCM audio as used by the recognizer.
//
// Audio is carried as []int16 samples. Raw files and streams are
// little-endian 16-bit mono; WAV files are decoded with go-audio/wav and
// downmixed to mono.
//
// Key types:
//   - Format: sample rate, channel count and bit depth
//   - Frame: a fixed-length block of samples (400 samples = 25 ms at 16 kHz)
//   - FrameReader: splits a raw PCM stream into frames
//
// Example usage:
//
//	size := pcm.L16Mono16K.FrameSize(pcm.FrameDuration) // 400
//	fr := pcm.NewFrameReader(f, size)
//	for {
//		frame, err := fr.ReadFrame()
//		if err == io.EOF {
//			break
//		}
//		...
//	}
package pcm
