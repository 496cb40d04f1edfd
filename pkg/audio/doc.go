// Package audio is the umbrella for the audio sub-packages:
//
//   - pcm: 16-bit PCM frames, raw and WAV file I/O
//   - mfcc: FFT, mel filter bank and MFCC feature extraction
//   - resampler: sample rate conversion for recordings
//   - portaudio: microphone capture
//   - synth: synthetic test words
package audio
