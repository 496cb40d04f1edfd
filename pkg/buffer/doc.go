// Package buffer provides the two buffers used by the recognition pipeline.
//
//   - RingBuffer: a fixed-capacity, non-blocking circular buffer that
//     overwrites the oldest unread element on overflow and supports a
//     single-level Mark/Reset checkpoint. The MFCC extractor uses it to
//     peek a full analysis window and then advance by a smaller stride.
//
//   - Queue: a bounded blocking FIFO that decouples audio acquisition from
//     processing. Items are delivered in strict arrival order.
//
// Example usage:
//
//	rb := buffer.RingN[float64](4096)
//	rb.Write(samples)
//	for rb.Available() >= 400+160 {
//		rb.Mark()
//		window := rb.Read(400)
//		_ = rb.Reset()
//		rb.Discard(160)
//		process(window)
//	}
package buffer
