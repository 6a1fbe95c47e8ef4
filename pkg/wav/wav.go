// Package wav provides minimal helpers for the 16-bit mono LINEAR16
// clips the synthesis collaborator returns: computing play time,
// splitting header from samples, and rebuilding a playable file after
// chunked synthesis results are stitched back together.
package wav

import "encoding/binary"

const (
	// HeaderBytes is the size of the canonical 44-byte RIFF header
	HeaderBytes = 44

	bytesPerSample = 2 // 16-bit
	numChannels    = 1 // mono narration
)

// Duration computes the play time in seconds of a WAV clip
func Duration(audio []byte, sampleRate int) float64 {
	if sampleRate <= 0 || len(audio) <= HeaderBytes {
		return 0
	}
	samples := (len(audio) - HeaderBytes) / bytesPerSample
	return float64(samples) / float64(sampleRate)
}

// PCMDuration computes the play time in seconds of headerless samples
func PCMDuration(pcm []byte, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(pcm)/bytesPerSample) / float64(sampleRate)
}

// StripHeader returns the raw PCM samples of a WAV clip
func StripHeader(audio []byte) []byte {
	if len(audio) <= HeaderBytes {
		return nil
	}
	return audio[HeaderBytes:]
}

// Build wraps raw PCM samples in a canonical RIFF header so the result
// is a playable WAV file
func Build(pcm []byte, sampleRate int) []byte {
	byteRate := sampleRate * numChannels * bytesPerSample
	blockAlign := numChannels * bytesPerSample

	out := make([]byte, HeaderBytes+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], numChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(bytesPerSample*8))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[HeaderBytes:], pcm)
	return out
}
