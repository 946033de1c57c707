package speech

import (
	"encoding/binary"
	"time"
)

const (
	DefaultSampleRate    = 24000
	DefaultBitsPerSample = 16
	DefaultChannels      = 1

	// Short ramp that removes the click at the start of synthesized clips.
	DefaultFadeIn = 25 * time.Millisecond
)

// PCMToWAV wraps little-endian PCM samples with a 44-byte RIFF header.
func PCMToWAV(pcm []byte, sampleRate, bitsPerSample, channels int) []byte {
	dataLen := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	return append(header, pcm...)
}

// FadeIn16 ramps the first d of 16-bit PCM linearly from silence. The input
// slice is not modified.
func FadeIn16(pcm []byte, sampleRate, channels int, d time.Duration) []byte {
	out := make([]byte, len(pcm))
	copy(out, pcm)

	total := len(out) / 2
	n := int(int64(sampleRate)*d.Milliseconds()/1000) * channels
	if n > total {
		n = total
	}
	if n <= 0 {
		return out
	}

	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(out[i*2:]))
		faded := int16(int64(s) * int64(i+1) / int64(n))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(faded))
	}
	return out
}
