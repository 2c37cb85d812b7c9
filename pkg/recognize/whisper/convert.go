package whisper

import "encoding/binary"

// pcmToFloat32Mono converts 16-bit little-endian signed PCM bytes to the
// float32 mono samples in [-1, 1] that whisper.cpp expects. Multi-channel
// input is downmixed by averaging the channels of each frame. A trailing odd
// byte is ignored.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	sampleCount := len(pcm) / 2
	frameCount := sampleCount / channels
	out := make([]float32, 0, frameCount)

	for f := 0; f < frameCount; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			idx := (f*channels + c) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		out = append(out, sum/float32(channels))
	}
	return out
}
