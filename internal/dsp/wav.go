package dsp

import (
	"bytes"
	"encoding/binary"
)

const (
	bitsPerSample = 16
	wavHeaderSize = 44
)

// EncodeWAV serializes mono or multi-channel float32 samples at sampleRate
// into a 44-byte-header, 16-bit little-endian PCM WAV file. Each sample is
// clamped to [-1, 1] and quantized as round(s * 32767).
func EncodeWAV(samples []float32, sampleRate, channels int) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(wavHeaderSize + len(samples)*2)

	dataLen := len(samples) * 2
	fileSize := wavHeaderSize - 8 + dataLen
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, int32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, int32(16)) // PCM fmt chunk size
	binary.Write(buf, binary.LittleEndian, int16(1))  // audio format: PCM
	binary.Write(buf, binary.LittleEndian, int16(channels))
	binary.Write(buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(buf, binary.LittleEndian, int32(byteRate))
	binary.Write(buf, binary.LittleEndian, int16(blockAlign))
	binary.Write(buf, binary.LittleEndian, int16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, int32(dataLen))

	for _, s := range samples {
		binary.Write(buf, binary.LittleEndian, quantize(s))
	}

	return buf.Bytes()
}

// quantize clamps a float32 sample to [-1, 1] and converts it to a 16-bit
// PCM value.
func quantize(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	v := s * 32767.0
	if v >= 0 {
		return int16(v + 0.5)
	}
	return int16(v - 0.5)
}
