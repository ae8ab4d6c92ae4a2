package multistream

import "math"

const int16Scale = 1.0 / 32768

func int16ToFloat32(dst []float32, src []int16) {
	for i, s := range src {
		dst[i] = float32(int16Scale * float64(s))
	}
}

func float32ToInt16(sample float32) int16 {
	scaled := float64(sample) * 32768.0
	if scaled > 32767.0 {
		return 32767
	}
	if scaled < -32768.0 {
		return -32768
	}
	return int16(math.RoundToEven(scaled))
}

// Helper function to convert int16 PCM data to byte slice
func int16ToByteSlice(samples []int16) []byte {
	byteSlice := make([]byte, len(samples)*2)
	for i, sample := range samples {
		byteSlice[i*2] = byte(sample)
		byteSlice[i*2+1] = byte(sample >> 8)
	}
	return byteSlice
}

// Helper function to convert byte slice to int16 PCM data
func byteSliceToInt16(samples []byte) []int16 {
	pcm := make([]int16, len(samples)/2)
	for i := 0; i+1 < len(samples); i += 2 {
		pcm[i/2] = int16(samples[i]) | int16(samples[i+1])<<8
	}
	return pcm
}
