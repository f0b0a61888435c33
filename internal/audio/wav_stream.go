package audio

import "encoding/binary"

// StreamingWAVHeader returns a 44-byte WAV header for responses whose
// total length is not known in advance. Both the RIFF chunk size and
// the data sub-chunk size are set to 0xFFFFFFFF, the conventional
// marker for an unknown/streaming length. Players treat it as
// "read until EOF".
//
// Format: 24 kHz, mono, 16-bit PCM.
func StreamingWAVHeader() []byte {
	const (
		byteRate   = SampleRate * Channels * BitsPerSample / 8
		blockAlign = Channels * BitsPerSample / 8
	)

	hdr := make([]byte, 44)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 0xFFFFFFFF)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], Channels)
	binary.LittleEndian.PutUint32(hdr[24:28], SampleRate)
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], BitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], 0xFFFFFFFF)

	return hdr
}
