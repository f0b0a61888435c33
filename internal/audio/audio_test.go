package audio_test

import (
	"encoding/binary"
	"testing"

	"github.com/example/kokoro-openai-server/internal/audio"
)

func TestEncodePCM16_ClampsAndOrdersBytes(t *testing.T) {
	samples := []float32{0.0, 1.0, -1.0, 2.0}
	got := audio.EncodePCM16(samples)

	if len(got) != 8 {
		t.Fatalf("want 8 bytes, got %d", len(got))
	}

	if v := int16(binary.LittleEndian.Uint16(got[0:2])); v != 0 {
		t.Errorf("sample 0.0 = %d; want 0", v)
	}

	if v := int16(binary.LittleEndian.Uint16(got[2:4])); v != 32767 {
		t.Errorf("sample 1.0 = %d; want 32767", v)
	}

	if v := int16(binary.LittleEndian.Uint16(got[4:6])); v != -32767 {
		t.Errorf("sample -1.0 = %d; want -32767", v)
	}

	// Out-of-range input clamps to full scale.
	if v := int16(binary.LittleEndian.Uint16(got[6:8])); v != 32767 {
		t.Errorf("sample 2.0 = %d; want 32767", v)
	}
}

func TestEncodeWAV_ProducesValidHeaderAndPayload(t *testing.T) {
	samples := []float32{0.1, -0.1, 0.2, -0.2}

	data, err := audio.EncodeWAV(samples)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	if len(data) < 44 {
		t.Fatalf("WAV too short: %d bytes", len(data))
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}

	if sr := binary.LittleEndian.Uint32(data[24:28]); sr != audio.SampleRate {
		t.Errorf("sample rate = %d; want %d", sr, audio.SampleRate)
	}

	// Exact-length header: the RIFF size must not use the streaming marker.
	if riffSize := binary.LittleEndian.Uint32(data[4:8]); riffSize == 0xFFFFFFFF {
		t.Error("buffered WAV must carry a real RIFF size")
	}
}

func TestStreamingWAVHeader_UsesUnknownLengthMarkers(t *testing.T) {
	hdr := audio.StreamingWAVHeader()

	if len(hdr) != 44 {
		t.Fatalf("header length = %d; want 44", len(hdr))
	}

	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}

	if string(hdr[12:16]) != "fmt " || string(hdr[36:40]) != "data" {
		t.Error("missing fmt/data sub-chunks")
	}

	if binary.LittleEndian.Uint32(hdr[4:8]) != 0xFFFFFFFF {
		t.Error("RIFF size must be the unknown-length marker")
	}

	if binary.LittleEndian.Uint32(hdr[40:44]) != 0xFFFFFFFF {
		t.Error("data size must be the unknown-length marker")
	}

	if ch := binary.LittleEndian.Uint16(hdr[22:24]); ch != audio.Channels {
		t.Errorf("channels = %d; want %d", ch, audio.Channels)
	}

	if sr := binary.LittleEndian.Uint32(hdr[24:28]); sr != audio.SampleRate {
		t.Errorf("sample rate = %d; want %d", sr, audio.SampleRate)
	}
}
