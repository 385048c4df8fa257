// Package midifile implements Standard MIDI File export (spec §6): a type
// 0/1 writer built on gitlab.com/gomidi/midi/v2/smf, evolved from the
// teacher's midi/generator.go:GenerateFromTrack, plus a from-scratch VLQ
// codec. smf.Track.Add already encodes delta times as VLQ internally, but
// it never exposes that as a directly callable, round-trip-testable
// primitive — spec §8 requires VLQ round-trips to be independently
// testable, so EncodeVLQ/DecodeVLQ exist here as their own primitive.
package midifile

// EncodeVLQ encodes v as a variable-length quantity: 7-bit groups,
// big-endian, high bit set on every byte but the last, at most 4 bytes
// (values above 0x0FFFFFFF are not representable in a 4-byte VLQ and are
// masked to 28 bits, matching the standard MIDI file VLQ's practical range).
func EncodeVLQ(v uint32) []byte {
	v &= 0x0FFFFFFF
	buf := []byte{byte(v & 0x7F)}
	v >>= 7
	for v > 0 {
		buf = append(buf, byte(v&0x7F)|0x80)
		v >>= 7
	}
	// buf was built least-significant-group-first; reverse it.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

// DecodeVLQ reads one variable-length quantity from the front of data,
// returning the decoded value and the number of bytes consumed. Returns
// (0, 0) if data runs out before a terminating byte (high bit clear) is
// found within 4 bytes.
func DecodeVLQ(data []byte) (uint32, int) {
	var v uint32
	for i := 0; i < len(data) && i < 4; i++ {
		b := data[i]
		v = (v << 7) | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, i + 1
		}
	}
	return 0, 0
}
