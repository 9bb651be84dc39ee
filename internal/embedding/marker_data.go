package embedding

// pattern is grotsky's 512-byte self-recognition marker (spec.md §4.6):
// a fixed, deterministically-seeded byte sequence baked into this source
// file so it lands in the compiled binary's read-only data section and
// can be located by scanning the binary's own file contents at runtime.
//
// Grounded on original_source/src/embed.rs's compile_time_random_bytes:
// an FNV-1a hash of the defining file's path seeds a linear congruential
// generator, which is iterated to fill out the byte table. Rust computes
// this with a const fn at compile time; Go has no const-eval path for
// byte arrays of this shape, so the table is precomputed once with the
// identical FNV-1a/LCG recurrence and pasted here as a literal — the
// requirement the Rust side is actually after (a value fixed at build
// time, not recomputed per run) is met either way.
var pattern = [markerSize]byte{
	0x7b, 0x26, 0x90, 0x4b, 0x95, 0xe0, 0xbe, 0xf3, 0x9e, 0xe9, 0x18, 0x44,
	0xc4, 0x44, 0xc1, 0x5c, 0x65, 0xc4, 0x35, 0x6f, 0x88, 0x57, 0x61, 0x6e,
	0x80, 0x2a, 0x47, 0x7c, 0x7d, 0xaa, 0x24, 0xf0, 0xdf, 0x1b, 0x7b, 0x0d,
	0xd7, 0xca, 0x0b, 0x74, 0xb2, 0x37, 0x91, 0xb1, 0x50, 0x4d, 0x6b, 0x66,
	0x69, 0xb3, 0x61, 0x8d, 0x07, 0x6b, 0x22, 0x81, 0xb4, 0xe5, 0x21, 0xdd,
	0x41, 0x40, 0x21, 0xb9, 0x83, 0x55, 0x41, 0x67, 0xc3, 0x19, 0xb9, 0xec,
	0x06, 0x7d, 0x9d, 0xdc, 0x71, 0x3f, 0xbf, 0x49, 0xad, 0xb0, 0xd4, 0x65,
	0x10, 0x22, 0x1c, 0x24, 0x28, 0xda, 0x85, 0x67, 0x2d, 0x35, 0x9a, 0x5e,
	0x67, 0xf7, 0x0e, 0x21, 0xa0, 0xe6, 0x73, 0x70, 0x9a, 0x8d, 0xd3, 0x09,
	0xc4, 0xbd, 0x69, 0x69, 0x31, 0x80, 0xa2, 0xda, 0x87, 0xb4, 0x1f, 0x04,
	0xdc, 0xfb, 0x8b, 0x9a, 0xe1, 0xa5, 0xce, 0x78, 0x8b, 0x65, 0x60, 0x74,
	0xb4, 0x67, 0x9e, 0xab, 0x6e, 0x7d, 0x5c, 0x78, 0xf2, 0x87, 0xfc, 0xf4,
	0xf5, 0x25, 0xd9, 0x72, 0x4d, 0x44, 0xab, 0x55, 0xd0, 0x7e, 0x82, 0x4b,
	0xe6, 0x8a, 0x79, 0x42, 0xef, 0x43, 0xe6, 0x72, 0x86, 0x2f, 0x01, 0x5e,
	0x82, 0xa0, 0x88, 0x73, 0x18, 0x34, 0x20, 0xe3, 0xf9, 0xe5, 0x04, 0x37,
	0x9e, 0xab, 0xc7, 0x73, 0x04, 0xd7, 0xa0, 0x70, 0x6f, 0x20, 0xf8, 0x31,
	0x93, 0x76, 0xa9, 0x09, 0x3e, 0x0c, 0x68, 0x91, 0xd6, 0x8a, 0xa3, 0xd3,
	0x8c, 0x48, 0x38, 0x09, 0x3d, 0x44, 0xf4, 0xb3, 0x72, 0x76, 0x84, 0xfa,
	0x78, 0xb8, 0xfb, 0x5c, 0x61, 0x4a, 0x1f, 0x11, 0x77, 0x21, 0x6f, 0x44,
	0x93, 0xa6, 0xbb, 0x99, 0x6a, 0x10, 0x08, 0x42, 0x99, 0xd1, 0x47, 0xd7,
	0xc1, 0x04, 0xbc, 0x67, 0xe1, 0x27, 0x20, 0x04, 0x2c, 0x17, 0xb9, 0xe1,
	0x23, 0xf7, 0x88, 0xea, 0x9b, 0xa8, 0x5c, 0xb5, 0xd5, 0xe3, 0xed, 0x9d,
	0x3e, 0x45, 0x74, 0xd4, 0x29, 0x6e, 0xba, 0x0d, 0x85, 0x2b, 0xfb, 0x1c,
	0x21, 0x02, 0x72, 0xbc, 0x20, 0x27, 0x84, 0x08, 0xc2, 0x21, 0xdf, 0x33,
	0xff, 0xaf, 0xdb, 0x24, 0x27, 0xdb, 0xba, 0xd5, 0x52, 0x7d, 0x9d, 0xd3,
	0x20, 0x53, 0xa1, 0xb4, 0x89, 0xfc, 0x5e, 0xf8, 0x5c, 0xf7, 0x84, 0x91,
	0x54, 0x5c, 0x41, 0x5b, 0xf5, 0xdb, 0x63, 0x86, 0xa3, 0x1b, 0xbe, 0xed,
	0x33, 0xd7, 0xab, 0x17, 0xa6, 0x4c, 0x04, 0xc1, 0xed, 0xd5, 0x8a, 0xaf,
	0xcd, 0xfb, 0x66, 0x3c, 0x66, 0x71, 0x81, 0x1f, 0xc8, 0x6a, 0x02, 0xed,
	0x50, 0x64, 0xbd, 0x3f, 0x87, 0x0f, 0xa2, 0xa9, 0xc7, 0x7b, 0x7d, 0x7e,
	0x3a, 0x87, 0x08, 0xf0, 0x8d, 0x67, 0x30, 0x82, 0x51, 0xed, 0x68, 0x07,
	0xae, 0x40, 0x94, 0x02, 0x7c, 0x46, 0x3a, 0x98, 0x09, 0x59, 0x4b, 0x84,
	0xab, 0xef, 0x95, 0x11, 0xd5, 0x35, 0x3d, 0x6f, 0x0e, 0x41, 0x3d, 0x46,
	0x78, 0x58, 0x5d, 0x4b, 0x15, 0xd5, 0xd4, 0x8f, 0x13, 0x46, 0xbc, 0xa8,
	0x70, 0x23, 0x31, 0x26, 0x16, 0x66, 0x64, 0x6d, 0x0f, 0x60, 0xfc, 0x36,
	0x24, 0xbd, 0xef, 0x86, 0x22, 0xce, 0xfc, 0xf6, 0x64, 0x67, 0x12, 0xd8,
	0x19, 0xf7, 0xb8, 0xa2, 0x39, 0x99, 0xfd, 0x66, 0xa4, 0x75, 0xb8, 0x53,
	0xd3, 0xa2, 0x8e, 0x3c, 0xb3, 0x44, 0xb0, 0x78, 0x1a, 0xa5, 0xc1, 0xce,
	0x76, 0xc2, 0x3c, 0x4e, 0xa5, 0xb7, 0x33, 0xc7, 0x5d, 0xd7, 0x85, 0x68,
	0x80, 0xd4, 0xf0, 0xa7, 0x18, 0xf1, 0x1e, 0xe7, 0x3c, 0x29, 0x70, 0x3c,
	0x97, 0xc1, 0x68, 0xd8, 0x33, 0xee, 0x12, 0xc9, 0x0a, 0xf2, 0xa1, 0xde,
	0x16, 0xe3, 0xee, 0x03, 0xe1, 0x39, 0x12, 0xb4, 0xae, 0x62, 0xd8, 0x8e,
	0xcc, 0x89, 0x64, 0x4b, 0x66, 0x34, 0x5e, 0x1b,
}
