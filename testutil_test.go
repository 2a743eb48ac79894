package avifinfo

import "bytes"

// Helpers building synthetic AVIF headers in memory, in place of a
// testdata binary. Sizes are computed from the assembled parts.

func be16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func cat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func testBox(typ string, parts ...[]byte) []byte {
	size := 8
	for _, p := range parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	out = append(out, be32(uint32(size))...)
	out = append(out, typ...)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func testFullBox(typ string, version byte, flags uint32, parts ...[]byte) []byte {
	header := []byte{version, byte(flags >> 16), byte(flags >> 8), byte(flags)}
	return testBox(typ, append([][]byte{header}, parts...)...)
}

// renameTag rewrites the first occurrence of a four-byte tag in place.
func renameTag(data []byte, old, new string) []byte {
	i := bytes.Index(data, []byte(old))
	if i < 0 {
		panic("tag not found: " + old)
	}
	copy(data[i:], new)
	return data
}

// truncateBefore cuts data just before the first occurrence of tag.
func truncateBefore(data []byte, tag string) []byte {
	i := bytes.Index(data, []byte(tag))
	if i < 0 {
		panic("tag not found: " + tag)
	}
	return data[:i]
}

// setBoxSize overwrites the 32-bit size field of the box whose tag first
// occurs in data.
func setBoxSize(data []byte, tag string, size uint32) []byte {
	i := bytes.Index(data, []byte(tag))
	if i < 4 {
		panic("tag not found: " + tag)
	}
	copy(data[i-4:], be32(size))
	return data
}

const alphaURN = "urn:mpeg:mpegB:cicp:systems:auxiliary:alpha\x00"

// sampleAVIF returns a well-formed 1x1 8-bit 3-channel AVIF header
// followed by a stub mdat. The primary item carries ispe, pixi and av1C
// properties, the last two with the essential bit set.
func sampleAVIF() []byte {
	return cat(
		testBox("ftyp", []byte("avif"), be32(0), []byte("mif1")),
		testFullBox("meta", 0, 0,
			testFullBox("pitm", 0, 0, be16(1)),
			testBox("iprp",
				testBox("ipco",
					testFullBox("ispe", 0, 0, be32(1), be32(1)),
					testFullBox("pixi", 0, 0, []byte{3, 8, 8, 8}),
					testBox("av1C", []byte{0x81, 0x05, 0x0c, 0x00}),
				),
				testFullBox("ipma", 0, 0,
					be32(1),             // entry_count
					be16(1), []byte{3},  // item_ID, association_count
					[]byte{0x01, 0x82, 0x83}, // ispe, pixi, av1C
				),
			),
		),
		testBox("mdat", []byte{0, 0, 0, 0}),
	)
}

// alphaAVIF is like sampleAVIF with an alpha auxC property in ipco in
// place of av1C; the primary item is associated with ispe and pixi only.
func alphaAVIF() []byte {
	return cat(
		testBox("ftyp", []byte("avif"), be32(0), []byte("mif1")),
		testFullBox("meta", 0, 0,
			testFullBox("pitm", 0, 0, be16(1)),
			testBox("iprp",
				testBox("ipco",
					testFullBox("ispe", 0, 0, be32(1), be32(1)),
					testFullBox("pixi", 0, 0, []byte{3, 8, 8, 8}),
					testFullBox("auxC", 0, 0, []byte(alphaURN)),
				),
				testFullBox("ipma", 0, 0,
					be32(1),
					be16(1), []byte{2},
					[]byte{0x01, 0x82},
				),
			),
		),
		testBox("mdat", []byte{0, 0, 0, 0}),
	)
}

// monoAVIF describes a 10-bit monochrome image through av1C alone.
func monoAVIF() []byte {
	return cat(
		testBox("ftyp", []byte("avis"), be32(0), []byte("avif")),
		testFullBox("meta", 0, 0,
			testFullBox("pitm", 0, 0, be16(1)),
			testBox("iprp",
				testBox("ipco",
					testFullBox("ispe", 0, 0, be32(1), be32(1)),
					testBox("av1C", []byte{0x81, 0x05, 0x50, 0x00}),
				),
				testFullBox("ipma", 0, 0,
					be32(1),
					be16(1), []byte{2},
					[]byte{0x01, 0x02},
				),
			),
		),
	)
}

// gridAVIF declares dimensions on the primary grid item and the pixel
// information on a tile referenced through iref/dimg.
func gridAVIF() []byte {
	return cat(
		testBox("ftyp", []byte("avif"), be32(0), []byte("mif1")),
		testFullBox("meta", 0, 0,
			testFullBox("pitm", 0, 0, be16(1)),
			testBox("iprp",
				testBox("ipco",
					testFullBox("ispe", 0, 0, be32(64), be32(64)),
					testFullBox("pixi", 0, 0, []byte{3, 10, 10, 10}),
				),
				testFullBox("ipma", 0, 0,
					be32(2),
					be16(1), []byte{1}, []byte{0x01}, // grid item: ispe only
					be16(2), []byte{2}, []byte{0x01, 0x82}, // tile: ispe, pixi
				),
			),
			testFullBox("iref", 0, 0,
				testBox("dimg", be16(1), be16(1), be16(2)),
			),
		),
	)
}

// wideIpmaAVIF uses version 1 ipma entries with 16-bit property indexes.
func wideIpmaAVIF() []byte {
	return cat(
		testBox("ftyp", []byte("avif"), be32(0), []byte("mif1")),
		testFullBox("meta", 0, 0,
			testFullBox("pitm", 0, 0, be16(1)),
			testBox("iprp",
				testBox("ipco",
					testFullBox("ispe", 0, 0, be32(1), be32(1)),
					testFullBox("pixi", 0, 0, []byte{3, 8, 8, 8}),
				),
				testFullBox("ipma", 1, 1,
					be32(1),
					be32(1), []byte{2},
					be16(0x8001), be16(0x0002),
				),
			),
		),
	)
}
