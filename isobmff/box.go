package isobmff

// BoxType is a box's four-byte tag.
type BoxType [4]byte

func boxType(s string) BoxType {
	if len(s) != 4 {
		panic("bogus boxType length")
	}
	return BoxType{s[0], s[1], s[2], s[3]}
}

func (t BoxType) String() string { return string(t[:]) }

// Box types walked by the avifinfo package.
var (
	TypeFtyp = boxType("ftyp")
	TypeMeta = boxType("meta")
	TypePitm = boxType("pitm")
	TypeIprp = boxType("iprp")
	TypeIpco = boxType("ipco")
	TypeIpma = boxType("ipma")
	TypeIspe = boxType("ispe")
	TypePixi = boxType("pixi")
	TypeAv1C = boxType("av1C")
	TypeAuxC = boxType("auxC")
	TypeIref = boxType("iref")
	TypeDimg = boxType("dimg")

	// TypeSkip is the FreeSpaceBox tag. Full boxes of an unsupported
	// version are rewritten to it so enclosing scans pass over them
	// instead of rejecting the file.
	TypeSkip = boxType("skip")
)

// fullBox reports whether the type carries a version and flags word.
func (t BoxType) fullBox() bool {
	switch t {
	case TypeMeta, TypePitm, TypeIpma, TypeIspe, TypePixi, TypeIref, TypeAuxC:
		return true
	}
	return false
}

// Box describes one parsed box header. Content bytes are read on demand
// through the enclosing Window; no box tree is materialized.
type Box struct {
	Size        uint32  // total bytes occupied, header included
	Type        BoxType // four-byte tag, or TypeSkip when rewritten
	Version     uint32  // 0 or the actual version if this is a full box
	Flags       uint32  // 0 or the actual 24-bit value if this is a full box
	ContentSize uint32  // Size minus the header size
	ContentPos  uint32  // position of the content relative to the container
}

// parsableVersion reports whether the full-box version is one this
// package knows how to read. See AV1 Image File Format (AVIF) 8.1 at
// https://aomediacodec.github.io/av1-avif/#avif-boxes.
func (b *Box) parsableVersion() bool {
	switch b.Type {
	case TypeMeta, TypeIspe, TypePixi, TypeAuxC:
		return b.Version == 0
	case TypePitm, TypeIpma, TypeIref:
		return b.Version <= 1
	}
	return true
}

// MaxBoxes caps the number of boxes examined across one walk so that
// adversarial inputs terminate instead of timing out. The value is
// arbitrary.
const MaxBoxes = 4096

// A Budget counts every box header parsed during one walk. It must be
// shared across all passes of the walk.
type Budget struct {
	parsed uint32
}

// ParseBox reads the header of the box starting at pos within w.
// See ISO/IEC 14496-12:2012(E) 4.2.
func ParseBox(w Window, pos uint32, budget *Budget) (Box, Status) {
	var b Box
	if pos > MaxSize-8 {
		return b, Aborted
	}
	if pos+8 > w.Total { // box size + type
		return b, Invalid
	}
	if pos+4 > w.Available() { // 32-bit size
		return b, Truncated
	}
	b.Size = ReadBigEndian(w.Data[pos:], 4)
	// size==1 means a 64-bit size follows the type and size==0 means the
	// box extends to the end of the file. Neither is supported here.
	if b.Size < 2 {
		return b, Aborted
	}
	if b.Size < 8 { // 32-bit size + 32-bit type
		return b, Invalid
	}
	if b.Size > MaxSize-pos {
		return b, Aborted
	}
	if pos+b.Size > w.Total {
		return b, Invalid
	}
	if pos+8 > w.Available() {
		return b, Truncated
	}
	copy(b.Type[:], w.Data[pos+4:])

	headerSize := uint32(8)
	if b.Type.fullBox() {
		headerSize = 12
	}
	if b.Size < headerSize {
		return b, Invalid
	}
	b.ContentPos = pos + headerSize
	if b.ContentPos > w.Available() {
		return b, Truncated
	}
	b.ContentSize = b.Size - headerSize

	budget.parsed++
	if budget.parsed >= MaxBoxes {
		return b, Aborted
	}

	if headerSize == 12 {
		b.Version = ReadBigEndian(w.Data[pos+8:], 1)
		b.Flags = ReadBigEndian(w.Data[pos+9:], 3)
		if !b.parsableVersion() {
			b.Type = TypeSkip
		}
	}
	return b, Found
}
