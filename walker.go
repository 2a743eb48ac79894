package avifinfo

import "github.com/goavif/avifinfo/isobmff"

// parser carries the state of one top-level parsing call: the feature
// record being filled and the box budget shared across every pass.
// Nothing outlives the call.
type parser struct {
	budget   isobmff.Budget
	features Features
}

// findBox scans the direct children of w for the first box of type t.
// NotFound means the scan reached the exact end of the container without
// a match; any other non-Found status is propagated from ParseBox.
func (p *parser) findBox(w isobmff.Window, t isobmff.BoxType) (isobmff.Box, isobmff.Status) {
	var pos uint32
	for {
		box, s := isobmff.ParseBox(w, pos, &p.budget)
		if s != isobmff.Found {
			return box, s
		}
		if box.Type == t {
			return box, isobmff.Found
		}
		pos += box.Size
		// The container is valid only if the end of a child coincides
		// with the end of the container. Oddities are caught when
		// parsing further.
		if pos == w.Total {
			return box, isobmff.NotFound
		}
	}
}

// parseFileForBrand scans the top-level boxes for an "ftyp" declaring the
// avif or avis brand. See ISO/IEC 14496-12:2012(E) 4.3.1.
func (p *parser) parseFileForBrand(w isobmff.Window) isobmff.Status {
	ftyp, s := p.findBox(w, isobmff.TypeFtyp)
	if s == isobmff.NotFound {
		return isobmff.Invalid // there should be one ftyp box
	}
	if s != isobmff.Found {
		return s
	}
	if ftyp.ContentSize < 8 { // major_brand + minor_version
		return isobmff.Invalid
	}
	for i := uint32(0); i < ftyp.ContentSize; i += 4 {
		if s := w.AccessContent(ftyp, i+4); s != isobmff.Found {
			return s
		}
		if i == 4 {
			continue // minor_version
		}
		brand := string(w.ContentBytes(ftyp, i, 4))
		if brand == "avif" || brand == "avis" {
			return isobmff.Found
		}
	}
	return isobmff.Invalid // only one ftyp allowed per file
}

// parseMetaForPrimaryItemID scans the children of a "meta" box for the
// "pitm" box carrying the primary item ID.
// See ISO/IEC 14496-12:2015(E) 8.11.4.2.
func (p *parser) parseMetaForPrimaryItemID(w isobmff.Window, primaryItemID *uint32) isobmff.Status {
	pitm, s := p.findBox(w, isobmff.TypePitm)
	if s == isobmff.NotFound {
		// There is at most one meta per file, so no pitm until now means
		// never. See ISO/IEC 14496-12:2012(E) 8.11.1.1.
		return isobmff.Invalid
	}
	if s != isobmff.Found {
		return s
	}
	idBytes := uint32(2)
	if pitm.Version != 0 {
		idBytes = 4
	}
	if s := w.AccessContent(pitm, idBytes); s != isobmff.Found {
		return s
	}
	*primaryItemID = w.ContentUint(pitm, 0, idBytes)
	return isobmff.Found
}

func (p *parser) parseFileForPrimaryItemID(w isobmff.Window, primaryItemID *uint32) isobmff.Status {
	meta, s := p.findBox(w, isobmff.TypeMeta)
	if s == isobmff.NotFound {
		return isobmff.Invalid // no meta is an issue
	}
	if s != isobmff.Found {
		return s
	}
	return p.parseMetaForPrimaryItemID(w.Content(meta), primaryItemID)
}

// parseIpcoForPropertyFeatures iterates the direct children of an "ipco"
// box, counting them 1-based, and interprets the child at target as an
// "ispe", "pixi" or "av1C" property. Fields already set are kept.
func (p *parser) parseIpcoForPropertyFeatures(w isobmff.Window, target uint32) isobmff.Status {
	var pos uint32
	index := uint32(1) // properties are counted 1-based
	for {
		box, s := isobmff.ParseBox(w, pos, &p.budget)
		if s != isobmff.Found {
			return s
		}
		switch {
		case index != target:
			// Not the associated property.
		case p.features.Width == 0 && box.Type == isobmff.TypeIspe:
			// See ISO/IEC 23008-12:2017(E) 6.5.3.2.
			if s := w.AccessContent(box, 4+4); s != isobmff.Found {
				return s
			}
			p.features.Width = w.ContentUint(box, 0, 4)
			p.features.Height = w.ContentUint(box, 4, 4)
			if p.features.Width == 0 || p.features.Height == 0 {
				return isobmff.Invalid
			}
			return isobmff.Found
		case p.features.NumChannels == 0 && box.Type == isobmff.TypePixi:
			// See ISO/IEC 23008-12:2017(E) 6.5.6.2.
			if s := w.AccessContent(box, 1); s != isobmff.Found {
				return s
			}
			p.features.NumChannels = w.ContentUint(box, 0, 1)
			if p.features.NumChannels < 1 {
				return isobmff.Invalid
			}
			if s := w.AccessContent(box, 1+p.features.NumChannels); s != isobmff.Found {
				return s
			}
			p.features.BitDepth = w.ContentUint(box, 1, 1)
			if p.features.BitDepth < 1 {
				return isobmff.Invalid
			}
			for i := uint32(1); i < p.features.NumChannels; i++ {
				// Bit depth must be the same for all channels.
				if w.ContentUint(box, 1+i, 1) != p.features.BitDepth {
					return isobmff.Invalid
				}
			}
			return isobmff.Found
		case p.features.NumChannels == 0 && box.Type == isobmff.TypeAv1C:
			// See AV1 Codec ISO Media File Format Binding 2.3.1 at
			// https://aomediacodec.github.io/av1-isobmff/#av1c
			// Only the necessary third byte is parsed. The others are
			// assumed valid.
			if s := w.AccessContent(box, 3); s != isobmff.Found {
				return s
			}
			fields := w.ContentUint(box, 2, 1)
			highBitDepth := fields&0x40 != 0
			twelveBit := fields&0x20 != 0
			monochrome := fields&0x10 != 0
			if twelveBit && !highBitDepth {
				return isobmff.Invalid
			}
			if monochrome {
				p.features.NumChannels = 1
			} else {
				p.features.NumChannels = 3
			}
			switch {
			case !highBitDepth:
				p.features.BitDepth = 8
			case twelveBit:
				p.features.BitDepth = 12
			default:
				p.features.BitDepth = 10
			}
			return isobmff.Found
		}
		index++
		pos += box.Size
		if pos == w.Total || index > target {
			return isobmff.NotFound
		}
	}
}

// parseIprpForPropertyFeatures re-enters an "iprp" content window to find
// its "ipco" child and interpret the property at target within it.
func (p *parser) parseIprpForPropertyFeatures(w isobmff.Window, target uint32) isobmff.Status {
	ipco, s := p.findBox(w, isobmff.TypeIpco)
	if s == isobmff.NotFound {
		return isobmff.Invalid // no ipco in iprp is an issue
	}
	if s != isobmff.Found {
		return s
	}
	return p.parseIpcoForPropertyFeatures(w.Content(ipco), target)
}

// parseIprpForFeatures walks the single "ipma" association box of an
// "iprp" and resolves every property associated with itemID.
// See ISO/IEC 23008-12:2017(E) 9.3.2.
func (p *parser) parseIprpForFeatures(w isobmff.Window, itemID uint32) isobmff.Status {
	ipma, s := p.findBox(w, isobmff.TypeIpma)
	if s == isobmff.NotFound {
		return isobmff.Invalid // no ipma in iprp is an issue
	}
	if s != isobmff.Found {
		return s
	}
	if s := w.AccessContent(ipma, 4); s != isobmff.Found {
		return s
	}
	entryCount := w.ContentUint(ipma, 0, 4)
	offset := uint32(4)
	idBytes := uint32(2)
	if ipma.Version >= 1 {
		idBytes = 4
	}
	// The essential bit sits atop whichever index width the low flag bit
	// selects: 0x8000 over 16-bit indexes, 0x80 over 8-bit ones.
	indexBytes := uint32(1)
	essentialMask := uint32(0x80)
	if ipma.Flags&1 != 0 {
		indexBytes = 2
		essentialMask = 0x8000
	}

	for entry := uint32(0); entry < entryCount; entry++ {
		if s := w.AccessContent(ipma, offset+idBytes+1); s != isobmff.Found {
			return s
		}
		id := w.ContentUint(ipma, offset, idBytes)
		offset += idBytes
		associationCount := w.ContentUint(ipma, offset, 1)
		offset++

		for a := uint32(0); a < associationCount; a++ {
			if s := w.AccessContent(ipma, offset+indexBytes); s != isobmff.Found {
				return s
			}
			value := w.ContentUint(ipma, offset, indexBytes)
			offset += indexBytes
			if id != itemID {
				continue
			}
			propertyIndex := value &^ essentialMask // 1-based index into ipco

			// Parse again at the same iprp level to find the associated
			// ipco and the ispe, pixi or av1C within.
			switch s := p.parseIprpForPropertyFeatures(w, propertyIndex); s {
			case isobmff.Found:
				if p.features.complete() {
					return isobmff.Found
				}
				// Otherwise carry on with the remaining associations.
			case isobmff.NotFound:
				// Carry on.
			default:
				return s
			}
		}
	}

	// There is at most one meta per file, exactly one ipma per iprp and
	// at most one iprp per meta, so the primary properties shall have
	// been found by now. See ISO/IEC 23008-12:2017(E) 9.3.1.
	if p.features.Width != 0 && p.features.Height != 0 {
		// Exception: the bit depth and number of channels may be declared
		// on a tile instead of a primary item of type "grid". Continue
		// the search at a higher level.
		return isobmff.NotFound
	}
	return isobmff.Invalid
}

func (p *parser) parseMetaForFeatures(w isobmff.Window, itemID uint32) isobmff.Status {
	iprp, s := p.findBox(w, isobmff.TypeIprp)
	if s == isobmff.NotFound {
		return isobmff.Invalid // no iprp in meta is an issue
	}
	if s != isobmff.Found {
		return s
	}
	return p.parseIprpForFeatures(w.Content(iprp), itemID)
}

func (p *parser) parseFileForFeatures(w isobmff.Window, itemID uint32) isobmff.Status {
	meta, s := p.findBox(w, isobmff.TypeMeta)
	if s == isobmff.NotFound {
		return isobmff.Invalid // no meta is an issue
	}
	if s != isobmff.Found {
		return s
	}
	return p.parseMetaForFeatures(w.Content(meta), itemID)
}

// parseIrefForTileFeatures scans an "iref" content window for "dimg"
// references from itemID and applies the feature extraction to each
// referenced tile, against the enclosing meta content window.
// See ISO/IEC 14496-12:2015(E) 8.11.12.2.
func (p *parser) parseIrefForTileFeatures(w, meta isobmff.Window, irefPos, itemID uint32) isobmff.Status {
	var pos uint32
	for {
		box, s := isobmff.ParseBox(w, pos, &p.budget)
		if s != isobmff.Found {
			return s
		}
		if box.Type == isobmff.TypeDimg {
			idBytes := uint32(2)
			if box.Version != 0 {
				idBytes = 4
			}
			var offset uint32
			if s := w.AccessContent(box, idBytes+2); s != isobmff.Found {
				return s
			}
			fromItemID := w.ContentUint(box, offset, idBytes)
			offset += idBytes
			if fromItemID == itemID {
				referenceCount := w.ContentUint(box, offset, 2)
				offset += 2
				for i := uint32(0); i < referenceCount; i++ {
					if s := w.AccessContent(box, offset+idBytes); s != isobmff.Found {
						return s
					}
					toItemID := w.ContentUint(box, offset, idBytes)
					offset += idBytes
					// Going up one level, the iref content must lie
					// strictly inside the meta content it re-enters.
					if meta.Total == 0 || irefPos == 0 {
						return isobmff.Invalid
					}
					if s := p.parseMetaForFeatures(meta, toItemID); s != isobmff.NotFound {
						return s
					}
					// Trying the first tile should be enough. Check the
					// others just in case.
				}
			}
		}
		pos += box.Size
		if pos == w.Total {
			return isobmff.NotFound // no dimg in iref is not an issue
		}
	}
}

func (p *parser) parseMetaForTileFeatures(w isobmff.Window, itemID uint32) isobmff.Status {
	iref, s := p.findBox(w, isobmff.TypeIref)
	if s == isobmff.NotFound {
		return isobmff.NotFound // no iref in meta is not an issue
	}
	if s != isobmff.Found {
		return s
	}
	return p.parseIrefForTileFeatures(w.Content(iref), w, iref.ContentPos, itemID)
}

func (p *parser) parseFileForTileFeatures(w isobmff.Window, itemID uint32) isobmff.Status {
	meta, s := p.findBox(w, isobmff.TypeMeta)
	if s == isobmff.NotFound {
		return isobmff.Invalid // no meta is an issue
	}
	if s != isobmff.Found {
		return s
	}
	return p.parseMetaForTileFeatures(w.Content(meta), itemID)
}

// alphaAuxType is the auxiliary type of an alpha plane, including the
// terminating character. See AV1 Image File Format (AVIF) 4 at
// https://aomediacodec.github.io/av1-avif/#auxiliary-images.
const alphaAuxType = "urn:mpeg:mpegB:cicp:systems:auxiliary:alpha\x00"

// parseIpcoForAlpha scans every property of an "ipco" for an "auxC"
// declaring an alpha plane. The plane may not belong to the primary item
// or one of its tiles; that imprecision is accepted.
func (p *parser) parseIpcoForAlpha(w isobmff.Window) isobmff.Status {
	var pos uint32
	for {
		box, s := isobmff.ParseBox(w, pos, &p.budget)
		if s != isobmff.Found {
			return s
		}
		if box.Type == isobmff.TypeAuxC {
			if box.ContentSize >= uint32(len(alphaAuxType)) {
				if s := w.AccessContent(box, uint32(len(alphaAuxType))); s != isobmff.Found {
					return s
				}
				auxType := w.ContentBytes(box, 0, uint32(len(alphaAuxType)))
				if string(auxType) == alphaAuxType {
					return isobmff.Found
				}
			}
		}
		pos += box.Size
		if pos == w.Total {
			return isobmff.NotFound // no auxC in ipco is not an issue
		}
	}
}

func (p *parser) parseIprpForAlpha(w isobmff.Window) isobmff.Status {
	ipco, s := p.findBox(w, isobmff.TypeIpco)
	if s == isobmff.NotFound {
		return isobmff.Invalid // no ipco in iprp is an issue
	}
	if s != isobmff.Found {
		return s
	}
	return p.parseIpcoForAlpha(w.Content(ipco))
}

func (p *parser) parseMetaForAlpha(w isobmff.Window) isobmff.Status {
	iprp, s := p.findBox(w, isobmff.TypeIprp)
	if s == isobmff.NotFound {
		return isobmff.Invalid // no iprp in meta is an issue
	}
	if s != isobmff.Found {
		return s
	}
	return p.parseIprpForAlpha(w.Content(iprp))
}

func (p *parser) parseFileForAlpha(w isobmff.Window) isobmff.Status {
	meta, s := p.findBox(w, isobmff.TypeMeta)
	if s == isobmff.NotFound {
		return isobmff.Invalid // no meta is an issue
	}
	if s != isobmff.Found {
		return s
	}
	return p.parseMetaForAlpha(w.Content(meta))
}

// parseFile runs the four passes in order: brand, primary item ID,
// primary item features with the tile fallback, then alpha detection.
func (p *parser) parseFile(w isobmff.Window) isobmff.Status {
	if s := p.parseFileForBrand(w); s != isobmff.Found {
		return s
	}

	var primaryItemID uint32
	if s := p.parseFileForPrimaryItemID(w, &primaryItemID); s != isobmff.Found {
		return s
	}

	s := p.parseFileForFeatures(w, primaryItemID)
	if s == isobmff.NotFound {
		// Some of the features may be missing from the primary item.
		// Look into its tiles in case they are declared there.
		s = p.parseFileForTileFeatures(w, primaryItemID)
	}
	if s != isobmff.Found {
		return s
	}

	// An alpha plane counts as one more channel.
	switch s := p.parseFileForAlpha(w); s {
	case isobmff.Found:
		p.features.NumChannels++
	case isobmff.NotFound:
	default:
		return s
	}
	return isobmff.Found
}
