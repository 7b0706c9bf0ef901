package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/triblespace/tribles-go/internal/mathutil"
	"github.com/triblespace/tribles-go/tribles"
)

// sectionMeta records where one section of a saved archive lives in
// the overall byte stream: its offset from the start and its length.
// The trailer holds one of these per section, in the fixed order
// sectionOrder lists, so Open can slice every section out before
// decoding any of them.
type sectionMeta struct {
	offset, length uint64
}

// The section indices below fix the order Save appends sections in
// and Open expects the trailer's section table to describe: the
// domain, the three ordering-prefix bitmaps, then the six facets.
const (
	secDomain = iota
	secEA
	secAA
	secVA
	secEAV
	secEVA
	secAEV
	secAVE
	secVEA
	secVAE
	sectionCount
)

// rowWidth is the encoded size of one facet row: three uint32 domain
// indices.
const rowWidth = 12

// Save writes a's domain and all six facets to w as a single
// contiguous byte area followed by a trailer recording every section's
// offset and length, plus the three domain-derived counts, plus an
// 8-byte trailer length as the very last thing written. Open reads
// that trailing length first, then the trailer it addresses, then
// slices each section out directly by its recorded offset and length
// instead of re-parsing the stream section by section.
func (a *SuccinctArchive) Save(w io.Writer) error {
	var sections [sectionCount]sectionMeta
	var offset uint64

	writeSection := func(idx int, b []byte) error {
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("archive: save: section %d: %w", idx, err)
		}
		length := uint64(len(b))
		end, overflow := mathutil.SafeAdd(offset, length)
		if overflow {
			return fmt.Errorf("archive: save: section %d: offset overflow", idx)
		}
		sections[idx] = sectionMeta{offset: offset, length: length}
		offset = end
		return nil
	}

	domainBuf := make([]byte, 0, len(a.domain)*32)
	for _, v := range a.domain {
		domainBuf = append(domainBuf, v[:]...)
	}
	if err := writeSection(secDomain, domainBuf); err != nil {
		return err
	}

	for i, bm := range []*roaring.Bitmap{a.eA, a.aA, a.vA} {
		buf, err := encodeBitmap(bm)
		if err != nil {
			return fmt.Errorf("archive: save: prefix bitmap %d: %w", i, err)
		}
		if err := writeSection(secEA+i, buf); err != nil {
			return err
		}
	}

	facets := []facet{a.eav, a.eva, a.aev, a.ave, a.vea, a.vae}
	for i, f := range facets {
		buf, err := encodeFacet(f)
		if err != nil {
			return fmt.Errorf("archive: save: facet %d: %w", i, err)
		}
		if err := writeSection(secEAV+i, buf); err != nil {
			return err
		}
	}

	var trailer bytes.Buffer
	for _, s := range sections {
		if err := writeUint64(&trailer, s.offset); err != nil {
			return err
		}
		if err := writeUint64(&trailer, s.length); err != nil {
			return err
		}
	}
	for _, n := range []uint64{uint64(a.entityCount), uint64(a.attributeCount), uint64(a.valueCount)} {
		if err := writeUint64(&trailer, n); err != nil {
			return err
		}
	}
	if _, err := w.Write(trailer.Bytes()); err != nil {
		return fmt.Errorf("archive: save: trailer: %w", err)
	}
	return writeUint64(w, uint64(trailer.Len()))
}

// Open reads an archive previously written by Save. It buffers the
// whole stream, locates the trailer from its trailing length field,
// validates every section's bounds against the buffer before the
// trailer, and only then decodes each section.
func Open(r io.Reader) (*SuccinctArchive, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	if len(buf) < 8 {
		return nil, fmt.Errorf("archive: open: stream too short for a trailer length")
	}

	trailerLen := binary.BigEndian.Uint64(buf[len(buf)-8:])
	trailerEnd := uint64(len(buf) - 8)
	if _, err := mathutil.CheckedOffset(0, trailerLen, trailerEnd); err != nil {
		return nil, fmt.Errorf("archive: open: trailer length: %w", err)
	}
	trailerStart := trailerEnd - trailerLen
	dataEnd := trailerStart

	tr := bytes.NewReader(buf[trailerStart:trailerEnd])
	var sections [sectionCount]sectionMeta
	for i := range sections {
		off, err := readUint64(tr)
		if err != nil {
			return nil, fmt.Errorf("archive: open: section %d offset: %w", i, err)
		}
		length, err := readUint64(tr)
		if err != nil {
			return nil, fmt.Errorf("archive: open: section %d length: %w", i, err)
		}
		sections[i] = sectionMeta{offset: off, length: length}
	}
	counts := make([]uint64, 3)
	for i := range counts {
		n, err := readUint64(tr)
		if err != nil {
			return nil, fmt.Errorf("archive: open: counts: %w", err)
		}
		counts[i] = n
	}

	section := func(idx int) ([]byte, error) {
		s := sections[idx]
		end, err := mathutil.CheckedOffset(s.offset, s.length, dataEnd)
		if err != nil {
			return nil, fmt.Errorf("archive: open: section %d: %w", idx, err)
		}
		return buf[s.offset:end], nil
	}

	a := newArchive()
	a.entityCount, a.attributeCount, a.valueCount = int(counts[0]), int(counts[1]), int(counts[2])

	domainBytes, err := section(secDomain)
	if err != nil {
		return nil, err
	}
	if len(domainBytes)%32 != 0 {
		return nil, fmt.Errorf("archive: open: domain section length %d not a multiple of 32", len(domainBytes))
	}
	a.domain = make([]tribles.RawValue, len(domainBytes)/32)
	for i := range a.domain {
		copy(a.domain[i][:], domainBytes[i*32:(i+1)*32])
	}

	bitmapPtrs := []**roaring.Bitmap{&a.eA, &a.aA, &a.vA}
	for i, dst := range bitmapPtrs {
		b, err := section(secEA + i)
		if err != nil {
			return nil, err
		}
		bm, err := decodeBitmap(b)
		if err != nil {
			return nil, fmt.Errorf("archive: open: prefix bitmap %d: %w", i, err)
		}
		*dst = bm
	}

	facetPtrs := []*facet{&a.eav, &a.eva, &a.aev, &a.ave, &a.vea, &a.vae}
	for i, dst := range facetPtrs {
		b, err := section(secEAV + i)
		if err != nil {
			return nil, err
		}
		f, err := decodeFacet(b)
		if err != nil {
			return nil, fmt.Errorf("archive: open: facet %d: %w", i, err)
		}
		*dst = f
	}

	return a, nil
}

// encodeFacet packs a facet's rows and changed-bitmap into one section:
// a row count, that many fixed-width rows, then the bitmap's own
// serialization filling out the rest of the section (its length is
// recovered from the section's own recorded length, not stored again).
func encodeFacet(f facet) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint64(&buf, uint64(len(f.rows))); err != nil {
		return nil, err
	}
	var rowBuf [rowWidth]byte
	for _, r := range f.rows {
		binary.BigEndian.PutUint32(rowBuf[0:4], r.p0)
		binary.BigEndian.PutUint32(rowBuf[4:8], r.p1)
		binary.BigEndian.PutUint32(rowBuf[8:12], r.trailing)
		buf.Write(rowBuf[:])
	}
	bm, err := encodeBitmap(f.changed)
	if err != nil {
		return nil, err
	}
	buf.Write(bm)
	return buf.Bytes(), nil
}

func decodeFacet(b []byte) (facet, error) {
	r := bytes.NewReader(b)
	n, err := readUint64(r)
	if err != nil {
		return facet{}, err
	}
	rowBytes, overflow := mathutil.SafeMul(n, rowWidth)
	if overflow || rowBytes > uint64(r.Len()) {
		return facet{}, fmt.Errorf("facet row count %d exceeds remaining section bytes", n)
	}
	rows := make([]row, n)
	var rowBuf [rowWidth]byte
	for i := range rows {
		if _, err := io.ReadFull(r, rowBuf[:]); err != nil {
			return facet{}, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = row{
			p0:       binary.BigEndian.Uint32(rowBuf[0:4]),
			p1:       binary.BigEndian.Uint32(rowBuf[4:8]),
			trailing: binary.BigEndian.Uint32(rowBuf[8:12]),
		}
	}
	rest := b[len(b)-r.Len():]
	bm, err := decodeBitmap(rest)
	if err != nil {
		return facet{}, err
	}
	return facet{rows: rows, changed: bm}, nil
}

func encodeBitmap(bm *roaring.Bitmap) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := bm.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBitmap(b []byte) (*roaring.Bitmap, error) {
	bm := roaring.New()
	if _, err := bm.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return bm, nil
}

func writeUint64(w io.Writer, n uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
