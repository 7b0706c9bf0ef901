package archive

import (
	"bytes"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFacetRoundtrip(t *testing.T) {
	changed := roaring.New()
	changed.Add(0)
	changed.Add(3)
	f := facet{
		rows: []row{
			{p0: 1, p1: 2, trailing: 3},
			{p0: 4, p1: 5, trailing: 6},
		},
		changed: changed,
	}
	b, err := encodeFacet(f)
	require.NoError(t, err)

	got, err := decodeFacet(b)
	require.NoError(t, err)
	assert.Equal(t, f.rows, got.rows)
	assert.Equal(t, f.changed.ToArray(), got.changed.ToArray())
}

func TestDecodeFacetRejectsOversizedRowCount(t *testing.T) {
	var buf bytes.Buffer
	// A row count whose byte size overflows uint64, paired with zero
	// trailing bytes, must be rejected instead of allocating billions
	// of rows.
	require.NoError(t, writeUint64(&buf, ^uint64(0)))
	_, err := decodeFacet(buf.Bytes())
	assert.Error(t, err)
}

func TestOpenRejectsTooShortStream(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestOpenRejectsTruncatedTrailer(t *testing.T) {
	set, _, _, _ := buildLovesGraph(t)
	a := Build(set)

	var buf bytes.Buffer
	require.NoError(t, a.Save(&buf))

	// Cutting well over half the stream is certain to either desync
	// the trailing length field from the real trailer or leave too
	// few bytes for the section table it claims to have; either way
	// Open must report an error instead of silently decoding garbage.
	truncated := buf.Bytes()[:buf.Len()/3]
	_, err := Open(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestOpenRejectsOversizedTrailerLength(t *testing.T) {
	set, _, _, _ := buildLovesGraph(t)
	a := Build(set)

	var buf bytes.Buffer
	require.NoError(t, a.Save(&buf))
	raw := buf.Bytes()

	// Overwrite the trailing trailer-length field with a value larger
	// than the whole stream, which CheckedOffset must reject instead
	// of letting Open read out of bounds.
	corrupted := make([]byte, len(raw))
	copy(corrupted, raw)
	for i := len(corrupted) - 8; i < len(corrupted); i++ {
		corrupted[i] = 0xff
	}
	_, err := Open(bytes.NewReader(corrupted))
	assert.Error(t, err)
}
