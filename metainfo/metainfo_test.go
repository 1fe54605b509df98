package metainfo

import (
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shreyas-Kamath/torrent-go/bencode"
)

func hashesOf(pieces ...string) string {
	var out []byte
	for _, p := range pieces {
		h := sha1.Sum([]byte(p))
		out = append(out, h[:]...)
	}
	return string(out)
}

func buildTorrent(t *testing.T, announce string, info map[string]interface{}) []byte {
	t.Helper()
	infoBytes, err := bencode.Marshal(info)
	require.NoError(t, err)

	raw := map[string]interface{}{
		"announce": announce,
		"info":     bencode.RawMessage(infoBytes),
	}
	data, err := bencode.Marshal(raw)
	require.NoError(t, err)
	return data
}

func TestParseSingleFile(t *testing.T) {
	pieceA := make([]byte, 16384)
	pieceB := make([]byte, 3616) // total 20000, last piece short.
	data := buildTorrent(t, "http://tracker.example/announce", map[string]interface{}{
		"name":         "file.bin",
		"piece length": int64(16384),
		"pieces":       hashesOf(string(pieceA), string(pieceB)),
		"length":       int64(20000),
	})

	m, err := Parse(data)
	require.NoError(t, err)

	require.Equal(t, 2, m.NumPieces())
	require.Equal(t, int64(20000), m.TotalLength())
	require.Equal(t, int64(16384), m.PieceLength(0))
	require.Equal(t, int64(20000-16384), m.PieceLength(1))
	require.Equal(t, []string{"http://tracker.example/announce"}, m.AnnounceURLs())
}

// Every metainfo satisfies: numPieces*pieceLength >= total and
// (numPieces-1)*pieceLength < total, and the last piece's length equals
// total - (numPieces-1)*pieceLength.
func TestPieceArithmeticInvariant(t *testing.T) {
	pieceLen := int64(16384)
	total := int64(20000)

	data := buildTorrent(t, "http://tracker.example/announce", map[string]interface{}{
		"name":         "file.bin",
		"piece length": pieceLen,
		"pieces":       hashesOf("a", "b"),
		"length":       total,
	})
	m, err := Parse(data)
	require.NoError(t, err)

	numPieces := m.NumPieces()
	require.GreaterOrEqual(t, int64(numPieces)*pieceLen, total)
	require.Less(t, int64(numPieces-1)*pieceLen, total)

	lastLen := m.PieceLength(numPieces - 1)
	require.Equal(t, total-int64(numPieces-1)*pieceLen, lastLen)
}

func TestParseMultiFile(t *testing.T) {
	p0 := make([]byte, 10)
	data := buildTorrent(t, "http://tracker.example/announce", map[string]interface{}{
		"name":         "multi",
		"piece length": int64(10),
		"pieces":       hashesOf(string(p0)),
		"files": []map[string]interface{}{
			{"length": int64(4), "path": []string{"a.txt"}},
			{"length": int64(6), "path": []string{"sub", "b.txt"}},
		},
	})

	m, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, int64(10), m.TotalLength())
	require.False(t, m.Info.SingleFile())
	require.Len(t, m.Info.Files(), 2)
}

func TestParseRejectsBothLengthAndFiles(t *testing.T) {
	data := buildTorrent(t, "http://tracker.example/announce", map[string]interface{}{
		"name":         "bad",
		"piece length": int64(10),
		"pieces":       hashesOf("x"),
		"length":       int64(1),
		"files": []map[string]interface{}{
			{"length": int64(1), "path": []string{"a"}},
		},
	})
	_, err := Parse(data)
	require.Error(t, err)
	require.IsType(t, &ErrInvalid{}, err)
}

func TestParseRejectsMismatchedPieceCount(t *testing.T) {
	data := buildTorrent(t, "http://tracker.example/announce", map[string]interface{}{
		"name":         "bad",
		"piece length": int64(10),
		"pieces":       hashesOf("only-one"),
		"length":       int64(25), // wants 3 pieces, only 1 hash given.
	})
	_, err := Parse(data)
	require.Error(t, err)
}

func TestAnnounceListFlattenedAndDeduplicated(t *testing.T) {
	info := map[string]interface{}{
		"name":         "f",
		"piece length": int64(10),
		"pieces":       hashesOf("aaaaaaaaaa"),
		"length":       int64(10),
	}
	infoBytes, err := bencode.Marshal(info)
	require.NoError(t, err)

	raw := map[string]interface{}{
		"announce": "http://a/announce",
		"announce-list": [][]string{
			{"http://a/announce", "http://b/announce"},
			{"http://c/announce"},
		},
		"info": bencode.RawMessage(infoBytes),
	}
	data, err := bencode.Marshal(raw)
	require.NoError(t, err)

	m, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, []string{
		"http://a/announce",
		"http://b/announce",
		"http://c/announce",
	}, m.AnnounceURLs())
}

// Encoding then decoding the info dict yields byte-identical output in
// canonical form (sorted keys, no whitespace).
func TestBencodeInfoRoundTripIsCanonical(t *testing.T) {
	info := map[string]interface{}{
		"name":         "f",
		"piece length": int64(10),
		"pieces":       hashesOf("aaaaaaaaaa"),
		"length":       int64(10),
	}
	encoded, err := bencode.Marshal(info)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, bencode.Unmarshal(encoded, &decoded))

	reencoded, err := bencode.Marshal(decoded)
	require.NoError(t, err)

	require.Equal(t, string(encoded), string(reencoded))
}

func TestInfoHashIsSHA1OfRawInfoBytes(t *testing.T) {
	info := map[string]interface{}{
		"name":         "f",
		"piece length": int64(10),
		"pieces":       hashesOf("aaaaaaaaaa"),
		"length":       int64(10),
	}
	infoBytes, err := bencode.Marshal(info)
	require.NoError(t, err)

	raw := map[string]interface{}{
		"announce": "http://a/announce",
		"info":     bencode.RawMessage(infoBytes),
	}
	data, err := bencode.Marshal(raw)
	require.NoError(t, err)

	m, err := Parse(data)
	require.NoError(t, err)

	want := sha1.Sum(infoBytes)
	require.Equal(t, want[:], m.InfoHash.Bytes())
}
