package filewriter

import (
	"crypto/sha1"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shreyas-Kamath/torrent-go/bencode"
	"github.com/Shreyas-Kamath/torrent-go/metainfo"
)

func buildSingleFileTorrent(t *testing.T, name string, pieceLen int64, content []byte) *metainfo.MetaInfo {
	t.Helper()

	var hashes []byte
	for off := int64(0); off < int64(len(content)); off += pieceLen {
		end := off + pieceLen
		if end > int64(len(content)) {
			end = int64(len(content))
		}
		h := sha1.Sum(content[off:end])
		hashes = append(hashes, h[:]...)
	}

	info := map[string]interface{}{
		"name":         name,
		"piece length": pieceLen,
		"pieces":       string(hashes),
		"length":       int64(len(content)),
	}
	infoBytes, err := bencode.Marshal(info)
	require.NoError(t, err)

	raw := map[string]interface{}{
		"announce": "http://tracker.example/announce",
		"info":     bencode.RawMessage(infoBytes),
	}
	data, err := bencode.Marshal(raw)
	require.NoError(t, err)

	m, err := metainfo.Parse(data)
	require.NoError(t, err)
	return m
}

func TestWritePieceSingleFile(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 20000)
	for i := range content {
		content[i] = byte(i)
	}
	mi := buildSingleFileTorrent(t, "out.bin", 16384, content)

	w, err := New(Config{Dir: dir}, mi, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NoError(t, w.WritePiece(1, content[16384:]))
	require.NoError(t, w.WritePiece(0, content[:16384]))

	got, err := os.ReadFile(filepath.Join(dir, "out.bin"))
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestWritePieceMultiFile(t *testing.T) {
	dir := t.TempDir()

	// Two files, piece length 15, piece 0 spans both files.
	fileA := []byte("0123456789") // 10 bytes, offset [0,10)
	fileB := []byte("ABCDEFGHIJ") // 10 bytes, offset [10,20)

	hashPiece0 := append(append([]byte{}, fileA...), fileB[:5]...) // bytes [0,15)
	h0 := sha1.Sum(hashPiece0)
	h1 := sha1.Sum(fileB[5:])
	hashes := append(append([]byte{}, h0[:]...), h1[:]...)

	info := map[string]interface{}{
		"name":         "root",
		"piece length": int64(15),
		"pieces":       string(hashes),
		"files": []map[string]interface{}{
			{"length": int64(10), "path": []string{"a.txt"}},
			{"length": int64(10), "path": []string{"sub", "b.txt"}},
		},
	}
	infoBytes, err := bencode.Marshal(info)
	require.NoError(t, err)
	raw := map[string]interface{}{
		"announce": "http://tracker.example/announce",
		"info":     bencode.RawMessage(infoBytes),
	}
	data, err := bencode.Marshal(raw)
	require.NoError(t, err)
	mi, err := metainfo.Parse(data)
	require.NoError(t, err)

	w, err := New(Config{Dir: dir}, mi, zap.NewNop().Sugar())
	require.NoError(t, err)

	full := append(append([]byte{}, fileA...), fileB...)
	require.NoError(t, w.WritePiece(0, full[:15]))
	require.NoError(t, w.WritePiece(1, full[15:]))

	gotA, err := os.ReadFile(filepath.Join(dir, "root", "a.txt"))
	require.NoError(t, err)
	gotB, err := os.ReadFile(filepath.Join(dir, "root", "sub", "b.txt"))
	require.NoError(t, err)

	require.Equal(t, fileA[:5], gotA[:5])
	require.Equal(t, fileA[5:], gotA[5:])
	require.Equal(t, fileB, gotB)
}

func TestPrecreateFilesAreZeroLengthAtConstruction(t *testing.T) {
	dir := t.TempDir()
	mi := buildSingleFileTorrent(t, "empty.bin", 10, make([]byte, 10))

	_, err := New(Config{Dir: dir}, mi, zap.NewNop().Sugar())
	require.NoError(t, err)

	fi, err := os.Stat(filepath.Join(dir, "empty.bin"))
	require.NoError(t, err)
	require.Equal(t, int64(0), fi.Size())
}
