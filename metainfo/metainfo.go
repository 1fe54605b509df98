// Package metainfo loads and exposes the contents of a .torrent file: the
// tracker announce URLs and the info dictionary describing the logical
// content stream and its piece hashes.
package metainfo

import (
	"crypto/sha1"
	"fmt"
	"os"

	"github.com/Shreyas-Kamath/torrent-go/bencode"
	"github.com/Shreyas-Kamath/torrent-go/core"
)

// ErrInvalid wraps any failure to parse or validate a metainfo file. It is
// always fatal: the caller should abort rather than retry.
type ErrInvalid struct {
	Reason string
}

func (e *ErrInvalid) Error() string {
	return fmt.Sprintf("invalid metainfo: %s", e.Reason)
}

func invalid(format string, args ...interface{}) error {
	return &ErrInvalid{Reason: fmt.Sprintf(format, args...)}
}

// File describes one backing file within a multi-file torrent. Path is the
// ordered list of path components, e.g. {"subdir", "file.txt"}.
type File struct {
	Length int64    `bencode:"length"`
	Path   []string `bencode:"path"`
}

// rawInfo mirrors the bencoded "info" dictionary fields exactly, so that
// round-tripping through encode/decode preserves canonical form.
type rawInfo struct {
	Name        string `bencode:"name"`
	PieceLength int64  `bencode:"piece length"`
	Pieces      string `bencode:"pieces"`
	Length      int64  `bencode:"length,omitempty"`
	Files       []File `bencode:"files,omitempty"`
}

type rawMetaInfo struct {
	Announce     string             `bencode:"announce"`
	AnnounceList [][]string         `bencode:"announce-list,omitempty"`
	Info         bencode.RawMessage `bencode:"info"`
}

// Info is the immutable, validated content description of a torrent: its
// name, piece size, per-piece SHA-1 hashes, and either a single file length
// or an ordered list of files.
type Info struct {
	name        string
	pieceLength int64
	length      int64  // single-file mode; 0 when files is set.
	files       []File // multi-file mode; nil when length is set.

	pieceHashes [][20]byte
	totalLength int64
}

// Name returns the suggested save name: the file name in single-file mode,
// or the directory name under which all Files are rooted.
func (i Info) Name() string { return i.name }

// SingleFile reports whether i describes a single-file torrent.
func (i Info) SingleFile() bool { return i.files == nil }

// Files returns the ordered file list for a multi-file torrent, or nil for
// a single-file torrent.
func (i Info) Files() []File { return i.files }

// NumPieces returns ceil(TotalLength() / configured piece length).
func (i Info) NumPieces() int {
	return len(i.pieceHashes)
}

// TotalLength returns the sum of all file lengths (or the single file's
// length) described by i.
func (i Info) TotalLength() int64 {
	return i.totalLength
}

// PieceLength returns the length in bytes of piece index idx. Every piece
// is the configured piece length except possibly the last, which may be
// shorter.
func (i Info) PieceLength(idx int) int64 {
	if idx < 0 || idx >= i.NumPieces() {
		return 0
	}
	if idx == i.NumPieces()-1 {
		return i.totalLength - int64(idx)*i.pieceLength
	}
	return i.pieceLength
}

// ConfiguredPieceLength returns the configured piece size used for every
// piece except the last. Used to compute a piece's global byte offset,
// which is always index*ConfiguredPieceLength() regardless of where the
// short final piece falls.
func (i Info) ConfiguredPieceLength() int64 {
	return i.pieceLength
}

// PieceHash returns the expected SHA-1 hash of piece index idx.
func (i Info) PieceHash(idx int) [20]byte {
	if idx < 0 || idx >= i.NumPieces() {
		return [20]byte{}
	}
	return i.pieceHashes[idx]
}

// MetaInfo is the fully loaded, immutable contents of a .torrent file.
type MetaInfo struct {
	Info         Info
	InfoHash     core.InfoHash
	announceURLs []string
}

// NumPieces delegates to MetaInfo.Info.
func (m *MetaInfo) NumPieces() int { return m.Info.NumPieces() }

// PieceLength delegates to MetaInfo.Info.
func (m *MetaInfo) PieceLength(idx int) int64 { return m.Info.PieceLength(idx) }

// PieceHash delegates to MetaInfo.Info.
func (m *MetaInfo) PieceHash(idx int) [20]byte { return m.Info.PieceHash(idx) }

// TotalLength delegates to MetaInfo.Info.
func (m *MetaInfo) TotalLength() int64 { return m.Info.TotalLength() }

// ConfiguredPieceLength delegates to MetaInfo.Info.
func (m *MetaInfo) ConfiguredPieceLength() int64 { return m.Info.ConfiguredPieceLength() }

// AnnounceURLs returns the flattened, deduplicated tracker URL list:
// "announce" first, then each "announce-list" tier in order.
func (m *MetaInfo) AnnounceURLs() []string {
	return m.announceURLs
}

// Load reads path, decodes it as bencode, and validates the result against
// this invariants. Any failure is an *ErrInvalid.
func Load(path string) (*MetaInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, invalid("read file: %s", err)
	}
	return Parse(data)
}

// Parse decodes and validates raw bencoded metainfo bytes. Exported
// separately from Load so tests and the tracker/e2e stubs can build
// synthetic torrents in memory.
func Parse(data []byte) (*MetaInfo, error) {
	var raw rawMetaInfo
	if err := bencode.Unmarshal(data, &raw); err != nil {
		return nil, invalid("bencode decode: %s", err)
	}
	if len(raw.Info) == 0 {
		return nil, invalid("missing info dict")
	}

	var ri rawInfo
	if err := bencode.Unmarshal(raw.Info, &ri); err != nil {
		return nil, invalid("info dict: %s", err)
	}

	info, err := newInfo(ri)
	if err != nil {
		return nil, err
	}

	// info_hash is SHA1 of the raw bytes exactly as they appeared in the
	// file, never a re-encoding, so it matches what every peer computed
	// from the same file even if it is not in canonical form.
	infoHash := core.NewInfoHashFromBytes([]byte(raw.Info))

	urls := flattenAnnounceURLs(raw.Announce, raw.AnnounceList)

	return &MetaInfo{
		Info:         info,
		InfoHash:     infoHash,
		announceURLs: urls,
	}, nil
}

func newInfo(ri rawInfo) (Info, error) {
	if ri.Name == "" {
		return Info{}, invalid("missing name")
	}
	if ri.PieceLength <= 0 {
		return Info{}, invalid("piece length must be positive, got %d", ri.PieceLength)
	}
	if len(ri.Pieces)%sha1.Size != 0 {
		return Info{}, invalid("pieces length %d is not a multiple of %d", len(ri.Pieces), sha1.Size)
	}
	hasLength := ri.Length > 0
	hasFiles := len(ri.Files) > 0
	if hasLength == hasFiles {
		return Info{}, invalid("exactly one of length or files must be set")
	}

	var total int64
	if hasLength {
		total = ri.Length
	} else {
		for _, f := range ri.Files {
			if f.Length < 0 {
				return Info{}, invalid("negative file length: %d", f.Length)
			}
			if len(f.Path) == 0 {
				return Info{}, invalid("file missing path")
			}
			total += f.Length
		}
	}
	if total <= 0 {
		return Info{}, invalid("total length must be positive, got %d", total)
	}

	numPieces := len(ri.Pieces) / sha1.Size
	wantPieces := int((total + ri.PieceLength - 1) / ri.PieceLength)
	if numPieces != wantPieces {
		return Info{}, invalid(
			"piece hash count %d does not match ceil(total_length/piece_length) %d", numPieces, wantPieces)
	}

	hashes := make([][20]byte, numPieces)
	for i := range hashes {
		copy(hashes[i][:], ri.Pieces[i*sha1.Size:(i+1)*sha1.Size])
	}

	return Info{
		name:        ri.Name,
		pieceLength: ri.PieceLength,
		length:      ri.Length,
		files:       ri.Files,
		pieceHashes: hashes,
		totalLength: total,
	}, nil
}

func flattenAnnounceURLs(announce string, tiers [][]string) []string {
	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	add(announce)
	for _, tier := range tiers {
		for _, u := range tier {
			add(u)
		}
	}
	return urls
}
