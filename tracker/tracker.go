package tracker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Shreyas-Kamath/torrent-go/bencode"
	"github.com/Shreyas-Kamath/torrent-go/core"
)

// defaultInterval is used when the tracker omits interval or returns 0.
const defaultInterval = 120 * time.Second

// ErrUnreachable wraps a transient failure to reach the tracker (network
// error, any HTTP status other than 200). The caller retries on the next announce
// interval.
type ErrUnreachable struct {
	URL string
	Err error
}

func (e *ErrUnreachable) Error() string {
	return fmt.Sprintf("tracker %s unreachable: %s", e.URL, e.Err)
}

func (e *ErrUnreachable) Unwrap() error { return e.Err }

// ErrMalformed wraps a failure to decode the tracker's response body as
// bencode or to make sense of its peers field. Ends that tracker's task.
type ErrMalformed struct {
	URL string
	Err error
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("tracker %s sent malformed response: %s", e.URL, e.Err)
}

func (e *ErrMalformed) Unwrap() error { return e.Err }

// AnnounceResult is the outcome of one successful Announce call.
type AnnounceResult struct {
	Interval time.Duration
	Peers    []core.PeerEndpoint
}

// AnnounceParams are the swarm-identifying values every Announce call
// sends.
type AnnounceParams struct {
	InfoHash core.InfoHash
	PeerID   core.PeerID
	Port     uint16
	Left     int64
	Event    string // "started", "stopped", or "" for a regular announce.
}

// Tracker is the capability set every tracker transport implements,
// polymorphic over transport so a UDP tracker can implement it later
// without touching the supervisor.
type Tracker interface {
	Announce(ctx context.Context, params AnnounceParams) (AnnounceResult, error)
	URL() string
}

// HTTPTracker announces over a plain GET request, using net/http's
// default client shape with a bounded timeout.
type HTTPTracker struct {
	url    string
	client *http.Client
	logger *zap.SugaredLogger
}

// NewHTTPTracker returns an HTTPTracker announcing to trackerURL.
func NewHTTPTracker(trackerURL string, config Config, logger *zap.SugaredLogger) *HTTPTracker {
	config = config.applyDefaults()
	return &HTTPTracker{
		url:    trackerURL,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// URL returns the tracker's announce URL.
func (t *HTTPTracker) URL() string { return t.url }

// Announce issues the announce GET request and parses the response.
func (t *HTTPTracker) Announce(ctx context.Context, params AnnounceParams) (AnnounceResult, error) {
	reqURL := t.buildAnnounceURL(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return AnnounceResult{}, &ErrUnreachable{URL: t.url, Err: err}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return AnnounceResult{}, &ErrUnreachable{URL: t.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AnnounceResult{}, &ErrUnreachable{
			URL: t.url,
			Err: fmt.Errorf("non-200 status: %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return AnnounceResult{}, &ErrUnreachable{URL: t.url, Err: err}
	}

	result, err := parseAnnounceResponse(body)
	if err != nil {
		return AnnounceResult{}, &ErrMalformed{URL: t.url, Err: err}
	}
	return result, nil
}

// buildAnnounceURL constructs the GET target. info_hash and peer_id are
// percent-encoded by hand rather than via net/url.Values, because BEP 3
// requires every non-unreserved byte be escaped and net/url's query
// encoding does not reproduce that rule exactly for raw binary (it diverges
// on which bytes it treats as safe across Go versions).
func (t *HTTPTracker) buildAnnounceURL(params AnnounceParams) string {
	sep := "?"
	if u, err := url.Parse(t.url); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return fmt.Sprintf(
		"%s%sinfo_hash=%s&peer_id=%s&port=%d&uploaded=0&downloaded=0&left=%d&compact=1&event=%s",
		t.url, sep,
		percentEncodeBytes(params.InfoHash[:]),
		percentEncodeBytes(params.PeerID[:]),
		params.Port,
		params.Left,
		params.Event,
	)
}

// unreservedByte reports whether b may appear unescaped in a BEP 3
// percent-encoded field: ASCII letters, digits, and -_.~.
func unreservedByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '_' || b == '.' || b == '~':
		return true
	default:
		return false
	}
}

// percentEncodeBytes encodes raw bytes per BEP 3: every non-unreserved byte
// becomes %XX, uppercase hex.
func percentEncodeBytes(b []byte) string {
	const hex = "0123456789ABCDEF"
	out := make([]byte, 0, len(b)*3)
	for _, c := range b {
		if unreservedByte(c) {
			out = append(out, c)
		} else {
			out = append(out, '%', hex[c>>4], hex[c&0x0F])
		}
	}
	return string(out)
}

// trackerResponse mirrors the bencoded announce response. Peers is deferred
// as bencode.RawMessage because it is a tagged variant: either a compact
// byte string or a list of dicts.
type trackerResponse struct {
	FailureReason string             `bencode:"failure reason,omitempty"`
	Interval      int64              `bencode:"interval,omitempty"`
	Peers         bencode.RawMessage `bencode:"peers,omitempty"`
}

type dictPeer struct {
	IP   string `bencode:"ip"`
	Port int64  `bencode:"port"`
}

func parseAnnounceResponse(body []byte) (AnnounceResult, error) {
	var resp trackerResponse
	if err := bencode.Unmarshal(body, &resp); err != nil {
		return AnnounceResult{}, fmt.Errorf("bencode decode: %s", err)
	}
	if resp.FailureReason != "" {
		return AnnounceResult{}, fmt.Errorf("tracker failure: %s", resp.FailureReason)
	}

	interval := defaultInterval
	if resp.Interval > 0 {
		interval = time.Duration(resp.Interval) * time.Second
	}

	peers, err := parsePeers(resp.Peers)
	if err != nil {
		return AnnounceResult{}, err
	}

	return AnnounceResult{Interval: interval, Peers: peers}, nil
}

// parsePeers dispatches to the compact or dict parser based on the first
// decoded bencode byte: 'l' opens a list (dict form), any digit opens a
// byte string (compact form), per the tagged-variant design.
func parsePeers(raw bencode.RawMessage) ([]core.PeerEndpoint, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch raw[0] {
	case 'l':
		return parseDictPeers(raw)
	default:
		return parseCompactPeers(raw)
	}
}

// parseCompactPeers decodes the 6-bytes-per-peer compact form: 4-byte IPv4
// followed by a 2-byte big-endian port.
func parseCompactPeers(raw bencode.RawMessage) ([]core.PeerEndpoint, error) {
	var packed string
	if err := bencode.Unmarshal(raw, &packed); err != nil {
		return nil, fmt.Errorf("compact peers: %s", err)
	}
	if len(packed)%6 != 0 {
		return nil, fmt.Errorf("compact peers: length %d not a multiple of 6", len(packed))
	}

	peers := make([]core.PeerEndpoint, 0, len(packed)/6)
	for i := 0; i < len(packed); i += 6 {
		var ip [4]byte
		copy(ip[:], packed[i:i+4])
		port := uint16(packed[i+4])<<8 | uint16(packed[i+5])
		peers = append(peers, core.NewPeerEndpoint(ip, port))
	}
	return peers, nil
}

// parseDictPeers decodes the list-of-dicts form: each dict has an "ip"
// string and a "port" int.
func parseDictPeers(raw bencode.RawMessage) ([]core.PeerEndpoint, error) {
	var dicts []dictPeer
	if err := bencode.Unmarshal(raw, &dicts); err != nil {
		return nil, fmt.Errorf("dict peers: %s", err)
	}

	peers := make([]core.PeerEndpoint, 0, len(dicts))
	for _, d := range dicts {
		ip, err := parseIPv4(d.IP)
		if err != nil {
			return nil, fmt.Errorf("dict peers: %s", err)
		}
		if d.Port < 0 || d.Port > 0xFFFF {
			return nil, fmt.Errorf("dict peers: port %d out of range", d.Port)
		}
		peers = append(peers, core.NewPeerEndpoint(ip, uint16(d.Port)))
	}
	return peers, nil
}

func parseIPv4(s string) ([4]byte, error) {
	var ip [4]byte
	var a, b, c, d int
	n, err := fmt.Sscanf(s, "%d.%d.%d.%d", &a, &b, &c, &d)
	if err != nil || n != 4 {
		return ip, fmt.Errorf("invalid IPv4 address %q", s)
	}
	for _, octet := range []int{a, b, c, d} {
		if octet < 0 || octet > 255 {
			return ip, fmt.Errorf("invalid IPv4 address %q", s)
		}
	}
	ip = [4]byte{byte(a), byte(b), byte(c), byte(d)}
	return ip, nil
}
