package media

import (
	"net/url"
	"strings"
)

// Extractor maps public media URLs to object-store keys.
//
// The store is reachable through two URL shapes observed in practice:
//
//	CDN form:      https://<cdn-host>/<key>
//	endpoint form: https://<endpoint-host>/<bucket>/<key>
//
// Anything else (third-party placeholder images, malformed values in old
// records) is "not ours": ExtractKey reports ok=false and callers skip the
// URL. The extractor is total; it never panics regardless of input, because
// it runs over untrusted historical data.
type Extractor struct {
	// CDNHost is the public serving host (e.g. "pub-xyz.r2.dev").
	CDNHost string

	// EndpointHost is the private API host (e.g. "endpoint.example.com").
	EndpointHost string

	// Bucket is the bucket name expected as the first path segment in the
	// endpoint form.
	Bucket string
}

// ExtractKey maps a public URL to the object-store key it references.
//
// Returns ok=false for URLs that do not match either recognized shape, for
// non-HTTP schemes, and for unparseable input. Host comparison ignores case;
// the key is returned exactly as it appears in the path.
func (e Extractor) ExtractKey(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	path := strings.TrimPrefix(u.EscapedPath(), "/")
	if path == "" {
		return "", false
	}

	switch host {
	case strings.ToLower(e.CDNHost):
		if e.CDNHost == "" {
			return "", false
		}
		return decodeKey(path)

	case strings.ToLower(e.EndpointHost):
		if e.EndpointHost == "" {
			return "", false
		}
		// Endpoint form carries the bucket as the first segment.
		bucket, key, found := strings.Cut(path, "/")
		if !found || key == "" || bucket != e.Bucket {
			return "", false
		}
		return decodeKey(key)

	default:
		return "", false
	}
}

// decodeKey unescapes the path form of a key. Escape errors mean the URL was
// malformed, so the key is not deletable.
func decodeKey(escaped string) (string, bool) {
	key, err := url.PathUnescape(escaped)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}
