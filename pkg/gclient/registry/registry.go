// Package registry implements the CIPD-like package registry's typed
// binary-RPC client: ResolveVersion (package+version -> instance
// digest) and GetInstanceURL (instance digest -> download URL), plus
// the ${platform}/${os}/${arch} host-variable substitution applied to
// ResolveVersion package names.
//
// Grounded on pkg/integrations/client.go's HTTP client shape (shared
// client, default headers, cache-backed fetch), adapted from JSON
// decoding to the schema-defined binary pRPC wire format described by
// original_source/src/cipd/{common,repository}.rs. Field numbers for
// the request/response messages are not recoverable from the retrieved
// Rust source (the prost-generated .proto schema isn't in the
// retrieval pack); this client assigns them in declaration order,
// documented per type below, matching the field *order* the original
// structs declare.
package registry

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tapcart/gclient/pkg/buildinfo"
	"github.com/tapcart/gclient/pkg/cache"
	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/host"
	"github.com/tapcart/gclient/pkg/observability"
)

// DefaultBaseURL is the registry host used when none is configured,
// mirroring original_source's hardcoded chrome-infra-packages endpoint.
const DefaultBaseURL = "https://chrome-infra-packages.appspot.com"

const prpcContentType = "application/prpc; encoding=binary"

// Digest identifies a content-addressed package instance.
type Digest struct {
	Algorithm int32
	HexDigest string
}

// Instance is the result of resolving a package+version to a concrete
// instance.
type Instance struct {
	Package   string
	Digest    Digest
	Publisher string
}

// Client is the registry's binary pRPC client.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Cache   cache.Cache
	TTL     time.Duration
}

// NewClient builds a Client with the shared HTTP configuration spec
// §4.8 prescribes: gzip decompression on, brotli/deflate off (Go's
// net/http never speaks brotli and only negotiates deflate via
// explicit codecs, so the default transport already satisfies this),
// and a descriptive User-Agent. c may be nil, in which case resolve
// responses are not cached.
func NewClient(baseURL string, c cache.Cache) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Transport: &http.Transport{DisableCompression: false},
		},
		Cache: c,
		TTL:   time.Hour,
	}
}

// ResolveVersion resolves a package name and version tag to a concrete
// instance. The package name is passed through host-variable
// substitution first (spec §4.8).
func (c *Client) ResolveVersion(ctx context.Context, pkg, version string) (Instance, error) {
	substituted := fillHostVariables(pkg)
	cacheKey := "cipd:resolve:" + substituted + "@" + version

	if data, hit, _ := c.Cache.Get(ctx, cacheKey); hit {
		if inst, ok := decodePackageInstance(data); ok {
			observability.Cache().OnCacheHit(ctx, "cipd:resolve")
			return inst, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "cipd:resolve")

	req := encodeResolveVersionRequest(substituted, version)
	respBody, err := c.call(ctx, "ResolveVersion", req)
	if err != nil {
		return Instance{}, err
	}
	inst, ok := decodePackageInstance(respBody)
	if !ok {
		return Instance{}, gerrors.New(gerrors.CodeRegistry, "ResolveVersion(%s@%s): malformed response", substituted, version)
	}
	if inst.Digest.HexDigest == "" {
		return Instance{}, gerrors.New(gerrors.CodeRegistry, "ResolveVersion(%s@%s): response missing digest", substituted, version)
	}

	if err := c.Cache.Set(ctx, cacheKey, respBody, c.TTL); err == nil {
		observability.Cache().OnCacheSet(ctx, "cipd:resolve", len(respBody))
	}
	return inst, nil
}

// GetInstanceURL resolves a package instance's digest to a download URL.
func (c *Client) GetInstanceURL(ctx context.Context, pkg string, digest Digest) (string, error) {
	req := encodeGetInstanceURLRequest(pkg, digest)
	respBody, err := c.call(ctx, "GetInstanceURL", req)
	if err != nil {
		return "", err
	}
	url, ok := decodeInstanceURL(respBody)
	if !ok || url == "" {
		return "", gerrors.New(gerrors.CodeRegistry, "GetInstanceURL(%s): malformed or empty response", pkg)
	}
	return url, nil
}

// call performs one pRPC POST and returns the raw binary response body.
// 5xx responses and transport errors are retried with backoff via
// pkg/cache's RetryableError plumbing; 4xx responses are not retried.
func (c *Client) call(ctx context.Context, method string, body []byte) ([]byte, error) {
	reqPath := "/prpc/cipd.Repository/" + method
	url := strings.TrimRight(c.BaseURL, "/") + reqPath
	host := strings.TrimPrefix(strings.TrimPrefix(c.BaseURL, "https://"), "http://")

	var respBody []byte
	err := cache.RetryWithBackoff(ctx, func() error {
		start := time.Now()
		observability.HTTP().OnRequest(ctx, http.MethodPost, host, reqPath)

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			observability.HTTP().OnError(ctx, http.MethodPost, host, reqPath, err)
			return gerrors.Wrap(gerrors.CodeNetwork, err, "building request for %s", method)
		}
		httpReq.Header.Set("Content-Type", prpcContentType)
		httpReq.Header.Set("Accept", prpcContentType)
		httpReq.Header.Set("User-Agent", userAgent)

		resp, err := c.HTTP.Do(httpReq)
		if err != nil {
			observability.HTTP().OnError(ctx, http.MethodPost, host, reqPath, err)
			return cache.Retryable(gerrors.Wrap(gerrors.CodeNetwork, err, "calling cipd.Repository/%s", method))
		}
		defer resp.Body.Close()
		observability.HTTP().OnResponse(ctx, http.MethodPost, host, reqPath, resp.StatusCode, time.Since(start))

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return cache.Retryable(gerrors.Wrap(gerrors.CodeNetwork, err, "reading response from cipd.Repository/%s", method))
		}

		if resp.StatusCode >= 500 {
			return cache.Retryable(gerrors.New(gerrors.CodeRegistry, "cipd.Repository/%s responded with http %d", method, resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/") {
				return gerrors.New(gerrors.CodeRegistry, "cipd.Repository/%s responded with http %d: %s", method, resp.StatusCode, string(data))
			}
			return gerrors.New(gerrors.CodeRegistry, "cipd.Repository/%s responded with http %d", method, resp.StatusCode)
		}
		respBody = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// userAgent identifies this client, per spec §4.8's "User-Agent
// including the tool version".
var userAgent = "gclient-fetcher/" + buildinfo.Version

// fillHostVariables expands ${platform}/${os}/${arch} placeholders in a
// package name using the registry's own OS/CPU vocabulary (distinct
// from the DEPS-side vocabulary in pkg/gclient/host's OS/CPU
// functions). A doubled-brace "${{...}}" form, observed in some
// downstream DEPS fixtures, is normalized to the canonical single-brace
// form before substitution.
func fillHostVariables(pkg string) string {
	s := pkg
	s = strings.ReplaceAll(s, "${{platform}}", "${platform}")
	s = strings.ReplaceAll(s, "${{os}}", "${os}")
	s = strings.ReplaceAll(s, "${{arch}}", "${arch}")
	s = strings.ReplaceAll(s, "${platform}", host.Platform())
	s = strings.ReplaceAll(s, "${os}", host.RegistryOS())
	s = strings.ReplaceAll(s, "${arch}", host.RegistryCPU())
	return s
}

// --- wire encoding ---
//
// Field numbers below follow the declaration order of the
// prost-generated Rust structs in original_source/src/cipd/*.rs.

// ResolveVersionRequest: package=1 (string), tag=2 (string).
func encodeResolveVersionRequest(pkg, tag string) []byte {
	var b []byte
	b = appendStringField(b, 1, pkg)
	b = appendStringField(b, 2, tag)
	return b
}

// GetInstanceUrlRequest: package=1 (string), digest=2 (embedded Digest message).
func encodeGetInstanceURLRequest(pkg string, d Digest) []byte {
	var b []byte
	b = appendStringField(b, 1, pkg)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, encodeDigest(d))
	return b
}

// InstanceDigest: algorithm=1 (varint enum), hex_digest=2 (string).
func encodeDigest(d Digest) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d.Algorithm))
	b = appendStringField(b, 2, d.HexDigest)
	return b
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendString(b, s)
	return b
}

// --- wire decoding ---

// PackageInstance: package=1 (string), digest=2 (embedded Digest), publisher=3 (string).
func decodePackageInstance(data []byte) (Instance, bool) {
	var inst Instance
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Instance{}, false
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return Instance{}, false
			}
			inst.Package = s
			data = data[m:]
		case num == 2 && typ == protowire.BytesType:
			raw, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return Instance{}, false
			}
			d, ok := decodeDigest(raw)
			if !ok {
				return Instance{}, false
			}
			inst.Digest = d
			data = data[m:]
		case num == 3 && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return Instance{}, false
			}
			inst.Publisher = s
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return Instance{}, false
			}
			data = data[m:]
		}
	}
	return inst, true
}

func decodeDigest(data []byte) (Digest, bool) {
	var d Digest
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Digest{}, false
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return Digest{}, false
			}
			d.Algorithm = int32(v)
			data = data[m:]
		case num == 2 && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return Digest{}, false
			}
			d.HexDigest = s
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return Digest{}, false
			}
			data = data[m:]
		}
	}
	return d, true
}

// InstanceUrl: url=1 (string).
func decodeInstanceURL(data []byte) (string, bool) {
	var url string
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", false
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return "", false
			}
			url = s
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return "", false
			}
			data = data[m:]
		}
	}
	return url, true
}
