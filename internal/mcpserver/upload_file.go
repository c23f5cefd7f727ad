package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/filedeck/internal/fileops"
	"github.com/starford/filedeck/internal/pathresolver"
)

const maxFetchSize = 32 << 20 // 32 MB

func (s *Server) uploadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var data []byte
	if strings.HasPrefix(rawURL, "data:") {
		data, err = decodeDataURI(rawURL)
	} else {
		data, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filename := req.GetString("filename", "")
	if filename == "" {
		filename = filenameFromURL(rawURL, data)
	}

	res, err := s.svc.Upload(ctx, actor, req.GetString("dir", ""), []fileops.Incoming{
		{Filename: filename, Content: bytes.NewReader(data), OK: true},
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxFetchSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxFetchSize)
	}
	return data, nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: dialControl}
	client := &http.Client{
		Timeout: 30 * time.Second,
		// No proxy: the address checked in dialControl must be the origin.
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxFetchSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", maxFetchSize)
	}
	return data, nil
}

// checkBlockedHost rejects well-known metadata host names and blocked IP
// literals before any connection is made. Names that resolve to a blocked
// address are caught by dialControl.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		return checkBlockedIP(ip)
	}
	return nil
}

// dialControl runs after DNS resolution, on the address actually dialed.
func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("blocked address %s: %w", address, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("blocked address %s: not an IP", address)
	}
	return checkBlockedIP(ip)
}

// checkBlockedIP rejects loopback, private, link-local, unspecified and
// multicast addresses, which covers the cloud metadata endpoint.
func checkBlockedIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("blocked host: loopback address %s", ip)
	case ip.IsPrivate():
		return fmt.Errorf("blocked host: private address %s", ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("blocked host: link-local address %s", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("blocked host: unspecified address %s", ip)
	case ip.IsMulticast():
		return fmt.Errorf("blocked host: multicast address %s", ip)
	}
	return nil
}

// filenameFromURL takes the last path segment of an http(s) URL. Data URIs
// and URLs without a usable name get a random name with an extension sniffed
// from the content.
func filenameFromURL(rawURL string, data []byte) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := pathresolver.Normalize(path.Base(parsed.Path))
			if base != "" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		ext = ".bin"
	}
	return uuid.New().String() + ext
}
