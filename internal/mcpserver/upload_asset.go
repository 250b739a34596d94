package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	assetDir      = "attachments"
	maxAssetBytes = 10 << 20 // 10 MB
	fetchTimeout  = 30 * time.Second
	maxRedirects  = 5
)

var (
	assetExts = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true, ".pdf": true,
	}

	extByMIME = map[string]string{
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"image/svg+xml":   ".svg",
		"application/pdf": ".pdf",
	}

	unsafeCharRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", "")

	var data []byte
	var hintExt string
	if strings.HasPrefix(rawURL, "data:") {
		data, hintExt, err = parseDataURI(rawURL)
	} else {
		data, hintExt, err = downloadURL(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxAssetBytes {
		return mcp.NewToolResultError(fmt.Sprintf("asset too large: %d bytes (max %d)", len(data), maxAssetBytes)), nil
	}

	filename = deriveFilename(filename, rawURL, hintExt)

	ext := strings.ToLower(filepath.Ext(filename))
	if !assetExts[ext] {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported file extension: %s (allowed: png, jpg, jpeg, gif, webp, svg, pdf)", ext)), nil
	}
	if err := verifyContent(data, ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dest := filepath.Join(assetDir, filename)
	if _, readErr := s.store.Read(dest); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", dest)), nil
	}
	if err := s.store.Write(dest, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save attachment: %v", err)), nil
	}

	urlPath := "/attachments/" + filename
	out, _ := json.Marshal(map[string]string{
		"saved_path": urlPath,
		"markdown":   fmt.Sprintf("![%s](%s)", filename, urlPath),
	})
	return mcp.NewToolResultText(string(out)), nil
}

// parseDataURI decodes a data:[<mediatype>];base64,<data> URI and maps the
// media type to a file extension.
func parseDataURI(uri string) ([]byte, string, error) {
	meta, encoded, found := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !found {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext, ok := extByMIME[mime]
	if !ok {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return data, ext, nil
}

// downloadURL fetches an http(s) URL, refusing internal addresses at every
// redirect hop.
func downloadURL(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := rejectInternalHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			return rejectInternalHost(req.URL.Hostname())
		},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxAssetBytes {
		return nil, "", fmt.Errorf("asset too large: exceeds %d bytes", maxAssetBytes)
	}

	ct := strings.Split(resp.Header.Get("Content-Type"), ";")[0]
	return data, extByMIME[ct], nil
}

// rejectInternalHost blocks loopback, private and link-local ranges plus
// known cloud metadata endpoints.
func rejectInternalHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client surface DNS failures
		}
		ip = ips[0]
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("blocked host: loopback address %s", host)
	case ip.IsPrivate():
		return fmt.Errorf("blocked host: private address %s", host)
	case ip.IsLinkLocalUnicast():
		// Covers 169.254.169.254, the AWS/GCP/Azure metadata endpoint.
		return fmt.Errorf("blocked host: link-local address %s", host)
	}
	return nil
}

// deriveFilename picks a safe filename: the explicit one if given, else the
// URL path's base name, else a fresh UUID with the detected extension.
func deriveFilename(explicit, rawURL, hintExt string) string {
	name := explicit
	if name == "" && !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				name = base
			}
		}
	}
	if name == "" {
		if hintExt == "" {
			hintExt = ".bin"
		}
		return uuid.New().String() + hintExt
	}

	name = unsafeCharRe.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." {
		name = uuid.New().String()
	}
	return name
}

// verifyContent checks that the bytes plausibly match the extension, so a
// renamed executable cannot land in the vault as an image.
func verifyContent(data []byte, ext string) error {
	if ext == ".svg" {
		head := data
		if len(head) > 1024 {
			head = head[:1024]
		}
		if !bytes.Contains(head, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}

	detected := http.DetectContentType(data)
	detectedExt := extByMIME[strings.Split(detected, ";")[0]]

	if ext == ".jpg" || ext == ".jpeg" {
		if detectedExt != ".jpg" && detectedExt != ".jpeg" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
		return nil
	}
	if detectedExt != ext {
		return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
	}
	return nil
}
