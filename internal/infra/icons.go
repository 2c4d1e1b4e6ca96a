package infra

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// IconDownloader handles downloading and caching currency icons
type IconDownloader struct {
	basePath string
	baseURL  string
	client   *http.Client
}

// NewIconDownloader creates a downloader caching icons under dataDir
func NewIconDownloader(dataDir string) (*IconDownloader, error) {
	path := filepath.Join(dataDir, "assets", "icons")
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	// Bounded transport to prevent connection leaks during batch sync
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath: path,
		baseURL:  "https://assets.coincap.io/assets/icons",
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadIcon downloads the icon for a currency code if it doesn't exist.
// Returns the local file path on success. Images are resized to 24x24 pixels
// for consistent display.
func (d *IconDownloader) DownloadIcon(code string) (string, error) {
	// Sanitize code to prevent path traversal
	safeCode := sanitizeCode(code)
	if safeCode == "" {
		return "", fmt.Errorf("invalid currency code: %s", code)
	}

	fileName := strings.ToLower(safeCode) + ".png"
	filePath := filepath.Join(d.basePath, fileName)

	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Cache hit
	}

	url := fmt.Sprintf("%s/%s@2x.png", d.baseURL, strings.ToLower(safeCode))

	resp, err := d.client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resizedImg := imaging.Resize(srcImg, 24, 24, imaging.Lanczos)

	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// IconPath returns the local path for a currency's icon
func (d *IconDownloader) IconPath(code string) string {
	return filepath.Join(d.basePath, strings.ToLower(sanitizeCode(code))+".png")
}

func sanitizeCode(code string) string {
	res := make([]rune, 0, len(code))
	for _, r := range code {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
