package data

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"market-reconcile/internal/model"
)

// DefaultOMIEBaseURL is the public file-download endpoint of the Iberian market operator.
const DefaultOMIEBaseURL = "https://www.omie.es/es/file-download"

// DayFilePrefix names the day-ahead marginal price files.
const DayFilePrefix = "marginalpdbc"

// Downloader retrieves one named day file and streams its body into w.
type Downloader interface {
	Download(ctx context.Context, filename string, w io.Writer) (int64, error)
}

// OMIEClient downloads raw day files from the OMIE file-access service.
type OMIEClient struct {
	BaseURL string
	Client  *http.Client
}

// NewOMIEClient creates a new OMIE client.
// If baseURL is empty, defaults to DefaultOMIEBaseURL. A zero timeout means 30s.
func NewOMIEClient(baseURL string, timeout time.Duration) *OMIEClient {
	if baseURL == "" {
		baseURL = DefaultOMIEBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OMIEClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// OMIEError represents a failed retrieval from the market operator.
type OMIEError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *OMIEError) Error() string {
	return e.Message
}

// DayFilename returns the remote filename of date for the given 1-based suffix,
// e.g. marginalpdbc_20220307.1.
func DayFilename(date model.Date, suffix int) string {
	return fmt.Sprintf("%s_%04d%02d%02d.%d", DayFilePrefix, date.Year, int(date.Month), date.Day, suffix)
}

// Download fetches filename and copies the response body into w.
// It returns the number of bytes written; an empty body is not an error here,
// callers decide what an empty payload means.
func (c *OMIEClient) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("parents[0]", DayFilePrefix)
	q.Set("filename", filename)
	u.RawQuery = q.Encode()

	log.Printf("[OMIE] Request: GET %s (filename=%s)", u.Path, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	startTime := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Printf("[OMIE] Request failed: %v (duration: %v, filename=%s)", err, duration, filename)
		return 0, &OMIEError{
			Code:    "REQUEST_FAILED",
			Message: fmt.Sprintf("request for %s failed: %v", filename, err),
		}
	}
	defer resp.Body.Close()

	log.Printf("[OMIE] Response: %s (duration: %v, filename=%s)", resp.Status, duration, filename)

	if resp.StatusCode != http.StatusOK {
		return 0, &OMIEError{
			StatusCode: resp.StatusCode,
			Code:       "HTTP_STATUS",
			Message:    fmt.Sprintf("OMIE returned status %d for %s", resp.StatusCode, filename),
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read body of %s: %w", filename, err)
	}
	return n, nil
}
