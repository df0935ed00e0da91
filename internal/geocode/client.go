// Package geocode определяет адрес по координатам через Nominatim (OpenStreetMap).
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/mmeshcher/lavita-bot/internal/model"
)

// ErrUnresolved возвращается, если сервис не вернул адрес для координат.
var ErrUnresolved = errors.New("address not resolved")

// Client инкапсулирует HTTP-взаимодействие с Nominatim.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient создаёт клиент. rps ограничивает частоту запросов; Nominatim требует не больше одного в секунду.
func NewClient(baseURL, userAgent string, rps float64) *Client {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	if rps <= 0 {
		rps = 1
	}

	return &Client{
		baseURL:   base,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Resolve возвращает адрес для точки на языке пользователя.
func (c *Client) Resolve(ctx context.Context, lat, lon float64, lang model.Language) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")
	if lang != "" {
		q.Set("accept-language", string(lang))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("decode response: invalid json")
	}

	if e := gjson.GetBytes(body, "error"); e.Exists() {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, e.String())
	}

	address := strings.TrimSpace(gjson.GetBytes(body, "display_name").String())
	if address == "" {
		return "", ErrUnresolved
	}
	return address, nil
}
