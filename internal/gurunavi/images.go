package gurunavi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/patrickmn/go-cache"
)

// sliderImage selects the main photo of a Gurunavi shop page.
const sliderImage = "#motif-slider-main img"

// ErrNoImage is returned when a shop page has no slider photo.
var ErrNoImage = errors.New("no image on shop page")

// FetchImage implements venue.ImageFetcher. It loads a shop page once, with
// no retries, and returns the absolute URL of its main slider photo.
func (c *Client) FetchImage(ctx context.Context, pageURL string) (string, error) {
	key := "img:" + pageURL
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v.(string), nil
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %w", ErrTimeout, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Attempts: 1}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse shop page: %w", err)
	}
	src, ok := doc.Find(sliderImage).First().Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return "", ErrNoImage
	}

	img, err := resolveRef(pageURL, src)
	if err != nil {
		return "", err
	}
	if c.cache != nil {
		c.cache.Set(key, img, cache.DefaultExpiration)
	}
	return img, nil
}

func resolveRef(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid page url: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid image url %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
