package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"
)

// maxStylesheetSize bounds a single downloaded stylesheet.
const maxStylesheetSize = 4 << 20

// ErrUnsafeStylesheet is returned for a stylesheet that would end the
// <style> element it is inlined into.
var ErrUnsafeStylesheet = errors.New("stylesheet closes its style element")

// FetchStylesheets downloads the given stylesheets concurrently and returns
// their contents in the order of urls. Any failure cancels the others.
func FetchStylesheets(ctx context.Context, client *http.Client, urls []string) ([]string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	sheets := make([]string, len(urls))
	g, ctx := errgroup.WithContext(ctx)

	for i, url := range urls {
		g.Go(func() error {
			css, err := fetchStylesheet(ctx, client, url)
			if err != nil {
				return err
			}
			sheets[i] = css
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sheets, nil
}

func fetchStylesheet(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create stylesheet request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch stylesheet %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch stylesheet %s: %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStylesheetSize))
	if err != nil {
		return "", fmt.Errorf("failed to read stylesheet %s: %w", url, err)
	}
	if closesStyle(string(body)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeStylesheet, url)
	}
	return string(body), nil
}

// closesStyle reports whether css contains an end tag for <style>, in any case.
func closesStyle(css string) bool {
	return strings.Contains(strings.ToLower(css), "</style")
}
