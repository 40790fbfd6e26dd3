package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/i474232898/precip-subset/internal/common"
)

// List fetches the archive listing and returns the absolute URLs of every
// link ending in one of the configured suffixes, in document order and
// without duplicates.
func (f *Fetcher) List(ctx context.Context) ([]string, error) {
	base, err := url.Parse(f.listingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing url: %w", err)
	}

	resp, err := doRequestWithResilience(ctx, f.httpCfg, f.circuit, func() (*http.Request, error) {
		return f.newRequest(base.String())
	})
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", base, err)
	}
	defer resp.Body.Close()

	links, err := parseLinks(resp.Body, base, f.suffixes)
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", base, err)
	}
	return links, nil
}

func parseLinks(r io.Reader, base *url.URL, suffixes []string) ([]string, error) {
	seen := make(map[string]bool)
	var links []string

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return links, nil
			}
			return nil, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			if t.DataAtom != atom.A {
				continue
			}
			for _, a := range t.Attr {
				if a.Key != "href" {
					continue
				}
				ref, err := url.Parse(a.Val)
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref)
				if _, ok := common.HasSuffixAny(abs.Path, suffixes...); !ok {
					continue
				}
				if s := abs.String(); !seen[s] {
					seen[s] = true
					links = append(links, s)
				}
			}
		}
	}
}
