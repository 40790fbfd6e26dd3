// Package acquire discovers grid files on the archive listing and mirrors
// them into a local directory.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/sony/gobreaker"
)

// GridSuffix is the suffix of a local, ready to read grid file.
const GridSuffix = ".nc"

const gzipSuffix = ".gz"

// TransferError reports a single file that could not be downloaded. The file
// is skipped and the remaining files are still fetched.
type TransferError struct {
	URL string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Result summarises one acquisition pass.
type Result struct {
	Listed     int
	Downloaded []string
	Skipped    []string
	Failed     []*TransferError
}

// Fetcher mirrors the grid files of one archive listing into a directory.
type Fetcher struct {
	listingURL string
	dir        string
	userAgent  string
	suffixes   []string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

// Config describes where to fetch from and where to store.
type Config struct {
	ListingURL string
	Dir        string
	UserAgent  string
	Suffixes   []string
	Backoff    BackoffConfig
}

// NewFetcher creates a Fetcher using client for every request. A zero Backoff
// selects DefaultBackoff.
func NewFetcher(client *http.Client, cfg Config) *Fetcher {
	backoff := cfg.Backoff
	if backoff == (BackoffConfig{}) {
		backoff = DefaultBackoff
	}
	suffixes := cfg.Suffixes
	if len(suffixes) == 0 {
		suffixes = []string{GridSuffix, GridSuffix + gzipSuffix}
	}

	return &Fetcher{
		listingURL: cfg.ListingURL,
		dir:        cfg.Dir,
		userAgent:  cfg.UserAgent,
		suffixes:   suffixes,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit: newCircuitBreaker("archive"),
	}
}

// Dir returns the local directory files are stored in.
func (f *Fetcher) Dir() string {
	return f.dir
}

// Acquire lists the archive and downloads every file not yet present. Only a
// failure to list the archive or to prepare the directory is returned as an
// error; individual transfer failures are reported in the Result.
func (f *Fetcher) Acquire(ctx context.Context) (Result, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create download dir: %w", err)
	}

	links, err := f.List(ctx)
	if err != nil {
		return Result{}, err
	}
	log.Printf("INFO: acquire: found %d grid files at %s", len(links), f.listingURL)

	res := f.Download(ctx, links)
	res.Listed = len(links)
	log.Printf("INFO: acquire: %d downloaded, %d already present, %d failed",
		len(res.Downloaded), len(res.Skipped), len(res.Failed))
	return res, nil
}

// Download fetches each link into the directory unless its local file already
// exists. Links ending in .gz are decompressed while streaming.
func (f *Fetcher) Download(ctx context.Context, links []string) Result {
	var res Result
	for _, link := range links {
		if ctx.Err() != nil {
			res.Failed = append(res.Failed, &TransferError{URL: link, Err: ctx.Err()})
			continue
		}

		name, err := localName(link)
		if err != nil {
			res.Failed = append(res.Failed, &TransferError{URL: link, Err: err})
			continue
		}
		dst := filepath.Join(f.dir, name)

		if _, err := os.Stat(dst); err == nil {
			log.Printf("DEBUG: acquire: %s already present, skipping", name)
			res.Skipped = append(res.Skipped, dst)
			continue
		}

		log.Printf("INFO: acquire: downloading %s", name)
		if err := f.fetchFile(ctx, link, dst); err != nil {
			terr := &TransferError{URL: link, Err: err}
			log.Printf("ERROR: acquire: %v", terr)
			res.Failed = append(res.Failed, terr)
			continue
		}
		res.Downloaded = append(res.Downloaded, dst)
	}
	return res
}

func (f *Fetcher) newRequest(u string) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	return req, nil
}

// fetchFile streams link into a temp file next to dst and renames it onto dst
// once the transfer completed.
func (f *Fetcher) fetchFile(ctx context.Context, link, dst string) error {
	resp, err := doRequestWithResilience(ctx, f.httpCfg, f.circuit, func() (*http.Request, error) {
		return f.newRequest(link)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if strings.HasSuffix(link, gzipSuffix) {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		body = zr
	}

	tmp, err := os.CreateTemp(f.dir, "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	done := false
	defer func() {
		if !done {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return err
	}
	done = true
	return nil
}

// localName maps a remote link to the file name stored locally.
func localName(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", errors.New("link has no file name")
	}
	return strings.TrimSuffix(name, gzipSuffix), nil
}

// LocalFiles returns the grid files in dir, sorted lexicographically by name.
// Downstream aggregation relies on this order being chronological, which the
// archive's year-stamped file names guarantee.
func LocalFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, GridSuffix) {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	for i, name := range files {
		files[i] = filepath.Join(dir, name)
	}
	return files, nil
}
