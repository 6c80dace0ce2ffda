package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/itqwq/stockviz/tools/log"
)

// ErrDownload is returned when a dataset cannot be fetched.
var ErrDownload = errors.New("download failed")

// File is a remote dataset saved as Name inside the target directory.
type File struct {
	URL  string
	Name string
}

// Downloader fetches datasets concurrently. Either every file is fetched or none is kept.
type Downloader struct {
	client      *http.Client
	concurrency int
	progress    bool
}

// DownloaderOption customizes a Downloader.
type DownloaderOption func(*Downloader)

// WithConcurrency bounds the number of simultaneous requests.
func WithConcurrency(n int) DownloaderOption {
	return func(d *Downloader) {
		d.concurrency = n
	}
}

// WithProgress toggles the terminal progress bar.
func WithProgress(enabled bool) DownloaderOption {
	return func(d *Downloader) {
		d.progress = enabled
	}
}

// NewDownloader fetches with client, or a client with a one minute timeout when nil.
func NewDownloader(client *http.Client, options ...DownloaderOption) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	downloader := &Downloader{
		client:      client,
		concurrency: 4,
		progress:    true,
	}
	for _, option := range options {
		option(downloader)
	}
	return downloader
}

func (d *Downloader) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrDownload, url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: status %d", ErrDownload, url, resp.StatusCode)
	}
	return resp.Body, nil
}

func (d *Downloader) bar(total int, description string) *progressbar.ProgressBar {
	if !d.progress {
		return progressbar.DefaultSilent(int64(total), description)
	}
	return progressbar.Default(int64(total), description)
}

// Fetch saves every file into dir. Files are written to temporary names and renamed only when
// all of them succeeded, so a failed fetch leaves no partial dataset behind.
func (d *Downloader) Fetch(ctx context.Context, dir string, files ...File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	temps := make([]string, len(files))
	cleanup := func() {
		for _, temp := range temps {
			if temp != "" {
				_ = os.Remove(temp)
			}
		}
	}

	progressBar := d.bar(len(files), "downloading")
	defer progressBar.Close()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.concurrency)
	for i, file := range files {
		group.Go(func() error {
			body, err := d.get(groupCtx, file.URL)
			if err != nil {
				return err
			}
			defer body.Close()

			temp, err := os.CreateTemp(dir, "."+filepath.Base(file.Name)+".*")
			if err != nil {
				return err
			}
			temps[i] = temp.Name()

			_, err = io.Copy(temp, body)
			if closeErr := temp.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return fmt.Errorf("%w: %s: %s", ErrDownload, file.URL, err)
			}

			_ = progressBar.Add(1)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		cleanup()
		return err
	}

	if err := commit(dir, files, temps); err != nil {
		cleanup()
		return err
	}
	for _, file := range files {
		log.WithField("url", file.URL).Infof("saved %s", filepath.Join(dir, file.Name))
	}
	return nil
}

type replacement struct {
	target string
	backup string
}

// commit moves the temporary files onto their targets. Existing targets are set aside first,
// and when one move fails every earlier target is restored.
func commit(dir string, files []File, temps []string) error {
	done := make([]replacement, 0, len(files))
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			_ = os.Remove(done[i].target)
			if done[i].backup != "" {
				_ = os.Rename(done[i].backup, done[i].target)
			}
		}
	}

	for i, file := range files {
		swap := replacement{target: filepath.Join(dir, file.Name)}
		if _, err := os.Lstat(swap.target); err == nil {
			backup, err := os.CreateTemp(dir, "."+filepath.Base(file.Name)+".backup.*")
			if err != nil {
				rollback()
				return err
			}
			backup.Close()
			swap.backup = backup.Name()
			if err := os.Rename(swap.target, swap.backup); err != nil {
				_ = os.Remove(swap.backup)
				rollback()
				return fmt.Errorf("replace %s: %w", swap.target, err)
			}
		}

		if err := os.Rename(temps[i], swap.target); err != nil {
			if swap.backup != "" {
				_ = os.Rename(swap.backup, swap.target)
			}
			rollback()
			return fmt.Errorf("save %s: %w", swap.target, err)
		}
		temps[i] = ""
		done = append(done, swap)
	}

	for _, swap := range done {
		if swap.backup != "" {
			_ = os.Remove(swap.backup)
		}
	}
	return nil
}

// Load returns the bodies of urls in the same order. When one request fails no body is returned.
func (d *Downloader) Load(ctx context.Context, urls ...string) ([][]byte, error) {
	bodies := make([][]byte, len(urls))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.concurrency)
	for i, url := range urls {
		group.Go(func() error {
			body, err := d.get(groupCtx, url)
			if err != nil {
				return err
			}
			defer body.Close()

			data, err := io.ReadAll(body)
			if err != nil {
				return fmt.Errorf("%w: %s: %s", ErrDownload, url, err)
			}
			bodies[i] = data
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}
