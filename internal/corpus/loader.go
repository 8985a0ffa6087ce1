package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	markdownTranscript = "transcript.md"
	pdfTranscript      = "transcript.pdf"
	pdfMetadata        = "metadata.yaml"

	defaultWorkers = 8
)

// Options controls corpus loading.
type Options struct {
	// DefaultChannel fills in episodes without a channel. Empty means DefaultChannel.
	DefaultChannel string
	// Workers bounds concurrent file reads. Zero means 8.
	Workers int
}

// Load discovers <root>/<episode>/transcript.{md,pdf}, parses each file and
// returns the episodes that have at least one segment, ordered by folder
// name. Unreadable or malformed files are logged and skipped. If nothing
// survives, ErrEmptyCorpus is returned.
func Load(ctx context.Context, root string, opts Options) ([]Episode, error) {
	if opts.DefaultChannel == "" {
		opts.DefaultChannel = DefaultChannel
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}

	paths, err := discover(root)
	if err != nil {
		return nil, err
	}

	loaded := make([]*Episode, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ep, err := loadFile(path, opts.DefaultChannel)
			if err != nil {
				slog.Warn("skipping transcript", "path", path, "error", err)
				return nil
			}
			if len(ep.Segments) == 0 {
				slog.Warn("skipping transcript without segments", "path", path)
				return nil
			}
			loaded[i] = &ep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	episodes := make([]Episode, 0, len(loaded))
	for _, ep := range loaded {
		if ep != nil {
			episodes = append(episodes, *ep)
		}
	}
	if len(episodes) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyCorpus, root)
	}

	slog.Debug("corpus loaded", "root", root, "files", len(paths), "episodes", len(episodes))
	return episodes, nil
}

// discover returns one transcript path per episode folder, preferring the
// markdown transcript when both formats are present.
func discover(root string) ([]string, error) {
	root = filepath.Clean(filepath.FromSlash(filepath.ToSlash(root)))

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", root)
	}

	byFolder := make(map[string]string)
	for _, name := range []string{pdfTranscript, markdownTranscript} {
		matches, err := filepath.Glob(filepath.Join(root, "*", name))
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", name, err)
		}
		for _, m := range matches {
			byFolder[folderName(m)] = m
		}
	}

	folders := make([]string, 0, len(byFolder))
	for f := range byFolder {
		folders = append(folders, f)
	}
	sort.Strings(folders)

	paths := make([]string, len(folders))
	for i, f := range folders {
		paths[i] = byFolder[f]
	}
	return paths, nil
}

// folderName is the name of the directory directly containing path.
func folderName(path string) string {
	return filepath.Base(filepath.Dir(path))
}

func loadFile(path, defaultChannel string) (Episode, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return loadPDF(path, defaultChannel)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Episode{}, fmt.Errorf("reading transcript: %w", err)
	}
	meta, body, err := splitFrontMatter(string(data))
	if err != nil {
		return Episode{}, err
	}
	return newEpisode(folderName(path), meta, body, defaultChannel), nil
}
