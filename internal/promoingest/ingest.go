// Package promoingest extracts valid promo codes from gzip compressed code
// dumps. A code is valid when its length is within bounds and it appears in
// at least two dumps.
//
// Dumps are streamed twice. The first pass builds one bloom filter per file;
// the second pass marks, per file, the codes that another file's filter
// reports. Merging the per-file marks and keeping codes seen in two or more
// files removes single-file bloom false positives.
package promoingest

import (
	"bufio"
	"context"
	"log/slog"
	"math/bits"
	"os"
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

// Config tunes the scan.
type Config struct {
	// MinLen and MaxLen bound accepted code lengths, inclusive.
	MinLen, MaxLen int
	// MinFiles is the number of dumps a code must appear in.
	MinFiles int
	// Capacity and FalsePositiveRate size each bloom filter.
	Capacity          uint
	FalsePositiveRate float64
	// ProgressEvery logs progress after this many codes per file.
	ProgressEvery uint64
}

// DefaultConfig returns settings sized for dumps of about a hundred
// million codes.
func DefaultConfig() Config {
	return Config{
		MinLen:            8,
		MaxLen:            10,
		MinFiles:          2,
		Capacity:          120_000_000,
		FalsePositiveRate: 0.001,
		ProgressEvery:     10_000_000,
	}
}

// Scanner finds codes shared by several dumps.
type Scanner struct {
	cfg Config
	lg  *slog.Logger
}

// NewScanner returns a Scanner. A nil logger discards output.
func NewScanner(cfg Config, lg *slog.Logger) *Scanner {
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}
	if cfg.MinFiles < 1 {
		cfg.MinFiles = 1
	}
	return &Scanner{cfg: cfg, lg: lg}
}

func (s *Scanner) accept(code string) bool {
	return len(code) >= s.cfg.MinLen && len(code) <= s.cfg.MaxLen
}

// Scan streams files and returns the sorted valid codes.
func (s *Scanner) Scan(ctx context.Context, files []string) ([]string, error) {
	if len(files) > bits.UintSize {
		return nil, errors.Errorf("too many files: %d", len(files))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return nil, errors.Wrapf(err, "check file %s", f)
		}
	}

	s.lg.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := s.buildFilters(ctx, files)
	if err != nil {
		return nil, errors.Wrap(err, "build bloom filters")
	}

	s.lg.Info("pass 2: finding candidate codes")
	marks, err := s.markCandidates(ctx, files, filters)
	if err != nil {
		return nil, errors.Wrap(err, "find candidate codes")
	}

	merged := make(map[string]uint)
	for _, m := range marks {
		for code, mask := range m {
			merged[code] |= mask
		}
	}

	var valid []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= s.cfg.MinFiles {
			valid = append(valid, code)
		}
	}
	slices.Sort(valid)

	s.lg.Info("valid codes found", slog.Int("count", len(valid)))
	return valid, nil
}

func (s *Scanner) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(s.cfg.Capacity, s.cfg.FalsePositiveRate)
			var count uint64

			err := streamGzFile(ctx, path, func(code string) {
				if !s.accept(code) {
					return
				}
				filter.AddString(code)
				count++
				s.progress("pass 1 progress", i, count)
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}

			s.lg.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("total_codes", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func (s *Scanner) markCandidates(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]map[string]uint, error) {
	marks := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i)
			var count uint64

			err := streamGzFile(ctx, path, func(code string) {
				if !s.accept(code) {
					return
				}
				count++
				s.progress("pass 2 progress", i, count)

				if s.cfg.MinFiles == 1 {
					candidates[code] |= fileBit
					return
				}
				for j, f := range filters {
					if j != i && f.TestString(code) {
						candidates[code] |= fileBit
						return
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan file %d for candidates", i+1)
			}

			s.lg.Info("pass 2 complete",
				slog.Int("file", i+1),
				slog.Uint64("total_codes", count),
				slog.Int("candidates", len(candidates)),
			)
			marks[i] = candidates
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return marks, nil
}

func (s *Scanner) progress(msg string, idx int, count uint64) {
	if s.cfg.ProgressEvery > 0 && count%s.cfg.ProgressEvery == 0 {
		s.lg.Info(msg, slog.Int("file", idx+1), slog.Uint64("codes", count))
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
