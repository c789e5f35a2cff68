package main

import (
	"bufio"
	"context"
	"log/slog"
	"math/bits"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

const (
	bloomFPR      = 0.001
	progressEvery = 1_000_000
)

// fileResult holds the client ids of one file that other files may share.
type fileResult struct {
	candidates map[int64]uint
}

// findReturningClients returns, sorted, the client ids that appear in at
// least minFiles of files. Each file is read twice: once to build its bloom
// filter and once to test its ids against the other filters.
func findReturningClients(ctx context.Context, files []string, capacity uint, minFiles int) ([]int64, error) {
	if len(files) > bits.UintSize {
		return nil, errors.Errorf("at most %d files are supported, got %d", bits.UintSize, len(files))
	}
	if minFiles < 1 || minFiles > len(files) {
		return nil, errors.Errorf("min files must be between 1 and %d, got %d", len(files), minFiles)
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files, capacity)
	if err != nil {
		return nil, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: finding returning clients", slog.Int("min_files", minFiles))

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(gctx, i, f, filters, minFiles, results))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[int64]uint)
	for _, r := range results {
		for id, mask := range r.candidates {
			merged[id] |= mask
		}
	}

	// A bit is only set for files that really contain the id, so the
	// popcount is exact even though the filters are not.
	var ids []int64
	for id, mask := range merged {
		if bits.OnesCount(mask) >= minFiles {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func buildBloomFilters(ctx context.Context, files []string, capacity uint) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(capacity, bloomFPR)
			var count uint64

			if err := streamClientIDs(ctx, path, func(id int64) {
				filter.Add(idKey(id))
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("ids", count))
				}
			}); err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}

			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("total_ids", count))

			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	minFiles int,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[int64]uint)
		fileBit := uint(1) << uint(idx)

		if err := streamClientIDs(ctx, path, func(id int64) {
			key := idKey(id)
			seen := 1
			for j, f := range filters {
				if j != idx && f.Test(key) {
					seen++
				}
			}
			if seen >= minFiles {
				candidates[id] |= fileBit
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete", slog.Int("file", idx+1), slog.Int("candidates", len(candidates)))

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// streamClientIDs reads a gzip-compressed export and calls fn for the client
// id in the first column of each line. Blank lines, a header and rows
// without a numeric id are skipped.
func streamClientIDs(ctx context.Context, path string, fn func(id int64)) error {
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
		if id, ok := parseClientID(scanner.Text()); ok {
			fn(id)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func parseClientID(line string) (int64, bool) {
	field, _, _ := strings.Cut(line, ",")
	id, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func idKey(id int64) []byte {
	return strconv.AppendInt(nil, id, 10)
}
