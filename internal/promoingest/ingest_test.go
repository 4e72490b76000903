package promoingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/denim-store/internal/domain/promo"
)

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Capacity = 1000
	cfg.ProgressEvery = 0
	return cfg
}

func TestScanner_Scan(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "codes1.gz", "DENIMDAY", "ONLYONE1", "SHORT", "TOOLONGCODE1", "SHARED13"),
		writeGz(t, dir, "codes2.gz", "DENIMDAY", "RAWHEM25", "ONLYTWO2"),
		writeGz(t, dir, "codes3.gz", "RAWHEM25", "SHARED13", "SHORT", "TOOLONGCODE1"),
	}

	codes, err := NewScanner(testConfig(), nil).Scan(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, []string{"DENIMDAY", "RAWHEM25", "SHARED13"}, codes)
}

func TestScanner_MinFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "a.gz", "ABCDEFGH", "SHARED01"),
		writeGz(t, dir, "b.gz", "SHARED01", "BCDEFGHI"),
		writeGz(t, dir, "c.gz", "SHARED01", "ABCDEFGH"),
	}

	tests := []struct {
		minFiles int
		want     []string
	}{
		{minFiles: 1, want: []string{"ABCDEFGH", "BCDEFGHI", "SHARED01"}},
		{minFiles: 2, want: []string{"ABCDEFGH", "SHARED01"}},
		{minFiles: 3, want: []string{"SHARED01"}},
	}
	for _, tt := range tests {
		cfg := testConfig()
		cfg.MinFiles = tt.minFiles

		codes, err := NewScanner(cfg, nil).Scan(context.Background(), files)
		require.NoError(t, err)
		assert.Equal(t, tt.want, codes, "minFiles=%d", tt.minFiles)
	}
}

func TestScanner_MissingFile(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "a.gz", "ABCDEFGH"),
		filepath.Join(dir, "missing.gz"),
	}

	_, err := NewScanner(testConfig(), nil).Scan(context.Background(), files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.gz")
}

func TestScanner_NotGzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.gz")
	require.NoError(t, os.WriteFile(plain, []byte("ABCDEFGH\n"), 0o600))

	_, err := NewScanner(testConfig(), nil).Scan(context.Background(), []string{plain})
	assert.Error(t, err)
}

func TestScanner_Cancelled(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "a.gz", "ABCDEFGH"),
		writeGz(t, dir, "b.gz", "ABCDEFGH"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(testConfig(), nil).Scan(ctx, files)
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingWriter struct {
	rules []promo.Rule
	err   error
}

func (w *recordingWriter) Upsert(_ context.Context, rule promo.Rule) error {
	if w.err != nil {
		return w.err
	}
	w.rules = append(w.rules, rule)
	return nil
}

func TestRuleFor(t *testing.T) {
	known := RuleFor("rawhem25")
	assert.Equal(t, "RAWHEM25", known.Code)
	assert.Equal(t, promo.DiscountFixed, known.DiscountType)
	assert.True(t, decimal.NewFromInt(25).Equal(known.Value))

	other := RuleFor("SHARED13")
	assert.Equal(t, "SHARED13", other.Code)
	assert.Equal(t, DefaultRule.DiscountType, other.DiscountType)
	assert.Equal(t, DefaultRule.Description, other.Description)

	// The package-level rule maps must not be mutated.
	assert.Empty(t, KnownRules["RAWHEM25"].Code)
	assert.Empty(t, DefaultRule.Code)
}

func TestWrite(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, Write(context.Background(), w, []string{"DENIMDAY", "SHARED13"}, nil))

	require.Len(t, w.rules, 2)
	assert.Equal(t, "DENIMDAY", w.rules[0].Code)
	assert.Equal(t, promo.DiscountPercentage, w.rules[0].DiscountType)
	assert.Equal(t, "SHARED13", w.rules[1].Code)
}

func TestWrite_Error(t *testing.T) {
	w := &recordingWriter{err: assert.AnError}
	err := Write(context.Background(), w, []string{"DENIMDAY"}, nil)
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "DENIMDAY")
}
