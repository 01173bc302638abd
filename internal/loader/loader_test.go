package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/encoding/unicode"

	"github.com/miradorstack/poolscope/internal/models"
)

const header = "Tag,PagedAllocs,PagedFrees,PagedDiff,PagedUsedBytes,NonPagedAllocs,NonPagedFrees,NonPagedDiff,NonPagedUsedBytes,TotalUsedBytes,DateTime,DateTimeUTC\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDirSortsByTimestamp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_pool.csv", header+
		"Ntfs,10,4,6,4096,0,0,0,0,4096,2021-01-01T10:05:00,2021-01-01T04:35:00\n")
	writeFile(t, dir, "a_pool.csv", header+
		"Ntfs,8,4,4,2048,0,0,0,0,2048,2021-01-01T10:10:00,2021-01-01T04:40:00\n"+
		"Proc,1,0,1,0,3,1,2,512,512,2021-01-01T10:10:00,2021-01-01T04:40:00\n")
	writeFile(t, dir, "notes.txt", "ignored")

	snaps, err := NewLoader(nil, "").LoadDir(dir, models.TimestampUTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if !strings.HasSuffix(snaps[0].Source, "b_pool.csv") {
		t.Fatalf("expected earliest snapshot first, got %s", snaps[0].Source)
	}
	want := time.Date(2021, 1, 1, 4, 35, 0, 0, time.UTC)
	if !snaps[0].Timestamp.Equal(want) {
		t.Fatalf("expected %v, got %v", want, snaps[0].Timestamp)
	}

	proc := snaps[1].Rows["Proc"]
	wantProc := models.TagRecord{
		PagedAllocs:       1,
		PagedDiff:         1,
		NonPagedAllocs:    3,
		NonPagedFrees:     1,
		NonPagedDiff:      2,
		NonPagedUsedBytes: 512,
		TotalUsedBytes:    512,
	}
	if diff := cmp.Diff(wantProc, proc); diff != "" {
		t.Fatalf("unexpected Proc record (-want +got):\n%s", diff)
	}
}

func TestLoadDirEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.csv", header)

	_, err := NewLoader(nil, "").LoadDir(dir, models.TimestampLocal)
	if !errors.Is(err, models.ErrEmptyDirectory) {
		t.Fatalf("expected ErrEmptyDirectory, got %v", err)
	}
}

func TestLoadDirMissingDirectory(t *testing.T) {
	_, err := NewLoader(nil, "").LoadDir(filepath.Join(t.TempDir(), "absent"), models.TimestampLocal)
	if err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestParseMalformed(t *testing.T) {
	cases := map[string]string{
		"no header":      "",
		"missing column": "Tag,PagedDiff,DateTime\nNtfs,1,2021-01-01T00:00:00\n",
		"empty tag":      header + " ,1,1,0,0,0,0,0,0,0,2021-01-01T00:00:00,2021-01-01T00:00:00\n",
		"bad number":     header + "Ntfs,x,1,0,0,0,0,0,0,0,2021-01-01T00:00:00,2021-01-01T00:00:00\n",
		"bad timestamp":  header + "Ntfs,1,1,0,0,0,0,0,0,0,yesterday,2021-01-01T00:00:00\n",
		"short row":      header + "Ntfs,1,1\n",
		"no rows":        header,
	}

	l := NewLoader(nil, "")
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := l.Parse(strings.NewReader(content), name, models.TimestampLocal)
			if !errors.Is(err, models.ErrMalformedSnapshot) {
				t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
			}
		})
	}
}

func TestParseDuplicateTagLastWins(t *testing.T) {
	content := header +
		"Ntfs,1,0,1,100,0,0,0,0,100,2021-01-01T00:00:00,2021-01-01T00:00:00\n" +
		"Ntfs,2,0,2,200,0,0,0,0,200,2021-01-01T00:00:00,2021-01-01T00:00:00\n"

	snap, err := NewLoader(nil, "").Parse(strings.NewReader(content), "dup", models.TimestampLocal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := snap.Rows["Ntfs"].TotalUsedBytes; got != 200 {
		t.Fatalf("expected last row to win, got %d", got)
	}
}

func TestParseDropsReservedTotalRow(t *testing.T) {
	content := header +
		"TOTAL,1,0,1,100,0,0,0,0,100,2021-01-01T00:00:00,2021-01-01T00:00:00\n" +
		"Ntfs,2,0,2,200,0,0,0,0,200,2021-01-01T00:00:00,2021-01-01T00:00:00\n"

	snap, err := NewLoader(nil, "").Parse(strings.NewReader(content), "total", models.TimestampLocal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := snap.Rows[models.TotalTag]; ok {
		t.Fatalf("expected reserved tag row to be dropped")
	}
	if len(snap.Rows) != 1 {
		t.Fatalf("expected one row, got %d", len(snap.Rows))
	}
}

func TestParseUTF16WithBOM(t *testing.T) {
	content := header + "Ntfs,1,0,1,100,0,0,0,0,100,2021-01-01T00:00:00,2021-01-01T00:00:00\n"
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(content)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	snap, err := NewLoader(nil, "").Parse(strings.NewReader(encoded), "utf16", models.TimestampUTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := snap.Rows["Ntfs"].TotalUsedBytes; got != 100 {
		t.Fatalf("expected 100 bytes, got %d", got)
	}
}
