// ABOUTME: Shared fixtures for pipeline tests
// ABOUTME: Wires a temp database, disk blob store, fake OCR engine and default templates
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/ocr"
	"github.com/harperreed/canvass/resolve"
	"github.com/harperreed/canvass/storage"
	"github.com/harperreed/canvass/templates"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	canvassText = "Anda memulai obrolan dengan kopi_senja88\nHari ini 10:15\n" +
		"Halo kak, perkenalkan aku Bhanu dari STIQR, aplikasi kasirnya gratis tanpa biaya langganan"
	dayOneText = "kopi_senja88\nObrolan bisnis\nHari ini 10.20\n" +
		"*Day 1* masuk 2026 nanti, biaya operasional F&B makin naik"
)

// fakeEngine returns canned text keyed by filename and counts calls.
type fakeEngine struct {
	mu    sync.Mutex
	texts map[string]string
	calls atomic.Int32
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{texts: map[string]string{}}
}

func (f *fakeEngine) set(filename, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[filename] = text
}

func (f *fakeEngine) ExtractText(_ context.Context, _ []byte, filename string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[filename], nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store    *db.Store
	blobDir  string
	engine   *fakeEngine
	clock    *clock
	uploader *Uploader
	super    *Supervisor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	sqlDB, err := db.OpenDatabase(filepath.Join(dir, "canvass.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	store := db.NewStore(sqlDB)

	blobDir := filepath.Join(dir, "blobs")
	blobs, err := storage.NewDiskStore(blobDir)
	require.NoError(t, err)

	clk := &clock{now: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)}
	vocab := ocr.DefaultVocabulary()
	matcher := templates.NewMatcher(templates.DefaultTemplateSet())
	engine := newFakeEngine()

	u := NewUploader(Deps{
		Store:    store,
		Blobs:    blobs,
		Engine:   engine,
		Parser:   ocr.NewParser(ocr.NewExtractor(vocab), ocr.NewSegmenter(vocab, matcher), clk.Now),
		Scorer:   matcher,
		Resolver: resolve.New(store, zap.NewNop(), clk.Now),
		Now:      clk.Now,
	}, Options{})

	return &fixture{
		store:    store,
		blobDir:  blobDir,
		engine:   engine,
		clock:    clk,
		uploader: u,
		super:    NewSupervisor(store, nil),
	}
}

// upload submits an image whose OCR text is text. Distinct names give
// distinct content hashes.
func (f *fixture) upload(t *testing.T, staffID int64, stage int, name, text string) (*UploadResult, error) {
	t.Helper()
	f.engine.set(name, text)
	return f.uploader.Upload(context.Background(), UploadRequest{
		StaffID:  staffID,
		Stage:    stage,
		Category: "coffee_shop",
		Channel:  "instagram",
		Filename: name,
		Image:    []byte("image bytes of " + name),
	})
}

func (f *fixture) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.blobDir, "screenshots"))
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, kind, perr.Kind, perr.Message)
	return perr
}
