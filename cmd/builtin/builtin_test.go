package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mwantia/mediameta"
	"github.com/mwantia/mediameta/cmd"
	"github.com/mwantia/mediameta/data"
)

type fakeAPI struct {
	browsed  string
	request  *mediameta.BrowseRequest
	metadata map[string]data.Record
	metaErr  error
	written  data.Record
}

func (f *fakeAPI) ID() string     { return "localtagfs" }
func (f *fakeAPI) Keys() []string { return []string{"title", "artist"} }

func (f *fakeAPI) Browse(ctx context.Context, objectID string, req *mediameta.BrowseRequest) ([]mediameta.Entry, error) {
	f.browsed = objectID
	f.request = req
	return []mediameta.Entry{
		{ObjectID: objectID + "music", Metadata: data.Record{"title": data.StringValue("Music")}},
	}, nil
}

func (f *fakeAPI) GetMetadata(ctx context.Context, objectIDs []string, keys []string) (map[string]data.Record, error) {
	return f.metadata, f.metaErr
}

func (f *fakeAPI) SetMetadata(ctx context.Context, objectID string, values data.Record) ([]string, error) {
	f.written = values
	if _, ok := values["title"]; ok {
		return []string{"title"}, data.ErrUnsupportedMetadataKey
	}
	return nil, nil
}

func setupManager(t *testing.T, api cmd.API, extra ...cmd.Command) *cmd.Manager {
	t.Helper()
	m := cmd.NewManager(api)
	if err := Register(m, extra...); err != nil {
		t.Fatalf("Failed to register builtins: %v", err)
	}
	return m
}

func TestKeysCommand(t *testing.T) {
	m := setupManager(t, &fakeAPI{})

	var out bytes.Buffer
	if _, err := m.Execute(t.Context(), &out, "keys"); err != nil {
		t.Fatalf("Failed to run keys: %v", err)
	}
	if out.String() != "title\nartist\n" {
		t.Errorf("Expected key lines, got %q", out.String())
	}

	out.Reset()
	if _, err := m.Execute(t.Context(), &out, "keys", "-j"); err != nil {
		t.Fatalf("Failed to run keys -j: %v", err)
	}
	var keys []string
	if err := json.Unmarshal(out.Bytes(), &keys); err != nil || len(keys) != 2 {
		t.Errorf("Expected JSON key list, got %q", out.String())
	}
}

func TestBrowseCommand(t *testing.T) {
	api := &fakeAPI{}
	m := setupManager(t, api)

	var out bytes.Buffer
	code, err := m.Execute(t.Context(), &out, "browse", "-k", "title,childcount-1", "--sort=-duration", "-o", "2", "-c", "5")
	if err != nil || code != 0 {
		t.Fatalf("Failed to browse: %d %v", code, err)
	}

	if api.browsed != "localtagfs::" {
		t.Errorf("Expected root object id, got %q", api.browsed)
	}
	if len(api.request.Keys) != 2 || api.request.Sort[0] != "-duration" {
		t.Errorf("Unexpected request %+v", api.request)
	}
	if api.request.Offset != 2 || api.request.Count != 5 {
		t.Errorf("Expected offset 2 count 5, got %d %d", api.request.Offset, api.request.Count)
	}
	if !strings.Contains(out.String(), "localtagfs::music\n  title: Music\n") {
		t.Errorf("Unexpected output %q", out.String())
	}

	t.Run("filter", func(tst *testing.T) {
		if _, err := m.Execute(tst.Context(), &out, "browse", "-f", "(artist=Queen)", "localtagfs::music/songs"); err != nil {
			tst.Fatalf("Failed to browse with filter: %v", err)
		}
		if api.request.Filter == nil || api.browsed != "localtagfs::music/songs" {
			tst.Errorf("Expected filter and object id, got %+v %q", api.request.Filter, api.browsed)
		}
	})

	t.Run("errors", func(tst *testing.T) {
		if code, err := m.Execute(tst.Context(), &out, "browse", "-f", "(artist"); err == nil || code != 2 {
			tst.Errorf("Expected filter error, got %d %v", code, err)
		}
		if code, err := m.Execute(tst.Context(), &out, "browse", "a", "b"); err == nil || code != 2 {
			tst.Errorf("Expected argument error, got %d %v", code, err)
		}
		if code, err := m.Execute(tst.Context(), &out, "browse", "-c", "-1"); err == nil || code != 2 {
			tst.Errorf("Expected count error, got %d %v", code, err)
		}
	})
}

func TestMetadataCommand(t *testing.T) {
	api := &fakeAPI{
		metadata: map[string]data.Record{
			"localtagfs::music": {"childcount-1": data.IntValue(5)},
			"localtagfs::bogus": nil,
		},
		metaErr: data.ErrInvalidObjectID,
	}
	m := setupManager(t, api)

	var out bytes.Buffer
	if _, err := m.Execute(t.Context(), &out, "metadata", "localtagfs::music"); err == nil {
		t.Error("Expected error without required keys flag")
	}

	out.Reset()
	code, err := m.Execute(t.Context(), &out, "metadata", "-k", "childcount-1", "localtagfs::music", "localtagfs::bogus")
	if !errors.Is(err, data.ErrInvalidObjectID) || code != 1 {
		t.Errorf("Expected invalid object id error, got %d %v", code, err)
	}
	want := "localtagfs::music\n  childcount-1: 5\nlocaltagfs::bogus\n  (not found)\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestSetCommand(t *testing.T) {
	api := &fakeAPI{}
	m := setupManager(t, api)

	var out bytes.Buffer
	code, err := m.Execute(t.Context(), &out, "set", "localtagfs::music/songs/x", "play-count=3", "last-played=1700000000")
	if err != nil || code != 0 {
		t.Fatalf("Failed to set: %d %v", code, err)
	}
	if v, _ := api.written.Get("play-count"); !v.Equal(data.LongValue(3)) {
		t.Errorf("Expected Long play-count, got %#v", v)
	}

	out.Reset()
	code, err = m.Execute(t.Context(), &out, "set", "localtagfs::music/songs/x", "title=New")
	if !errors.Is(err, data.ErrUnsupportedMetadataKey) || code != 1 {
		t.Errorf("Expected unsupported key error, got %d %v", code, err)
	}
	if out.String() != "failed: title\n" {
		t.Errorf("Expected failed key output, got %q", out.String())
	}

	for _, raw := range [][]string{{"set", "id"}, {"set", "id", "novalue"}, {"set", "id", "=x"}} {
		if code, err := m.Execute(t.Context(), &out, raw...); err == nil || code != 2 {
			t.Errorf("Expected usage error for %v, got %d %v", raw, code, err)
		}
	}
}

type countingScanner struct {
	calls   atomic.Int32
	watched atomic.Bool
	err     error
}

func (c *countingScanner) Scan(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

func (c *countingScanner) Watch(ctx context.Context, debounce time.Duration) error {
	c.watched.Store(true)
	<-ctx.Done()
	return nil
}

type blockingServer struct{}

func (blockingServer) ListenAndServe(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestScanCommand(t *testing.T) {
	scanner := &countingScanner{}
	m := setupManager(t, &fakeAPI{}, &ScanCommand{Scanner: scanner})

	var out bytes.Buffer
	if code, err := m.Execute(t.Context(), &out, "scan"); err != nil || code != 0 {
		t.Fatalf("Failed to scan: %d %v", code, err)
	}
	if scanner.calls.Load() != 1 {
		t.Errorf("Expected one scan, got %d", scanner.calls.Load())
	}

	scanner.err = errors.New("broken file")
	if code, err := m.Execute(t.Context(), &out, "scan"); err == nil || code != 1 {
		t.Errorf("Expected scan error, got %d %v", code, err)
	}
}

func TestServeCommand(t *testing.T) {
	scanner := &countingScanner{}
	serve := &ServeCommand{Server: blockingServer{}, Scanner: scanner, Interval: 10 * time.Millisecond}
	m := setupManager(t, &fakeAPI{}, serve)

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	if code, err := m.Execute(ctx, &out, "serve"); err != nil || code != 0 {
		t.Fatalf("Failed to serve: %d %v", code, err)
	}
	if scanner.calls.Load() < 2 {
		t.Errorf("Expected repeated scans, got %d", scanner.calls.Load())
	}
	if scanner.watched.Load() {
		t.Error("Expected no watcher without Watch")
	}

	t.Run("watch", func(tst *testing.T) {
		serve.Watch = true
		defer func() { serve.Watch = false }()

		ctx, cancel := context.WithTimeout(tst.Context(), 20*time.Millisecond)
		defer cancel()

		if _, err := m.Execute(ctx, &out, "serve"); err != nil {
			tst.Fatalf("Failed to serve: %v", err)
		}
		if !scanner.watched.Load() {
			tst.Error("Expected the watcher to run")
		}
	})

	t.Run("no-scan", func(tst *testing.T) {
		scanner.calls.Store(0)
		ctx, cancel := context.WithTimeout(tst.Context(), 20*time.Millisecond)
		defer cancel()

		if _, err := m.Execute(ctx, &out, "serve", "--no-scan"); err != nil {
			tst.Fatalf("Failed to serve: %v", err)
		}
		if scanner.calls.Load() != 0 {
			tst.Errorf("Expected no scans, got %d", scanner.calls.Load())
		}
	})
}
