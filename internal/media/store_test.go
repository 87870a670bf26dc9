package media

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveOpenDelete(t *testing.T) {
	s := testStore(t)

	if err := s.Save("memo.m4a", []byte("audio-bytes")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := s.Open("memo.m4a")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("content = %q", data)
	}

	if err := s.Delete("memo.m4a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Open("memo.m4a"); err == nil {
		t.Error("Open after delete should fail")
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	s := testStore(t)

	if err := s.Save("pic.png", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("pic.png", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	data, _ := s.Open("pic.png")
	if string(data) != "v2" {
		t.Errorf("content = %q, want v2", data)
	}
}

func TestTraversalRejected(t *testing.T) {
	s := testStore(t)

	for _, name := range []string{"../escape.txt", "/etc/passwd", "a/b.png", "."} {
		if err := s.Save(name, []byte("bad")); err == nil {
			t.Errorf("Save(%q) should fail", name)
		}
		if _, err := s.Open(name); err == nil {
			t.Errorf("Open(%q) should fail", name)
		}
	}
}

func TestListSkipsHiddenAndDirs(t *testing.T) {
	s := testStore(t)

	if err := s.Save("a.png", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Root(), ".hidden"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(s.Root(), "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "a.png" {
		t.Errorf("List = %v, want [a.png]", names)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := testStore(t)
	if err := s.Save("clean.png", []byte("data")); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(s.Root())
	for _, e := range entries {
		if e.Name() != "clean.png" {
			t.Errorf("stray file %q after save", e.Name())
		}
	}
}

func TestWatchReportsAddAndRemove(t *testing.T) {
	s := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	events := make(chan string, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, s, logger, func(kind, name string) {
			events <- kind + ":" + name
		})
	}()

	// Let the watcher register before touching the directory.
	time.Sleep(100 * time.Millisecond)

	if err := s.Save("seen.png", []byte("x")); err != nil {
		t.Fatal(err)
	}

	waitFor := func(want string) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case got := <-events:
				if got == want {
					return
				}
			case <-deadline:
				t.Fatalf("timeout waiting for %q", want)
			}
		}
	}
	waitFor("media.added:seen.png")

	if err := s.Delete("seen.png"); err != nil {
		t.Fatal(err)
	}
	waitFor("media.removed:seen.png")

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
}
