package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquire(t *testing.T) {
	t.Run("creates lock file", func(t *testing.T) {
		dir := t.TempDir()
		root := filepath.Join(t.TempDir(), ".wasmedge")

		lock, err := Acquire(context.Background(), dir, root, "op-1")
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer lock.Release()

		if _, err := os.Stat(PathFor(dir, root)); err != nil {
			t.Errorf("lock file not created: %v", err)
		}
		if _, err := os.Stat(root); !os.IsNotExist(err) {
			t.Error("acquiring the lock must not create the install root")
		}
	})

	t.Run("prevents concurrent locks", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := Acquire(context.Background(), dir, "/opt/wasmedge", "op-1")
		if err != nil {
			t.Fatalf("first Acquire failed: %v", err)
		}
		defer lock1.Release()

		_, err = Acquire(context.Background(), dir, "/opt/wasmedge", "op-2")
		if !errors.Is(err, ErrLockExists) {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
	})

	t.Run("different roots do not conflict", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := Acquire(context.Background(), dir, "/opt/a", "op-1")
		if err != nil {
			t.Fatal(err)
		}
		defer lock1.Release()

		lock2, err := Acquire(context.Background(), dir, "/opt/b", "op-2")
		if err != nil {
			t.Fatalf("second root should lock independently: %v", err)
		}
		defer lock2.Release()
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := Acquire(ctx, t.TempDir(), "/opt/wasmedge", "op"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("writes lock metadata", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := Acquire(context.Background(), dir, "/opt/wasmedge", "op-42")
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer lock.Release()

		data, err := os.ReadFile(lock.Path())
		if err != nil {
			t.Fatalf("failed to read lock file: %v", err)
		}
		content := string(data)
		for _, want := range []string{"pid=", "timestamp=", "root=/opt/wasmedge", "operation=op-42"} {
			if !strings.Contains(content, want) {
				t.Errorf("lock metadata missing %q:\n%s", want, content)
			}
		}
	})
}

func TestLockRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(context.Background(), dir, "/opt/wasmedge", "op")
	if err != nil {
		t.Fatal(err)
	}
	path := lock.Path()

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lock file should be removed")
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}

	relock, err := Acquire(context.Background(), dir, "/opt/wasmedge", "op")
	if err != nil {
		t.Fatalf("lock should be acquirable after release: %v", err)
	}
	relock.Release()
}

func TestStaleLockHandling(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, "/opt/wasmedge")

	if err := os.WriteFile(path, []byte("pid=1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * StaleLockThreshold)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(context.Background(), dir, "/opt/wasmedge", "op")
	if err != nil {
		t.Fatalf("stale lock should be taken over: %v", err)
	}
	defer lock.Release()
}

func TestPathFor(t *testing.T) {
	a := PathFor("/tmp/locks", "/opt/wasmedge")
	b := PathFor("/tmp/locks", "/opt/wasmedge/")
	if a != b {
		t.Errorf("trailing slash changed lock path: %s vs %s", a, b)
	}
	if filepath.Dir(a) != filepath.Clean("/tmp/locks") {
		t.Errorf("lock not under lock dir: %s", a)
	}
	if name := filepath.Base(a); len(name) != len("0123456789abcdef.lock") {
		t.Errorf("unexpected lock name %q", name)
	}
}
