package store

import (
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return Open(filepath.Join(dir, "fs.json"))
}

func TestAllocAndWriteBlock(t *testing.T) {
	s := newTestStore(t)
	id, err := s.AllocBlock()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteBlock(id, "abc"); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadBlock(id)
	if err != nil {
		t.Fatal(err)
	}
	if got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteBlockTruncatesToBlockSize(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.AllocBlock()
	big := strings.Repeat("x", BlockSize+100)
	if err := s.WriteBlock(id, big); err != nil {
		t.Fatal(err)
	}
	got, _ := s.ReadBlock(id)
	if len(got) != BlockSize {
		t.Fatalf("len = %d, want %d", len(got), BlockSize)
	}
}

func TestCreateDuplicateIsFSError(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("/a.txt", nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Create("/a.txt", nil); err == nil {
		t.Fatal("expected duplicate-create error")
	}
}

func TestWriteFileSizeInvariant(t *testing.T) {
	s := newTestStore(t)
	content := strings.Repeat("y", BlockSize*2+7)
	if err := s.WriteFile("/big.txt", content); err != nil {
		t.Fatal(err)
	}
	size, err := s.Size("/big.txt")
	if err != nil {
		t.Fatal(err)
	}
	if size != len(content) {
		t.Fatalf("size = %d, want %d", size, len(content))
	}
	got, err := s.ReadFile("/big.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != content {
		t.Fatal("round-tripped content mismatch")
	}
	if s.NextBlockID() <= s.MaxBlockID() {
		t.Fatalf("NextBlockID %d must exceed MaxBlockID %d", s.NextBlockID(), s.MaxBlockID())
	}
}

func TestWriteFileVersioning(t *testing.T) {
	s := newTestStore(t)
	if err := s.WriteFile("/v.txt", "first"); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile("/v.txt", "second"); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile("/v.txt", "third"); err != nil {
		t.Fatal(err)
	}
	n, err := s.VersionCount("/v.txt")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("version count = %d, want 2", n)
	}
}

func TestListDir(t *testing.T) {
	s := newTestStore(t)
	for _, p := range []string{"/a.txt", "/dir/b.txt", "/dir/c.txt", "/dir/sub/d.txt"} {
		if err := s.WriteFile(p, "x"); err != nil {
			t.Fatal(err)
		}
	}
	children, err := s.ListDir("/")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.txt", "dir/"}
	if strings.Join(children, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", children, want)
	}
	children, err = s.ListDir("/dir")
	if err != nil {
		t.Fatal(err)
	}
	want = []string{"b.txt", "c.txt", "sub/"}
	if strings.Join(children, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", children, want)
	}
}

func TestSetRoleAndTran(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("/t.txt", nil); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRole("/t.txt", "asset"); err != nil {
		t.Fatal(err)
	}
	if err := s.Tran("/t.txt"); err != nil {
		t.Fatal(err)
	}
}

func TestPersistenceAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "fs.json")
	s1 := Open(p)
	if err := s1.WriteFile("/x.txt", "hello"); err != nil {
		t.Fatal(err)
	}
	s2 := Open(p)
	got, err := s2.ReadFile("/x.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
}
