package storage

import (
	"io"
	"strings"
	"testing"
)

func TestCleanKeyRejectsEscapes(t *testing.T) {
	for _, key := range []string{"", "../outside", "a/../../b", "/etc/passwd"} {
		if _, err := cleanKey(key); err == nil {
			t.Errorf("cleanKey(%q) accepted, want rejection", key)
		}
	}
	if got, err := cleanKey("assignments/m1/s1/x.pdf"); err != nil || got != "assignments/m1/s1/x.pdf" {
		t.Fatalf("cleanKey valid key: %q, %v", got, err)
	}
}

func TestFSStorePutGet(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key, err := s.Put("assignments/m1/s1/a.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	rc, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	buf, _ := io.ReadAll(rc)
	if string(buf) != "hello" {
		t.Fatalf("content = %q", buf)
	}
	if _, err := s.Put("../escape.txt", strings.NewReader("x")); err == nil {
		t.Fatal("path escape accepted")
	}
}
