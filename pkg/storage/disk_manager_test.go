package storage

import (
	"path/filepath"
	"testing"
)

func TestFileDiskManagerWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	dm, err := NewFileDiskManager(filepath.Join(dir, "data.db"))
	if err != nil {
		t.Fatalf("NewFileDiskManager: %v", err)
	}
	defer dm.Close()

	var src [PageSize]byte
	src[0] = 0xAB
	src[PageSize-1] = 0xCD
	if err := dm.WritePage(5, &src); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	var dst [PageSize]byte
	if err := dm.ReadPage(5, &dst); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if dst != src {
		t.Fatal("read bytes did not match written bytes")
	}
}

func TestFileDiskManagerReadUnwrittenPageIsZero(t *testing.T) {
	dir := t.TempDir()
	dm, err := NewFileDiskManager(filepath.Join(dir, "data.db"))
	if err != nil {
		t.Fatalf("NewFileDiskManager: %v", err)
	}
	defer dm.Close()

	var dst [PageSize]byte
	dst[0] = 0x11 // poison to make sure ReadPage actually zeroes it
	if err := dm.ReadPage(42, &dst); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	var zero [PageSize]byte
	if dst != zero {
		t.Fatal("expected unwritten page to read as all zero")
	}
}

func TestFileDiskManagerRejectsInvalidPageID(t *testing.T) {
	dir := t.TempDir()
	dm, err := NewFileDiskManager(filepath.Join(dir, "data.db"))
	if err != nil {
		t.Fatalf("NewFileDiskManager: %v", err)
	}
	defer dm.Close()

	var buf [PageSize]byte
	if err := dm.ReadPage(InvalidPageID, &buf); err == nil {
		t.Fatal("expected error reading InvalidPageID")
	}
	if err := dm.WritePage(InvalidPageID, &buf); err == nil {
		t.Fatal("expected error writing InvalidPageID")
	}
	if err := dm.DeallocatePage(InvalidPageID); err == nil {
		t.Fatal("expected error deallocating InvalidPageID")
	}
}

func TestFileDiskManagerStats(t *testing.T) {
	dir := t.TempDir()
	dm, err := NewFileDiskManager(filepath.Join(dir, "data.db"))
	if err != nil {
		t.Fatalf("NewFileDiskManager: %v", err)
	}
	defer dm.Close()

	var buf [PageSize]byte
	dm.WritePage(0, &buf)
	dm.WritePage(1, &buf)
	dm.ReadPage(0, &buf)

	reads, writes := dm.Stats()
	if reads != 1 {
		t.Errorf("expected 1 read, got %d", reads)
	}
	if writes != 2 {
		t.Errorf("expected 2 writes, got %d", writes)
	}
}
