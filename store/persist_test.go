package store

import (
	"bytes"
	"testing"
)

func TestFilePersisterRoundTrip(t *testing.T) {
	p := NewFilePersister(t.TempDir(), 7)

	if _, ok, err := p.Load(); err != nil || ok {
		t.Fatalf("fresh persister should have nothing: ok=%v err=%v", ok, err)
	}

	payload := []byte(`{"version":1,"state":{}}`)
	if err := p.Save(payload); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, ok, err := p.Load()
	if err != nil || !ok {
		t.Fatalf("Load after Save: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("Load returned %q, want %q", data, payload)
	}
}

func TestFallbackPersisterDegrades(t *testing.T) {
	primary := &memPersister{failSave: true}
	secondary := &memPersister{}
	p := NewFallbackPersister(primary, secondary)

	payload := []byte(`{"version":1}`)
	if err := p.Save(payload); err != nil {
		t.Fatalf("Save should succeed via the fallback: %v", err)
	}

	data, ok, err := p.Load()
	if err != nil || !ok {
		t.Fatalf("Load via fallback: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("fallback returned %q, want %q", data, payload)
	}
}

func TestFallbackPersisterMirrorsToSecondary(t *testing.T) {
	primary := &memPersister{}
	secondary := &memPersister{}
	p := NewFallbackPersister(primary, secondary)

	payload := []byte(`{"version":1}`)
	if err := p.Save(payload); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !secondary.ok {
		t.Fatal("a healthy primary should still refresh the local copy")
	}
}
