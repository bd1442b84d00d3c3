package devicecatalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempCatalog(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp catalog: %v", err)
	}
	return path
}

func TestLoadParsesDeviceSet(t *testing.T) {
	path := writeTempCatalog(t, `[
		{"device_id":"d0","name":"camA","kind":"camera","camera":{"width":640,"height":480,"fps":30,"pixel_format":"bgr24"}},
		{"device_id":"m0","name":"micA","kind":"audio","audio":{"channels":1,"sample_rate":48000,"sample_size":16}}
	]`)

	devices, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	path := writeTempCatalog(t, `[
		{"device_id":"d0","name":"camA","kind":"camera","camera":{"width":640,"height":480,"fps":30,"pixel_format":"bgr24"}},
		{"device_id":"d1","name":"camA","kind":"camera","camera":{"width":640,"height":480,"fps":30,"pixel_format":"bgr24"}}
	]`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected duplicate-name error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/devices.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
