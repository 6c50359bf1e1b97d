package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, DBFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := New(file)
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestArtifacts(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if _, err := store.GetArtifact("random_forest"); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("Expected ErrArtifactNotFound, got %v", err)
	}

	blob := []byte{0x1f, 0x8b, 0x08, 0x00, 0x01, 0x02}
	if err := store.PutArtifact("random_forest", blob); err != nil {
		t.Fatalf("PutArtifact failed: %v", err)
	}
	if err := store.PutArtifact("logistic_regression", []byte("lr")); err != nil {
		t.Fatalf("PutArtifact failed: %v", err)
	}

	got, err := store.GetArtifact("random_forest")
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	if string(got) != string(blob) {
		t.Errorf("Expected %v, got %v", blob, got)
	}

	// The returned slice must be a private copy.
	got[0] = 0
	again, _ := store.GetArtifact("random_forest")
	if again[0] != 0x1f {
		t.Error("Stored artifact was modified through a returned slice")
	}

	names, err := store.ListArtifacts()
	if err != nil {
		t.Fatalf("ListArtifacts failed: %v", err)
	}
	if len(names) != 2 || names[0] != "logistic_regression" || names[1] != "random_forest" {
		t.Errorf("Unexpected artifact list: %v", names)
	}

	if err := store.PutArtifact("", blob); err == nil {
		t.Error("Expected error for empty variant")
	}
}

func TestArtifacts_Reopen(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.PutArtifact("random_forest", []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetArtifact("random_forest")
	if err != nil || string(got) != "persisted" {
		t.Errorf("Expected persisted artifact, got %q (%v)", got, err)
	}
}

type testReport struct {
	Variant  string  `json:"variant"`
	Accuracy float64 `json:"accuracy"`
}

func TestReports(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	var out testReport
	if err := store.GetReport("random_forest", &out); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("Expected ErrReportNotFound, got %v", err)
	}

	in := testReport{Variant: "random_forest", Accuracy: 0.875}
	if err := store.PutReport(in.Variant, in); err != nil {
		t.Fatalf("PutReport failed: %v", err)
	}
	if err := store.GetReport(in.Variant, &out); err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if out != in {
		t.Errorf("Expected %+v, got %+v", in, out)
	}

	names, err := store.ListReports()
	if err != nil || len(names) != 1 {
		t.Errorf("Unexpected report list %v (%v)", names, err)
	}
}

func TestRuns_Range(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.PutRun(base.Add(time.Duration(i)*time.Hour), map[string]int{"run": i}); err != nil {
			t.Fatalf("PutRun failed: %v", err)
		}
	}

	runs, err := store.GetRuns(base.Add(time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("GetRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}
	var first map[string]int
	if err := json.Unmarshal(runs[0], &first); err != nil || first["run"] != 1 {
		t.Errorf("Expected run 1 first, got %v (%v)", first, err)
	}

	var latest map[string]int
	ok, err := store.LatestRun(&latest)
	if err != nil || !ok || latest["run"] != 4 {
		t.Errorf("Expected latest run 4, got %v ok=%v err=%v", latest, ok, err)
	}
}

func TestLatestRun_Empty(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	var out map[string]any
	ok, err := store.LatestRun(&out)
	if err != nil || ok {
		t.Errorf("Expected no run, got ok=%v err=%v", ok, err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.PutArtifact("random_forest", []byte("model")); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.GetArtifact("random_forest"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent read failed: %v", err)
	}
}
