package service

import (
	"context"
	"errors"
	"testing"

	"github.com/persistorai/navgraph/internal/graph/graphtest"
	"github.com/persistorai/navgraph/internal/store"
)

func seededFileStore(t *testing.T) *store.FileStore {
	t.Helper()

	fs, err := store.NewFileStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range graphtest.Row(3) {
		if err := fs.Save(context.Background(), p.ID, p); err != nil {
			t.Fatal(err)
		}
	}

	return fs
}

func TestMatchService_Run(t *testing.T) {
	for _, index := range []string{IndexGrid, IndexBruteForce} {
		t.Run(index, func(t *testing.T) {
			fs := seededFileStore(t)

			svc, err := NewMatchService(fs, MatchOptions{Index: index}, testLogger())
			if err != nil {
				t.Fatal(err)
			}

			report, err := svc.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if report.PairsMatched != 1 || report.ParcelsSaved != 2 {
				t.Fatalf("report = %+v", report)
			}

			// Lock was released: a second run is allowed and changes nothing.
			report, err = svc.Run(context.Background())
			if err != nil {
				t.Fatalf("second Run: %v", err)
			}
			if report.PairsMatched != 0 || report.ParcelsSaved != 0 {
				t.Fatalf("second report = %+v", report)
			}
		})
	}
}

func TestMatchService_Locked(t *testing.T) {
	fs := seededFileStore(t)

	release, err := fs.Lock(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release() //nolint:errcheck // test teardown

	svc, err := NewMatchService(fs, MatchOptions{}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Run(context.Background()); !errors.Is(err, store.ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
}

func TestNewMatchService_UnknownIndex(t *testing.T) {
	if _, err := NewMatchService(nil, MatchOptions{Index: "kdtree"}, testLogger()); err == nil {
		t.Fatal("expected error for unknown index")
	}
}
