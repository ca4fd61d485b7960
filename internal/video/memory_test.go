package video

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryRepository_ClaimAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	v, _ := New("abc-1.mp4")
	if err := repo.Claim(ctx, v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err := repo.FindByID(ctx, "abc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.FileName != "abc-1.mp4" {
		t.Errorf("expected file name abc-1.mp4, got %s", found.FileName)
	}
}

func TestMemoryRepository_ClaimDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, _ := New("abc-1.mp4")
	if err := repo.Claim(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same ID, different extension.
	second, _ := New("abc-1.mov")
	if err := repo.Claim(ctx, second); !errors.Is(err, ErrVideoAlreadyExists) {
		t.Errorf("expected ErrVideoAlreadyExists, got %v", err)
	}
}

func TestMemoryRepository_ConcurrentClaim(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := New("race-1.mp4")
			if err := repo.Claim(ctx, v); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := successes.Load(); got != 1 {
		t.Errorf("expected exactly one successful claim, got %d", got)
	}
}

func TestMemoryRepository_SaveOverwrites(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	v, _ := New("abc-1.mp4")
	_ = repo.Claim(ctx, v)
	_ = v.MarkProcessed("processed-abc-1.mp4")
	if err := repo.Save(ctx, v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, _ := repo.FindByID(ctx, v.ID)
	if found.Status != StatusProcessed {
		t.Errorf("expected status %s, got %s", StatusProcessed, found.Status)
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.FindByID(context.Background(), "missing")
	if !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestMemoryRepository_ReturnsClones(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	v, _ := New("abc-1.mp4")
	_ = repo.Claim(ctx, v)

	// Mutating the caller's copy after Claim must not leak into the store.
	v.Status = StatusFailed
	found, _ := repo.FindByID(ctx, v.ID)
	if found.Status != StatusProcessing {
		t.Errorf("expected stored status %s, got %s", StatusProcessing, found.Status)
	}

	found.Status = StatusProcessed
	again, _ := repo.FindByID(ctx, v.ID)
	if again.Status != StatusProcessing {
		t.Errorf("expected stored status %s, got %s", StatusProcessing, again.Status)
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	empty, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil list, got %v", empty)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, offset := range []int{2, 0, 1} {
		v, _ := New(fmt.Sprintf("u-%d.mp4", i))
		v.CreatedAt = base.Add(time.Duration(offset) * time.Minute)
		_ = repo.Save(ctx, v)
	}

	videos, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 3 {
		t.Fatalf("expected 3 videos, got %d", len(videos))
	}
	want := []string{"u-1", "u-2", "u-0"}
	for i, id := range want {
		if videos[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, videos[i].ID)
		}
	}
}
