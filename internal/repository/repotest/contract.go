// Package repotest holds the behaviour every DetectionRepository must share,
// run by each implementation's tests.
package repotest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"zonewatch/internal/model"
	"zonewatch/internal/repository"
)

// Factory opens a fresh, empty repository for one subtest.
type Factory func(t *testing.T) repository.DetectionRepository

var base = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func zone(name string) *string {
	return &name
}

func record(object string, zoneName *string, conf float64, ts time.Time) *model.DetectionRecord {
	return &model.DetectionRecord{ObjectName: object, ZoneName: zoneName, Confidence: conf, Timestamp: ts}
}

func mustInsert(t *testing.T, repo repository.DetectionRepository, rec *model.DetectionRecord) {
	t.Helper()
	if err := repo.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert(%s) failed: %v", rec.ObjectName, err)
	}
}

// Run executes the shared contract against repositories produced by open.
func Run(t *testing.T, open Factory) {
	t.Run("InsertAssignsIncreasingIDs", func(t *testing.T) { testInsertAssignsIDs(t, open(t)) })
	t.Run("InsertRejectsStaleExplicitID", func(t *testing.T) { testInsertRejectsStaleID(t, open(t)) })
	t.Run("LastSeenReturnsLatest", func(t *testing.T) { testLastSeenLatest(t, open(t)) })
	t.Run("LastSeenUnknownObject", func(t *testing.T) { testLastSeenUnknown(t, open(t)) })
	t.Run("LastSeenTieBreaksOnID", func(t *testing.T) { testLastSeenTieBreak(t, open(t)) })
	t.Run("RecentLimitOne", func(t *testing.T) { testRecentLimitOne(t, open(t)) })
	t.Run("RecentLimitExceedsSize", func(t *testing.T) { testRecentExceedsSize(t, open(t)) })
	t.Run("RecentNonPositiveLimit", func(t *testing.T) { testRecentNonPositive(t, open(t)) })
	t.Run("RecentOrdersByTimestamp", func(t *testing.T) { testRecentOrdersByTimestamp(t, open(t)) })
	t.Run("ZoneNamePreserved", func(t *testing.T) { testZoneNamePreserved(t, open(t)) })
	t.Run("Between", func(t *testing.T) { testBetween(t, open(t)) })
	t.Run("ObjectNames", func(t *testing.T) { testObjectNames(t, open(t)) })
	t.Run("ConcurrentInserts", func(t *testing.T) { testConcurrentInserts(t, open(t)) })
}

func testInsertAssignsIDs(t *testing.T, repo repository.DetectionRepository) {
	var last int64
	for i := 0; i < 5; i++ {
		rec := record("dog", nil, 0.5, base.Add(time.Duration(i)*time.Second))
		mustInsert(t, repo, rec)
		if rec.ID <= last {
			t.Errorf("insert %d got id %d, expected > %d", i, rec.ID, last)
		}
		last = rec.ID
	}

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 records, got %d", count)
	}
}

func testInsertRejectsStaleID(t *testing.T, repo repository.DetectionRepository) {
	first := record("dog", nil, 0.5, base)
	first.ID = 10
	mustInsert(t, repo, first)

	stale := record("cat", nil, 0.5, base.Add(time.Second))
	stale.ID = 10
	if err := repo.Insert(context.Background(), stale); !errors.Is(err, repository.ErrIDConflict) {
		t.Errorf("expected ErrIDConflict, got %v", err)
	}

	next := record("cat", nil, 0.5, base.Add(2*time.Second))
	mustInsert(t, repo, next)
	if next.ID <= 10 {
		t.Errorf("expected id after 10, got %d", next.ID)
	}
}

func testLastSeenLatest(t *testing.T, repo repository.DetectionRepository) {
	t1 := base
	t2 := base.Add(5 * time.Second)
	mustInsert(t, repo, record("dog", zone("Living Room"), 0.93, t1))
	mustInsert(t, repo, record("cat", zone("Kitchen"), 0.81, t1.Add(time.Second)))
	mustInsert(t, repo, record("dog", zone("Kitchen"), 0.88, t2))

	got, err := repo.LastSeen(context.Background(), "dog")
	if err != nil {
		t.Fatalf("LastSeen failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a record for dog")
	}
	if !got.Timestamp.Equal(t2) {
		t.Errorf("expected timestamp %v, got %v", t2, got.Timestamp)
	}
	if got.Zone() != "Kitchen" {
		t.Errorf("expected zone Kitchen, got %q", got.Zone())
	}
}

func testLastSeenUnknown(t *testing.T, repo repository.DetectionRepository) {
	mustInsert(t, repo, record("dog", nil, 0.9, base))

	got, err := repo.LastSeen(context.Background(), "cat")
	if err != nil {
		t.Fatalf("LastSeen failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected no record for cat, got %+v", got)
	}
}

func testLastSeenTieBreak(t *testing.T, repo repository.DetectionRepository) {
	first := record("dog", zone("A"), 0.7, base)
	second := record("dog", zone("B"), 0.6, base)
	mustInsert(t, repo, first)
	mustInsert(t, repo, second)

	got, err := repo.LastSeen(context.Background(), "dog")
	if err != nil {
		t.Fatalf("LastSeen failed: %v", err)
	}
	if got == nil || got.ID != second.ID {
		t.Errorf("expected record %d on timestamp tie, got %+v", second.ID, got)
	}
}

func testRecentLimitOne(t *testing.T, repo repository.DetectionRepository) {
	t1 := base
	t2 := base.Add(time.Minute)
	mustInsert(t, repo, record("dog", zone("Living Room"), 0.93, t1))
	mustInsert(t, repo, record("cat", zone("Kitchen"), 0.81, t2))

	got, err := repo.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	rec := got[0]
	if rec.ObjectName != "cat" || rec.Zone() != "Kitchen" || rec.Confidence != 0.81 || !rec.Timestamp.Equal(t2) {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func testRecentExceedsSize(t *testing.T, repo repository.DetectionRepository) {
	for i := 0; i < 3; i++ {
		mustInsert(t, repo, record("dog", nil, 0.5, base.Add(time.Duration(i)*time.Second)))
	}

	got, err := repo.Recent(context.Background(), 50)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].After(got[i]) {
			t.Errorf("records %d and %d not in descending order", i-1, i)
		}
	}
}

func testRecentNonPositive(t *testing.T, repo repository.DetectionRepository) {
	mustInsert(t, repo, record("dog", nil, 0.5, base))

	for _, limit := range []int{0, -1} {
		got, err := repo.Recent(context.Background(), limit)
		if err != nil {
			t.Fatalf("Recent(%d) failed: %v", limit, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Recent(%d) = %v, expected empty slice", limit, got)
		}
	}
}

func testRecentOrdersByTimestamp(t *testing.T, repo repository.DetectionRepository) {
	// Inserted out of timestamp order; ordering must follow timestamps.
	mustInsert(t, repo, record("a", nil, 0.5, base.Add(2*time.Second)))
	mustInsert(t, repo, record("b", nil, 0.5, base))
	mustInsert(t, repo, record("c", nil, 0.5, base.Add(time.Second)))

	got, err := repo.Recent(context.Background(), 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	want := []string{"a", "c", "b"}
	for i, rec := range got {
		if rec.ObjectName != want[i] {
			t.Errorf("position %d = %s, expected %s", i, rec.ObjectName, want[i])
		}
	}
}

func testZoneNamePreserved(t *testing.T, repo repository.DetectionRepository) {
	mustInsert(t, repo, record("dog", nil, 0.5, base))
	mustInsert(t, repo, record("cat", zone("Kitchen"), 0.5, base.Add(time.Second)))

	dog, err := repo.LastSeen(context.Background(), "dog")
	if err != nil || dog == nil {
		t.Fatalf("LastSeen(dog) = %v, %v", dog, err)
	}
	if dog.ZoneName != nil {
		t.Errorf("expected nil zone for dog, got %q", *dog.ZoneName)
	}

	cat, err := repo.LastSeen(context.Background(), "cat")
	if err != nil || cat == nil {
		t.Fatalf("LastSeen(cat) = %v, %v", cat, err)
	}
	if cat.ZoneName == nil || *cat.ZoneName != "Kitchen" {
		t.Errorf("expected Kitchen for cat, got %v", cat.ZoneName)
	}
}

func testBetween(t *testing.T, repo repository.DetectionRepository) {
	for i := 0; i < 5; i++ {
		mustInsert(t, repo, record("dog", nil, 0.5, base.Add(time.Duration(i)*time.Minute)))
	}

	got, err := repo.Between(context.Background(), base.Add(time.Minute), base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("Between failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].After(got[i-1]) {
			t.Errorf("records %d and %d not in ascending order", i-1, i)
		}
	}
}

func testObjectNames(t *testing.T, repo repository.DetectionRepository) {
	for i, name := range []string{"person", "dog", "cat", "dog"} {
		mustInsert(t, repo, record(name, nil, 0.5, base.Add(time.Duration(i)*time.Second)))
	}

	got, err := repo.ObjectNames(context.Background())
	if err != nil {
		t.Fatalf("ObjectNames failed: %v", err)
	}
	want := []string{"cat", "dog", "person"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %s, expected %s", i, got[i], want[i])
		}
	}
}

func testConcurrentInserts(t *testing.T, repo repository.DetectionRepository) {
	const (
		workers   = 8
		perWorker = 25
	)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				rec := record("dog", nil, 0.5, time.Now().UTC())
				if err := repo.Insert(context.Background(), rec); err != nil {
					t.Errorf("worker %d insert %d failed: %v", worker, i, err)
					return
				}
				mu.Lock()
				ids = append(ids, rec.ID)
				mu.Unlock()
			}
		}(w)
	}

	// Readers run alongside the writers.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if _, err := repo.Recent(context.Background(), 10); err != nil {
				t.Errorf("concurrent Recent failed: %v", err)
				return
			}
		}
	}()

	wg.Wait()
	<-done

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != int64(len(ids)) || count != workers*perWorker {
		t.Fatalf("expected %d records, count %d, ids %d", workers*perWorker, count, len(ids))
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[i-1]+1 {
			t.Errorf("id sequence broken between %d and %d", ids[i-1], ids[i])
		}
	}
}
