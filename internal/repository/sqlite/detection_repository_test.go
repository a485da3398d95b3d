package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zonewatch/internal/model"
	"zonewatch/internal/repository"
	"zonewatch/internal/repository/repotest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDetectionRepository_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.DetectionRepository {
		return NewDetectionRepository(openTestDB(t))
	})
}

func TestDatabase_Connection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestDatabase_ReopenKeepsLog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	repo := NewDetectionRepository(db)
	zone := "Living Room"
	ts := time.Date(2025, 6, 15, 14, 30, 0, 123456789, time.FixedZone("CEST", 2*3600))
	rec := &model.DetectionRecord{ObjectName: "dog", ZoneName: &zone, Confidence: 0.93, Timestamp: ts}
	if err := repo.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	db.Close()

	db, err = New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	got, err := NewDetectionRepository(db).LastSeen(context.Background(), "dog")
	if err != nil || got == nil {
		t.Fatalf("LastSeen after reopen = %v, %v", got, err)
	}
	if got.ID != rec.ID || got.Zone() != zone || got.Confidence != 0.93 {
		t.Errorf("unexpected record after reopen: %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, expected %v", got.Timestamp, ts)
	}
}

func TestDatabase_NullConfidenceReadsAsZero(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Conn().Exec(
		`INSERT INTO detections (object_name, zone_name, timestamp, confidence) VALUES (?, NULL, ?, NULL)`,
		"legacy", time.Now().UTC(),
	); err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	got, err := NewDetectionRepository(db).LastSeen(context.Background(), "legacy")
	if err != nil || got == nil {
		t.Fatalf("LastSeen = %v, %v", got, err)
	}
	if got.Confidence != 0 || got.ZoneName != nil {
		t.Errorf("unexpected record: %+v", got)
	}
}
