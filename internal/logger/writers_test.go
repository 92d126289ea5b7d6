package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSafeCSVWriterConcurrentWrites(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "journal.csv")
	header := []string{"time", "wallet", "token", "sol_spent", "signature"}

	writer, err := NewSafeCSVWriter(testFile, header, 20*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create safe CSV writer: %v", err)
	}

	var wg sync.WaitGroup
	numGoroutines := 5
	recordsPerGoroutine := 50

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < recordsPerGoroutine; j++ {
				record := []string{
					time.Now().Format(time.RFC3339),
					fmt.Sprintf("wallet_%d", id),
					fmt.Sprintf("token_%d", j),
					"0.5",
					fmt.Sprintf("sig_%d_%d", id, j),
				}
				if err := writer.WriteRecord(record); err != nil {
					t.Errorf("Failed to write record: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	records, _ := writer.GetStats()
	if records != uint64(numGoroutines*recordsPerGoroutine) {
		t.Errorf("Expected %d records, got %d", numGoroutines*recordsPerGoroutine, records)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	rows := readCSV(t, testFile)
	if len(rows) != numGoroutines*recordsPerGoroutine+1 {
		t.Errorf("Expected %d rows including header, got %d", numGoroutines*recordsPerGoroutine+1, len(rows))
	}
	if rows[0][0] != "time" {
		t.Errorf("Expected header row first, got %v", rows[0])
	}
}

func TestSafeCSVWriterHeaderWrittenOnce(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "journal.csv")
	header := []string{"a", "b"}

	for i := 0; i < 2; i++ {
		writer, err := NewSafeCSVWriter(testFile, header, time.Hour, zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to create writer: %v", err)
		}
		if err := writer.WriteRecord([]string{"1", "2"}); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("Failed to close: %v", err)
		}
	}

	rows := readCSV(t, testFile)
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
}

func TestSafeFileWriterPeriodicFlush(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "lines.log")

	writer, err := NewSafeFileWriter(testFile, 10*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	if err := writer.WriteLine("hello"); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if info, err := os.Stat(testFile); err == nil && info.Size() > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Line was not flushed by the periodic flush")
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read csv: %v", err)
	}
	return rows
}
