package logger

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// LogEntry represents a single log entry in the buffer
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer is a thread-safe ring buffer of log entries. Entries pushed out
// of the ring are appended to an optional spill writer.
type LogBuffer struct {
	mu           sync.Mutex
	ringBuffer   []LogEntry
	maxSize      int
	currentIndex int
	wrapped      bool
	spill        *SafeFileWriter

	// Stats
	totalEntries   uint64
	spilledEntries uint64
}

// NewLogBuffer creates a buffer holding maxSize entries. spill may be nil.
func NewLogBuffer(maxSize int, spill *SafeFileWriter) *LogBuffer {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &LogBuffer{
		ringBuffer: make([]LogEntry, maxSize),
		maxSize:    maxSize,
		spill:      spill,
	}
}

// Write implements io.Writer for zap JSON output. Each call carries one
// encoded entry.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(p, &raw); err != nil {
		return 0, fmt.Errorf("failed to decode log entry: %w", err)
	}

	entry := LogEntry{Timestamp: time.Now()}
	if lvl, ok := raw["level"].(string); ok {
		entry.Level = lvl
	}
	if msg, ok := raw["msg"].(string); ok {
		entry.Message = msg
	}
	if ts, ok := raw["time"].(string); ok {
		if parsed, err := time.Parse("2006-01-02T15:04:05.000Z0700", ts); err == nil {
			entry.Timestamp = parsed
		}
	}
	delete(raw, "level")
	delete(raw, "msg")
	delete(raw, "time")
	if len(raw) > 0 {
		entry.Fields = raw
	}

	if err := lb.Add(entry); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Add appends entry, spilling the overwritten one when the ring is full.
func (lb *LogBuffer) Add(entry LogEntry) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	evicted := lb.ringBuffer[lb.currentIndex]
	lb.ringBuffer[lb.currentIndex] = entry
	lb.currentIndex = (lb.currentIndex + 1) % lb.maxSize

	wasWrapped := lb.wrapped
	if lb.currentIndex == 0 {
		lb.wrapped = true
	}
	lb.totalEntries++

	if wasWrapped && lb.spill != nil {
		data, err := json.Marshal(evicted)
		if err != nil {
			return fmt.Errorf("failed to marshal log entry: %w", err)
		}
		if err := lb.spill.WriteLine(string(data)); err != nil {
			return err
		}
		lb.spilledEntries++
	}

	return nil
}

// GetRecentLogs returns up to limit most recent entries, oldest first.
func (lb *LogBuffer) GetRecentLogs(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.currentIndex
	start := 0
	if lb.wrapped {
		count = lb.maxSize
		start = lb.currentIndex
	}
	if limit > 0 && limit < count {
		start += count - limit
		count = limit
	}

	logs := make([]LogEntry, 0, count)
	for i := 0; i < count; i++ {
		logs = append(logs, lb.ringBuffer[(start+i)%lb.maxSize])
	}
	return logs
}

// GetStats returns buffer statistics
func (lb *LogBuffer) GetStats() (total, spilled uint64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.totalEntries, lb.spilledEntries
}

// Sync satisfies zapcore.WriteSyncer.
func (lb *LogBuffer) Sync() error {
	if lb.spill == nil {
		return nil
	}
	return lb.spill.Flush()
}
