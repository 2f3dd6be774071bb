package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Line is one decoded log record. Lines that are not JSON keep only Raw.
type Line struct {
	Time      time.Time
	Level     string
	Component string
	Message   string
	Err       string
	Raw       string
}

type record struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
}

// Tail returns at most n records from the end of the log at path. A missing
// file yields no lines.
func Tail(path string, n int) ([]Line, error) {
	if n <= 0 || path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % n
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	kept := min(count, n)
	start := 0
	if count > n {
		start = idx
	}
	lines := make([]Line, 0, kept)
	for i := range kept {
		lines = append(lines, decode(ring[(start+i)%n]))
	}
	return lines, nil
}

func decode(raw string) Line {
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Line{Raw: raw}
	}
	return Line{
		Time:      rec.Time,
		Level:     rec.Level,
		Component: rec.Component,
		Message:   rec.Message,
		Err:       rec.Error,
		Raw:       raw,
	}
}
