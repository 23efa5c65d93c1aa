package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestNewProgressBar(t *testing.T) {
	bar := NewProgressBar(&bytes.Buffer{}, "Bench", "requests")

	if bar.title != "Bench" || bar.unit != "requests" {
		t.Errorf("bar = %+v", bar)
	}
	if bar.width != 40 {
		t.Errorf("width = %d, want %d", bar.width, 40)
	}
}

func TestProgressBar_Update(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := NewProgressBar(buf, "Bench", "requests")

	bar.Update(50, 100)

	output := buf.String()
	if !strings.Contains(output, "Bench") {
		t.Error("output should contain title")
	}
	if !strings.Contains(output, " 50%") || !strings.Contains(output, "(50/100 requests)") {
		t.Errorf("output = %q", output)
	}
}

func TestProgressBar_RedrawsOnPercentChange(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := NewProgressBar(buf, "Bench", "requests")
	bar.SetTotal(1000)

	for i := 0; i < 10; i++ {
		bar.Increment(1)
	}
	if got := strings.Count(buf.String(), "\r"); got != 2 {
		t.Errorf("redraws = %d, want 2 (0%% and 1%%)", got)
	}
}

func TestProgressBar_ConcurrentIncrement(t *testing.T) {
	bar := NewProgressBar(&bytes.Buffer{}, "Bench", "requests")
	bar.SetTotal(800)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				bar.Increment(1)
			}
		}()
	}
	wg.Wait()

	if bar.current != 800 {
		t.Errorf("current = %d, want 800", bar.current)
	}
}

func TestProgressBar_Finish(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := NewProgressBar(buf, "Bench", "requests")

	bar.SetTotal(100)
	bar.Update(100, 100)
	bar.Finish()

	output := buf.String()
	if !strings.Contains(output, "100%") {
		t.Error("output should contain 100%")
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("Finish should end the line")
	}
}

func TestProgressBar_UnknownTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := NewProgressBar(buf, "Bench", "requests")

	bar.Update(1024, 0)

	if got := buf.String(); !strings.Contains(got, "Bench 1024 requests") {
		t.Errorf("output = %q", got)
	}
}
