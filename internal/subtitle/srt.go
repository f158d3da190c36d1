package subtitle

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSRT parses SubRip content into segments. Cue numbers are ignored;
// ordering follows the file. Malformed blocks are skipped rather than failing
// the whole parse, since embedded streams are frequently sloppy.
func ParseSRT(content string) ([]Segment, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")

	var segments []Segment
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}

		// First line may be a cue number; the timestamp line is the one
		// containing the arrow.
		tsLine := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				tsLine = i
				break
			}
		}
		if tsLine < 0 || tsLine == len(lines)-1 {
			continue
		}

		parts := strings.Split(lines[tsLine], "-->")
		if len(parts) != 2 {
			continue
		}
		startMs, err1 := parseSRTTimestamp(strings.TrimSpace(parts[0]))
		endMs, err2 := parseSRTTimestamp(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			continue
		}

		text := strings.TrimSpace(strings.Join(lines[tsLine+1:], " "))
		if text == "" {
			continue
		}

		segments = append(segments, Segment{
			Text:    text,
			StartMs: startMs,
			EndMs:   endMs,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no usable cues in SRT content")
	}
	return segments, nil
}

// FormatSRT renders segments as SubRip text.
func FormatSRT(segments []Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatSRTTimestamp(seg.StartMs),
			formatSRTTimestamp(seg.EndMs),
			seg.Text,
		)
	}
	return b.String()
}

// parseSRTTimestamp parses "HH:MM:SS,mmm" (or the "." millisecond separator
// some tools emit) into milliseconds.
func parseSRTTimestamp(ts string) (int, error) {
	ts = strings.ReplaceAll(ts, ".", ",")
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q: expected HH:MM:SS,mmm", ts)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q: %w", ts, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", ts, err)
	}

	secParts := strings.Split(parts[2], ",")
	if len(secParts) != 2 {
		return 0, fmt.Errorf("invalid seconds in %q: missing milliseconds", ts)
	}
	seconds, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q: %w", ts, err)
	}
	millis, err := strconv.Atoi(secParts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid milliseconds in %q: %w", ts, err)
	}

	return ((hours*60+minutes)*60+seconds)*1000 + millis, nil
}

func formatSRTTimestamp(ms int) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
