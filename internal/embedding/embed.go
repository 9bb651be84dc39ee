// Package embedding implements grotsky's self-contained-executable feature
// (spec.md §4.6): "grotsky embed bytecode.grc" writes bytecode.exe beside
// its input, a standalone binary that is the grotsky interpreter itself
// with the compiled chunk glued onto the end, so running it executes the
// chunk with no .grc file or grotsky install required at the call site.
//
// Grounded on original_source/src/embed.rs's marker/offset scheme: a
// fixed 512-byte pattern (see marker_data.go) followed by a one-byte
// "am I carrying a payload" flag is present in every build of the
// interpreter. EmbedFile locates that pattern in a copy of the running
// executable's own bytes, flips the flag, and appends the pattern a
// second time followed by the compiled chunk. ExecuteEmbedded reverses
// this: find the built-in pattern, skip past it, then find the second
// (appended) copy — everything after that is the payload.
package embedding

import (
	"bytes"
	"fmt"
	"os"
)

const markerSize = 512

// IsEmbedded reports whether the currently running executable has a
// script payload glued onto it.
func IsEmbedded() (bool, error) {
	exe, err := os.Executable()
	if err != nil {
		return false, fmt.Errorf("embedding: locating own executable: %w", err)
	}
	contents, err := os.ReadFile(exe)
	if err != nil {
		return false, fmt.Errorf("embedding: reading own executable: %w", err)
	}
	pos := findPosition(contents, pattern[:])
	if pos < 0 {
		return false, nil
	}
	flagPos := pos + markerSize
	if flagPos >= len(contents) {
		return false, nil
	}
	return contents[flagPos] != 0, nil
}

// EmbedFile writes outputPath as a copy of the running executable with
// compiledScript glued onto the end, flagged as embedded.
func EmbedFile(compiledScript []byte, outputPath string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("embedding: locating own executable: %w", err)
	}
	exeContents, err := os.ReadFile(exe)
	if err != nil {
		return fmt.Errorf("embedding: reading own executable: %w", err)
	}

	pos := findPosition(exeContents, pattern[:])
	if pos < 0 {
		return fmt.Errorf("embedding: marker pattern not found in own executable (build not self-aware?)")
	}

	out := make([]byte, len(exeContents))
	copy(out, exeContents)
	out[pos+markerSize] = 1

	out = append(out, pattern[:]...)
	out = append(out, compiledScript...)

	return os.WriteFile(outputPath, out, 0o755)
}

// ExecuteEmbedded returns the compiled chunk glued onto the currently
// running executable, or an error if none is present.
func ExecuteEmbedded() ([]byte, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("embedding: locating own executable: %w", err)
	}
	contents, err := os.ReadFile(exe)
	if err != nil {
		return nil, fmt.Errorf("embedding: reading own executable: %w", err)
	}

	first := findPosition(contents, pattern[:])
	if first < 0 {
		return nil, fmt.Errorf("embedding: marker pattern not found in own executable")
	}
	remaining := contents[first+markerSize:]

	second := findPosition(remaining, pattern[:])
	if second < 0 {
		return nil, fmt.Errorf("embedding: no embedded script payload found")
	}
	return remaining[second+markerSize:], nil
}

func findPosition(haystack, needle []byte) int {
	return bytes.Index(haystack, needle)
}
