package track

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

//go:embed data/upper_loop.json
var upperLoop []byte

const maxTrackFileSize = 4 * 1024 * 1024

// Default returns the embedded height map measured for the upper loop
// installation.
func Default() []Point {
	points, err := Decode(bytes.NewReader(upperLoop))
	if err != nil {
		panic(fmt.Sprintf("embedded track is invalid: %v", err))
	}
	return points
}

// Decode reads a height map in one of two JSON shapes:
//
//	[{"index": 0, "x": 86.0, "y": 217.1}, ...]
//	{"0": [86.0, 217.1], "1": [84.2, 215.9], ...}
func Decode(r io.Reader) ([]Point, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxTrackFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read track data: %w", err)
	}
	if len(data) > maxTrackFileSize {
		return nil, fmt.Errorf("track data too large (max %d bytes)", maxTrackFileSize)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("track data is empty")
	}

	if data[0] == '[' {
		var points []Point
		if err := json.Unmarshal(data, &points); err != nil {
			return nil, fmt.Errorf("failed to parse track list: %w", err)
		}
		return points, nil
	}

	var byIndex map[string][2]float64
	if err := json.Unmarshal(data, &byIndex); err != nil {
		return nil, fmt.Errorf("failed to parse track map: %w", err)
	}
	points := make([]Point, 0, len(byIndex))
	for key, xy := range byIndex {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid track index %q: %w", key, err)
		}
		points = append(points, Point{Index: idx, X: xy[0], Y: xy[1]})
	}
	return points, nil
}

// LoadFile reads a height map from a .json file.
func LoadFile(path string) ([]Point, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("track file must have .json extension, got %q", ext)
	}
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open track file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
