package mapdata

import "strings"

// TileMatrix is a rectangular grid of tiles parsed from a
// newline-separated block of text, one byte per column, padded with fill
// where rows are shorter than the widest row.
type TileMatrix struct {
	width, height int
	fill          byte
	tiles         []byte
}

// NewTileMatrix parses data (one row per line) into a rectangular matrix,
// padding short rows with fill.
func NewTileMatrix(data string, fill byte) TileMatrix {
	lines := strings.Split(strings.Trim(data, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return TileMatrix{fill: fill}
	}
	width := 0
	for _, line := range lines {
		if len(line) > width {
			width = len(line)
		}
	}
	height := len(lines)
	tiles := make([]byte, width*height)
	for i := range tiles {
		tiles[i] = fill
	}
	for y, line := range lines {
		for x := 0; x < len(line); x++ {
			tiles[y*width+x] = line[x]
		}
	}
	return TileMatrix{width: width, height: height, fill: fill, tiles: tiles}
}

func (m TileMatrix) Empty() bool { return m.width == 0 || m.height == 0 }

func (m TileMatrix) Width() int  { return m.width }
func (m TileMatrix) Height() int { return m.height }

// Get returns the tile at (x, y), or def if out of bounds.
func (m TileMatrix) Get(x, y int, def byte) byte {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return def
	}
	return m.tiles[y*m.width+x]
}

// Set overwrites the tile at (x, y); used while lifting semantic glyphs
// (spawns, tracks, ...) out of the matrix and replacing them with air.
func (m *TileMatrix) Set(x, y int, v byte) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.tiles[y*m.width+x] = v
}
