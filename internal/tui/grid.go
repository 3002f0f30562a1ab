package tui

import (
	"path"
	"sort"

	"vantage/internal/tools"
	"vantage/pkg/types"
)

// Cell is one (file, tool) slot in the summary grid.
type Cell struct {
	Tool       *tools.Descriptor
	Status     types.Status
	Key        types.SnapshotKey
	BodyDigest string
	// Body holds a synthetic report kept in memory only, e.g. the
	// explanation a tool gives for declining a file. Terminal statuses
	// persist their body in the blob store instead.
	Body string
}

// FileRow is one grid row: a file and its applicable tools in order.
type FileRow struct {
	Path  string
	Snap  types.FileSnapshot
	Cells []Cell
}

// CellIndex finds the column of a tool in the row, or -1.
func (r *FileRow) CellIndex(tool string) int {
	for i, c := range r.Cells {
		if c.Tool.Name == tool {
			return i
		}
	}
	return -1
}

// sortRows orders the grid. The default groups files by directory then
// extension; byType flips the two so all files of one type sit together.
func sortRows(rows []*FileRow, byType bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		adir, aext := path.Dir(a.Path), tools.SplitExt(a.Path)
		bdir, bext := path.Dir(b.Path), tools.SplitExt(b.Path)
		if byType {
			if aext != bext {
				return aext < bext
			}
			if adir != bdir {
				return adir < bdir
			}
		} else {
			if adir != bdir {
				return adir < bdir
			}
			if aext != bext {
				return aext < bext
			}
		}
		return a.Path < b.Path
	})
}
