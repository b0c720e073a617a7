package analyze

import (
	"fmt"

	"fortio.org/safecast"

	"owlsight/internal/facts"
	"owlsight/internal/mir"
)

// Phase says whether a point is the start or the mid of a statement.
type Phase uint8

const (
	PhaseStart Phase = iota
	PhaseMid
)

func (p Phase) String() string {
	if p == PhaseMid {
		return "mid"
	}
	return "start"
}

// RichLocation is a point resolved to block and statement coordinates.
// A statement index equal to the block's statement count denotes the
// terminator.
type RichLocation struct {
	Block     mir.BlockID
	Statement uint32
	Phase     Phase
}

func (l RichLocation) String() string {
	return fmt.Sprintf("%s(bb%d[%d])", l.Phase, l.Block, l.Statement)
}

// LocationTable maps solver points back to statements. Every statement and
// every terminator gets two consecutive points.
type LocationTable struct {
	numPoints   uint32
	blockStarts []uint32
}

// NewLocationTable precomputes the first point of every block.
func NewLocationTable(body *mir.Body) *LocationTable {
	starts := make([]uint32, 0, len(body.Blocks))
	var next uint32
	for i := range body.Blocks {
		starts = append(starts, next)
		n, err := safecast.Conv[uint32](len(body.Blocks[i].Statements))
		if err != nil {
			panic(fmt.Errorf("statement count overflow: %w", err))
		}
		next += (n + 1) * 2
	}
	return &LocationTable{numPoints: next, blockStarts: starts}
}

// NumPoints returns the number of points in the body.
func (lt *LocationTable) NumPoints() uint32 {
	return lt.numPoints
}

// RichLocation resolves p; ok is false for points outside the body.
func (lt *LocationTable) RichLocation(p facts.Point) (RichLocation, bool) {
	idx := uint32(p)
	if idx >= lt.numPoints {
		return RichLocation{}, false
	}
	for b := len(lt.blockStarts) - 1; b >= 0; b-- {
		first := lt.blockStarts[b]
		if first > idx {
			continue
		}
		phase := PhaseStart
		if (idx-first)%2 == 1 {
			phase = PhaseMid
		}
		return RichLocation{
			Block:     mir.BlockID(b), // #nosec G115 -- bounded by len(blockStarts)
			Statement: (idx - first) / 2,
			Phase:     phase,
		}, true
	}
	return RichLocation{}, false
}

// PointOf is the inverse of RichLocation.
func (lt *LocationTable) PointOf(loc RichLocation) (facts.Point, bool) {
	if int(loc.Block) >= len(lt.blockStarts) {
		return 0, false
	}
	end := lt.numPoints
	if next := int(loc.Block) + 1; next < len(lt.blockStarts) {
		end = lt.blockStarts[next]
	}
	p := lt.blockStarts[loc.Block] + loc.Statement*2 + uint32(loc.Phase)
	if p >= end {
		return 0, false
	}
	return facts.Point(p), true
}
