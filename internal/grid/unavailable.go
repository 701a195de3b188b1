// Package grid builds the static parts of the timeline background: hour
// marks, day dividers and unavailable-hour shading.
package grid

import (
	"fmt"
	"math"

	"timelinecal/internal/coord"
	"timelinecal/internal/model"
)

// BuildUnavailable turns hour ranges into shaded blocks on the grid.
//
// Each range is clipped to dayRange; ranges left empty by the clip and
// ranges with a non-finite bound are dropped. Ranges are neither sorted nor merged: overlapping inputs give
// overlapping blocks, in input order.
func BuildUnavailable(ranges []model.HourRange, dayRange model.DayRange, hourBlockHeight float64) ([]model.UnavailableBlock, error) {
	v, err := coord.NewVertical(hourBlockHeight, dayRange, 0)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	return unavailableBlocks(ranges, v), nil
}

func unavailableBlocks(ranges []model.HourRange, v coord.Vertical) []model.UnavailableBlock {
	blocks := make([]model.UnavailableBlock, 0, len(ranges))
	for _, r := range ranges {
		if !finite(r.Start) || !finite(r.End) {
			continue
		}
		start := v.ClampDecimal(r.Start)
		end := v.ClampDecimal(r.End)
		if start >= end {
			continue
		}
		top := v.OffsetOfDecimal(start)
		blocks = append(blocks, model.UnavailableBlock{
			Top:    top,
			Height: v.OffsetOfDecimal(end) - top,
		})
	}
	return blocks
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
