package history

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/verte-zerg/dhikr/internal/model"
)

const (
	defaultPlotHeight = 6
	minPlotWidth      = 10
	axisSeparator     = " │ "
)

// DailyReps returns completed repetitions per calendar day for the days
// ending on now's date, oldest first.
func DailyReps(records []model.SessionRecord, now time.Time, days int) []float64 {
	if days <= 0 {
		return nil
	}
	loc := now.Location()
	today := dayOf(now, loc)
	first := today.AddDate(0, 0, -(days - 1))
	out := make([]float64, days)
	for _, r := range records {
		day := dayOf(r.EndedAt, loc)
		if day.Before(first) || day.After(today) {
			continue
		}
		idx := int(math.Round(day.Sub(first).Hours() / 24))
		if idx >= 0 && idx < days {
			out[idx] += float64(r.TotalReps)
		}
	}
	return out
}

// PlotDaily renders values as a braille line chart that fits totalWidth cells.
func PlotDaily(w io.Writer, title string, values []float64, totalWidth, height int) error {
	if len(values) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	maxVal := 0.0
	for _, v := range values {
		maxVal = math.Max(maxVal, v)
	}
	top := fmt.Sprintf("%.0f", maxVal)
	axisWidth := utf8.RuneCountInString(top)
	width := totalWidth - axisWidth - utf8.RuneCountInString(axisSeparator)
	if width < minPlotWidth {
		width = minPlotWidth
	}

	points := resample(values, width)
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	dotRows := height * 4
	prevX, prevY := -1, -1
	for x, v := range points {
		px, py := x*2, valueToRow(v, maxVal, dotRows)
		if prevX < 0 {
			setDot(cells, px, py)
		} else {
			drawLine(prevX, prevY, px, py, func(dx, dy int) { setDot(cells, dx, dy) })
		}
		prevX, prevY = px, py
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = top
		case height - 1:
			label = "0"
		}
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%*s%s", axisWidth, label, axisSeparator))
		for x := 0; x < width; x++ {
			row.WriteRune(rune(0x2800 + int(cells[y][x])))
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// resample stretches or averages values to exactly width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := (i + 1) * n / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(width-1)
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func valueToRow(v, maxVal float64, rows int) int {
	if rows <= 1 || maxVal <= 0 {
		return rows - 1
	}
	row := int(math.Round((1 - v/maxVal) * float64(rows-1)))
	return min(max(row, 0), rows-1)
}

// drawLine walks a Bresenham line between two dot coordinates.
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Braille cells are 2 dots wide and 4 tall.
var dotMasks = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func setDot(cells [][]uint8, x, y int) {
	cy, cx := y/4, x/2
	if x < 0 || y < 0 || cy >= len(cells) || cx >= len(cells[cy]) {
		return
	}
	cells[cy][cx] |= dotMasks[x%2][y%4]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
