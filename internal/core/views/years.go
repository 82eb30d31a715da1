package views

import (
	"strconv"

	"github.com/agenthands/chrono/internal/core/model"
)

type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r YearRange) Contains(year int) bool {
	return year >= r.Min && year <= r.Max
}

// minYearSpan is the narrowest span worth a range control.
const minYearSpan = 2

// YearBounds returns the min and max parsed years. ok is false when no
// year parses or the span is under two years.
func YearBounds(nodes []model.TimelineNode) (YearRange, bool) {
	var r YearRange
	found := false
	for _, n := range nodes {
		y, ok := n.Year()
		if !ok {
			continue
		}
		if !found || y < r.Min {
			r.Min = y
		}
		if !found || y > r.Max {
			r.Max = y
		}
		found = true
	}
	if !found || r.Max-r.Min < minYearSpan {
		return YearRange{}, false
	}
	return r, true
}

// SpanLabel is "first – last" by timeline order, or a single year.
func SpanLabel(nodes []model.TimelineNode) string {
	if len(nodes) == 0 {
		return ""
	}
	first, last := nodes[0].YearLabel(), nodes[len(nodes)-1].YearLabel()
	if first == last {
		return first
	}
	return first + " – " + last
}

type Separator struct {
	Label             string `json:"label"`
	InsertBeforeIndex int    `json:"insert_before_index"`
}

type changePoint struct {
	index, year, prevYear int
}

// Closeness limits for coalescing consecutive year changes.
const (
	clusterIndexGap = 2
	clusterYearGap  = 2
	minClusterSize  = 3
)

// Separators marks year boundaries between adjacent nodes. Runs of at
// least three nearby change points collapse into one decade label when
// they stay within a decade; otherwise only decade crossings inside the
// run are marked.
func Separators(nodes []model.TimelineNode) []Separator {
	years := make([]int, len(nodes))
	for i, n := range nodes {
		if y, ok := n.Year(); ok && y != 0 {
			years[i] = y
		}
	}

	var points []changePoint
	for i := 1; i < len(years); i++ {
		if years[i] != years[i-1] && years[i] != 0 && years[i-1] != 0 {
			points = append(points, changePoint{index: i, year: years[i], prevYear: years[i-1]})
		}
	}

	var seps []Separator
	for i := 0; i < len(points); {
		j := i
		for j+1 < len(points) &&
			points[j+1].year-points[j].year <= clusterYearGap &&
			points[j+1].index-points[j].index <= clusterIndexGap {
			j++
		}

		start := points[i]
		if j-i+1 >= minClusterSize {
			startDecade, endDecade := decade(start.prevYear), decade(points[j].year)
			if startDecade == endDecade {
				seps = append(seps, Separator{Label: strconv.Itoa(startDecade) + "s", InsertBeforeIndex: start.index})
			} else {
				seps = append(seps, Separator{Label: strconv.Itoa(start.prevYear), InsertBeforeIndex: start.index})
				for k := i + 1; k <= j; k++ {
					if decade(points[k].year) != decade(points[k].prevYear) {
						seps = append(seps, Separator{Label: strconv.Itoa(points[k].year), InsertBeforeIndex: points[k].index})
					}
				}
			}
		} else {
			for k := i; k <= j; k++ {
				seps = append(seps, Separator{Label: strconv.Itoa(points[k].year), InsertBeforeIndex: points[k].index})
			}
		}
		i = j + 1
	}
	return seps
}

func decade(year int) int {
	d := year / 10 * 10
	if year < 0 && year%10 != 0 {
		d -= 10
	}
	return d
}
