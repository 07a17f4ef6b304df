package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/wavesentry/wavesentry/pkg/tracker"
)

// Page-length clamps for the server-side datatable protocol.
const (
	defaultPageLength = 50
	maxPageLength     = 200
)

// tableState holds the decoded server-side paging, sorting, and search
// parameters of one datatable request.
type tableState struct {
	start  int
	length int
	draw   int64

	search      string
	searchPaths [][]int

	orderCol  int
	orderPath []int
	ascending bool

	// Response counts filled in by the planner: store size and
	// pre-pagination candidate count.
	total    int
	filtered int
}

// parseTableState decodes the datatable form variables. Search columns map
// positionally onto the summary vector: columns[i] is summary entry i, and
// only columns flagged searchable contribute their resolved paths.
func parseTableState(form url.Values, summary []*tracker.Summary) *tableState {
	st := &tableState{orderCol: -1}

	start, _ := strconv.Atoi(form.Get("start"))
	length, _ := strconv.Atoi(form.Get("length"))
	st.draw, _ = strconv.ParseInt(form.Get("draw"), 10, 64)

	if length <= 0 || length > maxPageLength {
		length = defaultPageLength
	}

	if start < 0 {
		start = 0
	}

	st.start = start
	st.length = length

	st.search = form.Get("search[value]")
	if st.search != "" {
		for ci := range summary {
			flag, ok := form[fmt.Sprintf("columns[%d][searchable]", ci)]
			if !ok {
				// Out of column definitions; stop rather than
				// probing further indexes.
				break
			}

			if len(flag) > 0 && flag[0] == "true" {
				st.searchPaths = append(st.searchPaths, summary[ci].ResolvedPath)
			}
		}
	}

	if raw := form.Get("order[0][column]"); raw != "" {
		if col, err := strconv.Atoi(raw); err == nil {
			st.orderCol = col
		}
	}

	// Sorting by a column outside the summary vector makes no sense.
	if st.orderCol >= len(summary) {
		st.orderCol = -1
	}

	if st.orderCol >= 0 {
		st.orderPath = summary[st.orderCol].ResolvedPath
		st.ascending = form.Get("order[0][dir]") == "asc"
	}

	return st
}

// pageBounds clamps the slice window against the candidate count: an
// out-of-range start resets to zero, and a window running past the end is
// truncated to it.
func (st *tableState) pageBounds(total int) (start, end int) {
	start = st.start
	if start >= total {
		start = 0
	}

	end = total
	if st.length > 0 && start+st.length < total {
		end = start + st.length
	}

	return start, end
}
