package router

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/heatbox-map/internal/hotness"
)

const (
	defaultHotspots = 10
	maxHotspots     = 100
	hotspotScan     = 1 << 16
)

type parenter interface {
	ToParent(cell string, parentRes int) (string, error)
}

type hotspot struct {
	Cell  string  `json:"cell"`
	Score float64 `json:"score"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

type hotspotsResponse struct {
	Res   int       `json:"res"`
	Cells []hotspot `json:"cells"`
}

// markHot counts one query against the cell under the polygon centroid.
func (h *Handlers) markHot(ctx context.Context, poly orb.Polygon) {
	if h.Hot == nil || h.Mapper == nil {
		return
	}
	cell, err := h.Mapper.CellForPolygon(poly, h.H3Res)
	if err != nil {
		h.Logger.DebugContext(ctx, "hotness cell lookup failed", "err", err)
		return
	}
	h.Hot.Inc(cell)
}

// Hotspots lists the most queried cells, optionally rolled up to a coarser
// resolution with ?res=.
func (h *Handlers) Hotspots() http.HandlerFunc {
	return instrument("/hotspots", func(w http.ResponseWriter, r *http.Request) {
		if h.Hot == nil {
			writeJSON(w, http.StatusOK, "", hotspotsResponse{Res: h.H3Res, Cells: []hotspot{}})
			return
		}
		q := r.URL.Query()
		limit := defaultHotspots
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxHotspots)
		}
		res := h.H3Res
		if v := q.Get("res"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 || n > h.H3Res {
				writeError(w, r, http.StatusBadRequest, "res must be between 0 and "+strconv.Itoa(h.H3Res))
				return
			}
			res = n
		}

		var entries []hotness.Entry
		if res == h.H3Res {
			entries = h.Hot.Top(limit)
		} else {
			p, ok := h.Mapper.(parenter)
			if !ok {
				writeError(w, r, http.StatusBadRequest, "resolution roll-up not supported")
				return
			}
			entries = rollUp(h.Hot.Top(hotspotScan), p, res)
			if len(entries) > limit {
				entries = entries[:limit]
			}
		}

		out := hotspotsResponse{Res: res, Cells: make([]hotspot, 0, len(entries))}
		for _, e := range entries {
			hs := hotspot{Cell: e.Cell, Score: e.Score}
			if h.Mapper != nil {
				if pt, err := h.Mapper.Center(e.Cell); err == nil {
					hs.Lon, hs.Lat = pt.Lon(), pt.Lat()
				}
			}
			out.Cells = append(out.Cells, hs)
		}
		writeJSON(w, http.StatusOK, "", out)
	})
}

func rollUp(entries []hotness.Entry, p parenter, res int) []hotness.Entry {
	sums := make(map[string]float64, len(entries))
	for _, e := range entries {
		parent, err := p.ToParent(e.Cell, res)
		if err != nil {
			continue
		}
		sums[parent] += e.Score
	}
	out := make([]hotness.Entry, 0, len(sums))
	for c, s := range sums {
		out = append(out, hotness.Entry{Cell: c, Score: s})
	}
	slices.SortFunc(out, func(a, b hotness.Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Cell, b.Cell)
	})
	return out
}
