// Package kommune assembles the municipality info box.
package kommune

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/heatbox-map/internal/source"
	"github.com/mohammed-shakir/heatbox-map/internal/source/httpapi"
)

var ErrInvalidAGS = errors.New("kommune: invalid AGS")

type Detail struct {
	Name      string `json:"name"`
	AGS       string `json:"ags"`
	KWPStatus string `json:"kwp_status"`
}

// StatusText is the heat-planning status line shown under the title.
func (d Detail) StatusText() string {
	return "Status Kommunale Wärmeplanung: " + d.KWPStatus
}

type InfoBox struct {
	Detail Detail `json:"detail"`
	Status string `json:"status"`
	Chart  Chart  `json:"chart"`
}

type Fetcher interface {
	Kommune(ctx context.Context, ags string) (httpapi.KommuneRecord, error)
	Energiemix(ctx context.Context, ags string) ([]map[string]any, error)
}

type Service struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func NewService(f Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: f, logger: logger}
}

// InfoBox returns source.ErrNotFound for an unknown municipality. A failing
// energy-mix lookup leaves the chart without data points.
func (s *Service) InfoBox(ctx context.Context, ags string) (InfoBox, error) {
	if !ValidAGS(ags) {
		return InfoBox{}, fmt.Errorf("%w: %q", ErrInvalidAGS, ags)
	}
	rec, err := s.fetcher.Kommune(ctx, ags)
	if err != nil {
		return InfoBox{}, err
	}
	d := Detail{Name: rec.Name, AGS: rec.AGS, KWPStatus: rec.KWPStatus}
	if d.AGS == "" {
		d.AGS = ags
	}

	rows, err := s.fetcher.Energiemix(ctx, d.AGS)
	if err != nil {
		if !errors.Is(err, source.ErrNotFound) {
			s.logger.WarnContext(ctx, "energiemix lookup failed", "ags", d.AGS, "err", err)
		}
		rows = nil
	}
	return InfoBox{Detail: d, Status: d.StatusText(), Chart: NewChart(rows)}, nil
}

// ValidAGS accepts the 8 to 12 digit official municipality key.
func ValidAGS(ags string) bool {
	if len(ags) < 8 || len(ags) > 12 {
		return false
	}
	for _, r := range ags {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
