package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/smartreach/internal/models"
	"github.com/AngelCh415/smartreach/internal/store"
)

const (
	dateLayout   = "2006-01-02"
	recentLimit  = 5
	maxPageLimit = 1000
)

var ErrBadQuery = errors.New("bad query")

// Service answers the history and dashboard reads over the campaign store.
type Service struct {
	st  store.Store
	now func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{st: st, now: func() time.Time { return time.Now().UTC() }}
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

type HistoryPage struct {
	Campaigns []models.Campaign `json:"campaigns"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// History lists campaigns newest first. Query params: status, from and to (YYYY-MM-DD, both
// inclusive), limit (default 50) and offset.
func (s *Service) History(ctx context.Context, v url.Values) (HistoryPage, error) {
	f, err := historyFilter(v)
	if err != nil {
		return HistoryPage{}, err
	}
	limit := atoiDef(v.Get("limit"), 50)
	offset := atoiDef(v.Get("offset"), 0)

	rows, err := s.st.ListCampaigns(ctx, f)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("list campaigns: %w", err)
	}
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return HistoryPage{
		Campaigns: paginate(rows, limit, offset),
		Total:     len(rows),
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func historyFilter(v url.Values) (store.CampaignFilter, error) {
	var f store.CampaignFilter
	if raw := norm(v.Get("status")); raw != "" {
		st := models.Status(raw)
		if !st.Valid() {
			return f, fmt.Errorf("status %q: %w", raw, ErrBadQuery)
		}
		f.Status = st
	}
	if raw := v.Get("from"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, fmt.Errorf("from %q: %w", raw, ErrBadQuery)
		}
		f.From = t
	}
	if raw := v.Get("to"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, fmt.Errorf("to %q: %w", raw, ErrBadQuery)
		}
		f.To = t.AddDate(0, 0, 1)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return f, fmt.Errorf("from after to: %w", ErrBadQuery)
	}
	return f, nil
}

// Dashboard counts all campaigns, sums leads found since the first of the current month and
// lists the most recent campaigns.
func (s *Service) Dashboard(ctx context.Context) (models.Dashboard, error) {
	all, err := s.st.ListCampaigns(ctx, store.CampaignFilter{})
	if err != nil {
		return models.Dashboard{}, fmt.Errorf("list campaigns: %w", err)
	}
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	d := models.Dashboard{
		Stats:          models.DashboardStats{TotalCampaigns: len(all)},
		RecentActivity: []models.RecentActivity{},
	}
	for _, c := range all {
		if !c.CreatedAt.Before(monthStart) {
			d.Stats.TotalLeadsFound += c.LeadsFound
		}
	}
	for _, c := range paginate(all, recentLimit, 0) {
		d.RecentActivity = append(d.RecentActivity, models.RecentActivity{
			ID:     c.ID,
			Name:   c.ProductService + " - " + c.Area,
			Status: c.Status,
		})
	}
	return d, nil
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset > n {
		offset = n
	}
	return limit, offset
}
