package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AngelCh415/smartreach/internal/models"
)

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const campaignColumns = `id, product_service, area, context, angle, max_leads, status,
	leads_found, leads_selected, leads_data, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (models.Campaign, error) {
	var (
		c         models.Campaign
		status    string
		leadsData sql.NullString
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.ProductService, &c.Area, &c.Context, &c.Angle, &c.MaxLeads, &status,
		&c.LeadsFound, &c.LeadsSelected, &leadsData, &createdAt); err != nil {
		return models.Campaign{}, err
	}
	c.Status = models.ParseStatus(status)
	if leadsData.Valid {
		v := leadsData.String
		c.LeadsData = &v
	}
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, c models.Campaign) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO campaigns (`+campaignColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProductService, c.Area, c.Context, c.Angle, c.MaxLeads, string(c.Status),
		c.LeadsFound, c.LeadsSelected, nullable(c.LeadsData), toMillis(c.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("campaign %s: %w", c.ID, ErrConflict)
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (models.Campaign, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Campaign{}, ErrNotFound
	}
	if err != nil {
		return models.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) UpdateCampaign(ctx context.Context, c models.Campaign) error {
	res, err := s.db.ExecContext(ctx, `UPDATE campaigns SET
	product_service = ?, area = ?, context = ?, angle = ?, max_leads = ?, status = ?,
	leads_found = ?, leads_selected = ?, leads_data = ?
WHERE id = ?`,
		c.ProductService, c.Area, c.Context, c.Angle, c.MaxLeads, string(c.Status),
		c.LeadsFound, c.LeadsSelected, nullable(c.LeadsData), c.ID)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) DeleteCampaign(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context, f CampaignFilter) ([]models.Campaign, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, toMillis(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, toMillis(f.To))
	}
	q := `SELECT ` + campaignColumns + ` FROM campaigns`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()
	out := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveCampaign(ctx context.Context, c models.Campaign, msgs []models.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO campaigns (`+campaignColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	product_service = excluded.product_service,
	area = excluded.area,
	context = excluded.context,
	angle = excluded.angle,
	max_leads = excluded.max_leads,
	status = excluded.status,
	leads_found = excluded.leads_found,
	leads_selected = excluded.leads_selected,
	leads_data = excluded.leads_data`,
		c.ID, c.ProductService, c.Area, c.Context, c.Angle, c.MaxLeads, string(c.Status),
		c.LeadsFound, c.LeadsSelected, nullable(c.LeadsData), toMillis(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("save campaign: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE campaign_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO messages
	(id, campaign_id, company_name, industry, location, content, quality_score, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(campaign_id, company_name) DO UPDATE SET
	industry = excluded.industry,
	location = excluded.location,
	content = excluded.content,
	quality_score = excluded.quality_score`,
			m.ID, c.ID, m.CompanyName, m.Industry, m.Location, m.Content, models.Clamp(m.QualityScore), toMillis(m.CreatedAt)); err != nil {
			return fmt.Errorf("insert message %s: %w", m.CompanyName, err)
		}
	}
	return tx.Commit()
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) UpsertMessage(ctx context.Context, m models.Message) (models.Message, error) {
	return upsertMessage(ctx, s.db, m)
}

func (s *SQLiteStore) UpsertMessages(ctx context.Context, msgs []models.Message) ([]models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		stored, err := upsertMessage(ctx, tx, m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.CompanyName, err)
		}
		out = append(out, stored)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit messages: %w", err)
	}
	return out, nil
}

func upsertMessage(ctx context.Context, q rowQuerier, m models.Message) (models.Message, error) {
	var createdAt int64
	err := q.QueryRowContext(ctx, `INSERT INTO messages
	(id, campaign_id, company_name, industry, location, content, quality_score, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(campaign_id, company_name) DO UPDATE SET
	industry = excluded.industry,
	location = excluded.location,
	content = excluded.content,
	quality_score = excluded.quality_score
RETURNING id, created_at`,
		m.ID, m.CampaignID, m.CompanyName, m.Industry, m.Location, m.Content, models.Clamp(m.QualityScore), toMillis(m.CreatedAt),
	).Scan(&m.ID, &createdAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("upsert message: %w", err)
	}
	m.QualityScore = models.Clamp(m.QualityScore)
	m.CreatedAt = fromMillis(createdAt)
	return m, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, campaignID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, campaign_id, company_name, industry, location, content, quality_score, created_at
FROM messages WHERE campaign_id = ?
ORDER BY quality_score DESC, company_name`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	out := []models.Message{}
	for rows.Next() {
		var (
			m         models.Message
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.CampaignID, &m.CompanyName, &m.Industry, &m.Location, &m.Content, &m.QualityScore, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = fromMillis(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetProfile(ctx context.Context) (models.Profile, error) {
	var (
		p                    models.Profile
		services             string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT company_name, services, created_at, updated_at
FROM user_profiles WHERE id = ?`, DefaultProfileID).Scan(&p.CompanyName, &services, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if err := json.Unmarshal([]byte(services), &p.Services); err != nil {
		return models.Profile{}, fmt.Errorf("decode services: %w", err)
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

func (s *SQLiteStore) PutProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	if p.Services == nil {
		p.Services = []string{}
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	services, err := json.Marshal(p.Services)
	if err != nil {
		return models.Profile{}, fmt.Errorf("encode services: %w", err)
	}
	var createdAt int64
	err = s.db.QueryRowContext(ctx, `INSERT INTO user_profiles (id, company_name, services, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	company_name = excluded.company_name,
	services = excluded.services,
	updated_at = excluded.updated_at
RETURNING created_at`,
		DefaultProfileID, p.CompanyName, string(services), toMillis(p.UpdatedAt), toMillis(p.UpdatedAt),
	).Scan(&createdAt)
	if err != nil {
		return models.Profile{}, fmt.Errorf("put profile: %w", err)
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(toMillis(p.UpdatedAt))
	return p, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed")
}
