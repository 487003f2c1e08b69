package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AngelCh415/smartreach/internal/models"
)

type MemoryStore struct {
	mu        sync.RWMutex
	campaigns map[string]models.Campaign
	messages  map[string]map[string]models.Message // campaign id -> company name -> message
	profile   *models.Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[string]models.Campaign),
		messages:  make(map[string]map[string]models.Message),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) CreateCampaign(_ context.Context, c models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[c.ID]; ok {
		return fmt.Errorf("campaign %s: %w", c.ID, ErrConflict)
	}
	c.CreatedAt = millis(c.CreatedAt)
	s.campaigns[c.ID] = copyCampaign(c)
	return nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, id string) (models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return models.Campaign{}, ErrNotFound
	}
	return copyCampaign(c), nil
}

func (s *MemoryStore) UpdateCampaign(_ context.Context, c models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.campaigns[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.CreatedAt = old.CreatedAt // immutable after insert
	s.campaigns[c.ID] = copyCampaign(c)
	return nil
}

func (s *MemoryStore) DeleteCampaign(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[id]; !ok {
		return ErrNotFound
	}
	delete(s.campaigns, id)
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) ListCampaigns(_ context.Context, f CampaignFilter) ([]models.Campaign, error) {
	s.mu.RLock()
	out := []models.Campaign{}
	for _, c := range s.campaigns {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && c.CreatedAt.Before(millis(f.From)) {
			continue
		}
		if !f.To.IsZero() && !c.CreatedAt.Before(millis(f.To)) {
			continue
		}
		out = append(out, copyCampaign(c))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) SaveCampaign(_ context.Context, c models.Campaign, msgs []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.campaigns[c.ID]; ok {
		c.CreatedAt = old.CreatedAt
	}
	c.CreatedAt = millis(c.CreatedAt)
	s.campaigns[c.ID] = copyCampaign(c)

	byCompany := make(map[string]models.Message, len(msgs))
	for _, m := range msgs {
		m.CampaignID = c.ID
		m.QualityScore = models.Clamp(m.QualityScore)
		m.CreatedAt = millis(m.CreatedAt)
		if prev, ok := byCompany[m.CompanyName]; ok {
			m.ID, m.CreatedAt = prev.ID, prev.CreatedAt
		}
		byCompany[m.CompanyName] = m
	}
	s.messages[c.ID] = byCompany
	return nil
}

func (s *MemoryStore) UpsertMessage(_ context.Context, m models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[m.CampaignID]; !ok {
		return models.Message{}, fmt.Errorf("upsert message: campaign %s: %w", m.CampaignID, ErrNotFound)
	}
	return s.upsertLocked(m), nil
}

func (s *MemoryStore) UpsertMessages(_ context.Context, msgs []models.Message) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if _, ok := s.campaigns[m.CampaignID]; !ok {
			return nil, fmt.Errorf("upsert message %s: campaign %s: %w", m.CompanyName, m.CampaignID, ErrNotFound)
		}
	}
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.upsertLocked(m))
	}
	return out, nil
}

// upsertLocked requires s.mu held for writing and the campaign present.
func (s *MemoryStore) upsertLocked(m models.Message) models.Message {
	byCompany, ok := s.messages[m.CampaignID]
	if !ok {
		byCompany = make(map[string]models.Message)
		s.messages[m.CampaignID] = byCompany
	}
	m.QualityScore = models.Clamp(m.QualityScore)
	m.CreatedAt = millis(m.CreatedAt)
	if prev, ok := byCompany[m.CompanyName]; ok {
		m.ID, m.CreatedAt = prev.ID, prev.CreatedAt
	}
	byCompany[m.CompanyName] = m
	return m
}

func (s *MemoryStore) ListMessages(_ context.Context, campaignID string) ([]models.Message, error) {
	s.mu.RLock()
	out := make([]models.Message, 0, len(s.messages[campaignID]))
	for _, m := range s.messages[campaignID] {
		out = append(out, m)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].QualityScore != out[j].QualityScore {
			return out[i].QualityScore > out[j].QualityScore
		}
		return out[i].CompanyName < out[j].CompanyName
	})
	return out, nil
}

func (s *MemoryStore) GetProfile(context.Context) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return models.Profile{}, ErrNotFound
	}
	p := *s.profile
	p.Services = append([]string{}, p.Services...)
	return p, nil
}

func (s *MemoryStore) PutProfile(_ context.Context, p models.Profile) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	p.UpdatedAt = millis(p.UpdatedAt)
	p.CreatedAt = p.UpdatedAt
	if s.profile != nil {
		p.CreatedAt = s.profile.CreatedAt
	}
	p.Services = append([]string{}, p.Services...)
	stored := p
	s.profile = &stored
	return p, nil
}

// millis matches the precision the SQLite backend stores.
func millis(t time.Time) time.Time { return fromMillis(toMillis(t)) }

func copyCampaign(c models.Campaign) models.Campaign {
	if c.LeadsData != nil {
		v := *c.LeadsData
		c.LeadsData = &v
	}
	return c
}
