// Package store persists campaigns, their generated messages and the sender profile.
// SQLite is the durable backend; MemoryStore serves tests and throwaway runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AngelCh415/smartreach/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// DefaultProfileID is the only profile row the service reads and writes.
const DefaultProfileID = "default"

// CampaignFilter narrows ListCampaigns. Zero values leave a dimension unbounded.
type CampaignFilter struct {
	Status models.Status
	From   time.Time // inclusive
	To     time.Time // exclusive
}

type Store interface {
	CreateCampaign(ctx context.Context, c models.Campaign) error
	GetCampaign(ctx context.Context, id string) (models.Campaign, error)
	UpdateCampaign(ctx context.Context, c models.Campaign) error
	// DeleteCampaign removes the campaign and all of its messages.
	DeleteCampaign(ctx context.Context, id string) error
	// ListCampaigns returns matching campaigns, newest first.
	ListCampaigns(ctx context.Context, f CampaignFilter) ([]models.Campaign, error)
	// SaveCampaign writes c (inserting it when absent) and replaces its messages in one step.
	SaveCampaign(ctx context.Context, c models.Campaign, msgs []models.Message) error

	// UpsertMessage inserts m or updates the live message for the same campaign and company,
	// keeping the stored id and created_at. It returns the row as stored.
	UpsertMessage(ctx context.Context, m models.Message) (models.Message, error)
	// UpsertMessages applies UpsertMessage to every message as one unit: when any of them
	// fails, none are written.
	UpsertMessages(ctx context.Context, msgs []models.Message) ([]models.Message, error)
	// ListMessages returns a campaign's messages, best quality first.
	ListMessages(ctx context.Context, campaignID string) ([]models.Message, error)

	GetProfile(ctx context.Context) (models.Profile, error)
	PutProfile(ctx context.Context, p models.Profile) (models.Profile, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open returns the backend named by driver.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "":
		return OpenSQLite(path)
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}
