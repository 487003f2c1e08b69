package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/smartreach/internal/models"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "smartreach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": sq}
}

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func campaign(id string, status models.Status, at time.Time) models.Campaign {
	snap := `[{"id":"l1","name":"Acme"}]`
	return models.Campaign{
		ID:             id,
		ProductService: "CRM",
		Area:           "Austin, TX",
		MaxLeads:       5,
		Status:         status,
		LeadsFound:     1,
		LeadsData:      &snap,
		CreatedAt:      at,
	}
}

func TestCampaignCRUD(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := campaign("c1", models.StatusResearchInProgress, base)
			require.NoError(t, st.CreateCampaign(ctx, c))
			assert.ErrorIs(t, st.CreateCampaign(ctx, c), ErrConflict)

			got, err := st.GetCampaign(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, c, got)

			got.Status = models.StatusResearchComplete
			got.LeadsData = nil
			got.CreatedAt = base.Add(time.Hour)
			require.NoError(t, st.UpdateCampaign(ctx, got))

			again, err := st.GetCampaign(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, models.StatusResearchComplete, again.Status)
			assert.Nil(t, again.LeadsData)
			assert.Equal(t, base, again.CreatedAt)

			_, err = st.GetCampaign(ctx, "nope")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, st.UpdateCampaign(ctx, campaign("nope", models.StatusCompleted, base)), ErrNotFound)
			assert.ErrorIs(t, st.DeleteCampaign(ctx, "nope"), ErrNotFound)
		})
	}
}

func TestUpsertMessageUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.CreateCampaign(ctx, campaign("c1", models.StatusGenerationInProgress, base)))

			first, err := st.UpsertMessage(ctx, models.Message{ID: "m1", CampaignID: "c1", CompanyName: "Acme", Content: "v1", QualityScore: 60, CreatedAt: base})
			require.NoError(t, err)
			second, err := st.UpsertMessage(ctx, models.Message{ID: "m2", CampaignID: "c1", CompanyName: "Acme", Content: "v2", QualityScore: 140, CreatedAt: base.Add(time.Minute)})
			require.NoError(t, err)
			_, err = st.UpsertMessage(ctx, models.Message{ID: "m3", CampaignID: "c1", CompanyName: "Blue Finch", Content: "b", QualityScore: 70, CreatedAt: base})
			require.NoError(t, err)

			assert.Equal(t, first.ID, second.ID)
			assert.Equal(t, base, second.CreatedAt)
			assert.Equal(t, 100, second.QualityScore)

			msgs, err := st.ListMessages(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, "Acme", msgs[0].CompanyName)
			assert.Equal(t, "v2", msgs[0].Content)
			assert.Equal(t, "Blue Finch", msgs[1].CompanyName)
		})
	}
}

func TestUpsertMessagesIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.CreateCampaign(ctx, campaign("c1", models.StatusGenerationInProgress, base)))
			prior, err := st.UpsertMessage(ctx, models.Message{ID: "m0", CampaignID: "c1", CompanyName: "Acme", Content: "v1", QualityScore: 50, CreatedAt: base})
			require.NoError(t, err)

			_, err = st.UpsertMessages(ctx, []models.Message{
				{ID: "m1", CampaignID: "c1", CompanyName: "Acme", Content: "v2", QualityScore: 90, CreatedAt: base},
				{ID: "m2", CampaignID: "ghost", CompanyName: "Blue Finch", Content: "b", QualityScore: 70, CreatedAt: base},
			})
			require.Error(t, err)

			msgs, err := st.ListMessages(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, msgs, 1)
			assert.Equal(t, prior, msgs[0])

			stored, err := st.UpsertMessages(ctx, []models.Message{
				{ID: "m3", CampaignID: "c1", CompanyName: "Acme", Content: "v3", QualityScore: 120, CreatedAt: base.Add(time.Hour)},
				{ID: "m4", CampaignID: "c1", CompanyName: "Blue Finch", Content: "b", QualityScore: 70, CreatedAt: base},
			})
			require.NoError(t, err)
			require.Len(t, stored, 2)
			assert.Equal(t, "m0", stored[0].ID)
			assert.Equal(t, base, stored[0].CreatedAt)
			assert.Equal(t, 100, stored[0].QualityScore)
			assert.Equal(t, "m4", stored[1].ID)

			msgs, err = st.ListMessages(ctx, "c1")
			require.NoError(t, err)
			assert.Len(t, msgs, 2)
		})
	}
}

func TestDeleteCascadesMessages(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.CreateCampaign(ctx, campaign("c1", models.StatusGenerationComplete, base)))
			_, err := st.UpsertMessage(ctx, models.Message{ID: "m1", CampaignID: "c1", CompanyName: "Acme", Content: "x", CreatedAt: base})
			require.NoError(t, err)

			require.NoError(t, st.DeleteCampaign(ctx, "c1"))
			msgs, err := st.ListMessages(ctx, "c1")
			require.NoError(t, err)
			assert.Empty(t, msgs)
		})
	}
}

func TestSaveCampaignReplacesMessages(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.CreateCampaign(ctx, campaign("c1", models.StatusGenerationComplete, base)))
			_, err := st.UpsertMessage(ctx, models.Message{ID: "old", CampaignID: "c1", CompanyName: "Old Co", Content: "x", CreatedAt: base})
			require.NoError(t, err)

			done := campaign("c1", models.StatusCompleted, base)
			done.LeadsData = nil
			done.LeadsSelected = 1
			require.NoError(t, st.SaveCampaign(ctx, done, []models.Message{
				{ID: "n1", CompanyName: "Acme", Content: "final", QualityScore: 88, CreatedAt: base},
			}))

			got, err := st.GetCampaign(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, models.StatusCompleted, got.Status)
			assert.Nil(t, got.LeadsData)
			assert.Equal(t, 1, got.LeadsSelected)

			msgs, err := st.ListMessages(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, msgs, 1)
			assert.Equal(t, "n1", msgs[0].ID)
			assert.Equal(t, "c1", msgs[0].CampaignID)

			// absent campaigns are created
			require.NoError(t, st.SaveCampaign(ctx, campaign("c2", models.StatusCompleted, base), nil))
			_, err = st.GetCampaign(ctx, "c2")
			assert.NoError(t, err)
		})
	}
}

func TestListCampaignsFilters(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.CreateCampaign(ctx, campaign("a", models.StatusCompleted, base)))
			require.NoError(t, st.CreateCampaign(ctx, campaign("b", models.StatusResearchComplete, base.Add(24*time.Hour))))
			require.NoError(t, st.CreateCampaign(ctx, campaign("c", models.StatusCompleted, base.Add(48*time.Hour))))

			all, err := st.ListCampaigns(ctx, CampaignFilter{})
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "b", "a"}, ids(all))

			done, err := st.ListCampaigns(ctx, CampaignFilter{Status: models.StatusCompleted})
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "a"}, ids(done))

			window, err := st.ListCampaigns(ctx, CampaignFilter{From: base.Add(time.Hour), To: base.Add(48 * time.Hour)})
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, ids(window))
		})
	}
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.GetProfile(ctx)
			assert.ErrorIs(t, err, ErrNotFound)

			p, err := st.PutProfile(ctx, models.Profile{CompanyName: "Marketmind", Services: []string{"CRM"}, UpdatedAt: base})
			require.NoError(t, err)
			assert.Equal(t, base, p.CreatedAt)

			_, err = st.PutProfile(ctx, models.Profile{CompanyName: "Marketmind AI", UpdatedAt: base.Add(time.Hour)})
			require.NoError(t, err)

			got, err := st.GetProfile(ctx)
			require.NoError(t, err)
			assert.Equal(t, "Marketmind AI", got.CompanyName)
			assert.Empty(t, got.Services)
			assert.Equal(t, base, got.CreatedAt)
			assert.Equal(t, base.Add(time.Hour), got.UpdatedAt)
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("postgres", "x")
	assert.Error(t, err)

	st, err := Open("memory", "")
	require.NoError(t, err)
	assert.NoError(t, st.Ping(context.Background()))
}

func TestUpSection(t *testing.T) {
	assert.Equal(t, "\nCREATE TABLE t (x INT);\n", upSection("-- +migrate Up\nCREATE TABLE t (x INT);\n-- +migrate Down\nDROP TABLE t;"))
	assert.Equal(t, "SELECT 1;", upSection("SELECT 1;"))
}

func ids(cs []models.Campaign) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
