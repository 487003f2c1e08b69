// Package orchestrator drives a campaign through research, generation and save.
//
// The store is the single source of truth. A campaign moves
// research-in-progress -> research-complete -> generation-in-progress -> generation-complete -> completed,
// and completed is terminal. Calls for one campaign must be serialized by the caller.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/smartreach/internal/agents"
	"github.com/AngelCh415/smartreach/internal/metrics"
	"github.com/AngelCh415/smartreach/internal/models"
	"github.com/AngelCh415/smartreach/internal/store"
	"github.com/AngelCh415/smartreach/internal/utils"
)

var (
	// ErrPrecondition marks failures the caller fixes by restarting research rather than retrying.
	ErrPrecondition    = errors.New("missing precondition")
	ErrNotFound        = fmt.Errorf("campaign not found: %w", ErrPrecondition)
	ErrSnapshotMissing = fmt.Errorf("campaign leads not found, restart research: %w", ErrPrecondition)
	ErrCompleted       = errors.New("campaign already completed")
	ErrInvalid         = errors.New("invalid request")
)

const (
	DefaultMaxLeads = 10
	MaxLeadsLimit   = 50
)

type Researcher interface {
	Research(ctx context.Context, c models.Criteria) ([]models.Lead, error)
}

// Exporter receives every campaign once it is saved.
type Exporter interface {
	Export(ctx context.Context, d models.CampaignDetail) error
}

type Deps struct {
	Store      store.Store
	Researcher Researcher
	Exporter   Exporter // optional
	Writer     *agents.ContentWriter
	Evaluator  *agents.Evaluator
	Refiner    *agents.Refiner
	Pool       *utils.Pool
	Log        *slog.Logger
	Prom       *metrics.Prom
}

type Options struct {
	CacheTTL      time.Duration
	Refine        agents.RefineOptions
	DefaultSender string
}

type Orchestrator struct {
	st       store.Store
	research Researcher
	export   Exporter
	writer   *agents.ContentWriter
	eval     *agents.Evaluator
	refiner  *agents.Refiner
	pool     *utils.Pool
	log      *slog.Logger
	prom     *metrics.Prom
	opts     Options
	cache    *cache
	now      func() time.Time
}

func New(d Deps, opts Options) *Orchestrator {
	if d.Pool == nil {
		d.Pool = utils.NewPool(1)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if opts.DefaultSender == "" {
		opts.DefaultSender = "Marketmind AI Hub"
	}
	now := func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
	return &Orchestrator{
		st:       d.Store,
		research: d.Researcher,
		export:   d.Exporter,
		writer:   d.Writer,
		eval:     d.Evaluator,
		refiner:  d.Refiner,
		pool:     d.Pool,
		log:      d.Log,
		prom:     d.Prom,
		opts:     opts,
		cache:    newCache(opts.CacheTTL, now),
		now:      now,
	}
}

// Working is the in-flight state of a campaign rebuilt from its snapshot.
type Working struct {
	Campaign models.Campaign  `json:"campaign"`
	Leads    []models.Lead    `json:"leads"`
	Messages []models.Message `json:"messages"`
}

type ResearchResult struct {
	CampaignID string        `json:"campaign_id"`
	Leads      []models.Lead `json:"leads"`
	Status     models.Status `json:"status"`
}

type GenerateRequest struct {
	CampaignID  string   `json:"campaign_id"`
	SelectedIDs []string `json:"selected_lead_ids"`
	// Empty fields fall back to what the campaign was researched with.
	ProductService string `json:"product_service,omitempty"`
	Context        string `json:"context,omitempty"`
	Angle          string `json:"angle,omitempty"`
	Refine         bool   `json:"refine,omitempty"`
}

type SaveRequest struct {
	CampaignID     string           `json:"campaign_id"`
	ProductService string           `json:"product_service"`
	Area           string           `json:"area"`
	Context        string           `json:"context,omitempty"`
	Angle          string           `json:"angle,omitempty"`
	MaxLeads       int              `json:"max_leads"`
	LeadsFound     int              `json:"leads_found"`
	LeadsSelected  int              `json:"leads_selected"`
	Messages       []models.Message `json:"messages"`
}

type ProfileUpdate struct {
	CompanyName *string  `json:"company_name"`
	Services    []string `json:"services"` // nil keeps the stored list
}

func (o *Orchestrator) load(ctx context.Context, id string) (models.Campaign, error) {
	c, err := o.st.GetCampaign(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Campaign{}, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Campaign{}, err
	}
	return c, nil
}

func normalizeCriteria(c models.Criteria) (models.Criteria, error) {
	c.ProductService = strings.TrimSpace(c.ProductService)
	c.Area = strings.TrimSpace(c.Area)
	if c.ProductService == "" || c.Area == "" {
		return c, fmt.Errorf("product_service and area are required: %w", ErrInvalid)
	}
	if c.MaxLeads == 0 {
		c.MaxLeads = DefaultMaxLeads
	}
	if c.MaxLeads < 0 || c.MaxLeads > MaxLeadsLimit {
		return c, fmt.Errorf("max_leads must be between 1 and %d: %w", MaxLeadsLimit, ErrInvalid)
	}
	return c, nil
}

// BeginResearch creates a campaign (or reuses the non-completed one named by CampaignID), runs
// research and stores the lead snapshot. If research fails the campaign stays in
// research-in-progress and the error is returned.
func (o *Orchestrator) BeginResearch(ctx context.Context, crit models.Criteria) (res ResearchResult, err error) {
	defer func() { o.prom.Stage("research", err) }()

	crit, err = normalizeCriteria(crit)
	if err != nil {
		return ResearchResult{}, err
	}

	c, existing, err := o.researchTarget(ctx, crit)
	if err != nil {
		return ResearchResult{}, err
	}
	c.ProductService, c.Area, c.Context, c.Angle, c.MaxLeads = crit.ProductService, crit.Area, crit.Context, crit.Angle, crit.MaxLeads
	c.Status = models.StatusResearchInProgress
	if existing {
		err = o.st.UpdateCampaign(ctx, c)
	} else {
		err = o.st.CreateCampaign(ctx, c)
	}
	if err != nil {
		return ResearchResult{}, fmt.Errorf("store campaign: %w", err)
	}
	o.cache.drop(c.ID)
	log := o.log.With(slog.String("campaign_id", c.ID))
	log.Info("research started", slog.String("product_service", c.ProductService), slog.String("area", c.Area), slog.Int("max_leads", c.MaxLeads))

	crit.CampaignID = c.ID
	leads, err := o.research.Research(ctx, crit)
	if err != nil {
		log.Error("research failed", slog.String("err", err.Error()))
		return ResearchResult{}, fmt.Errorf("research campaign %s: %w", c.ID, err)
	}

	snap, err := json.Marshal(leads)
	if err != nil {
		return ResearchResult{}, fmt.Errorf("encode snapshot: %w", err)
	}
	s := string(snap)
	c.LeadsData = &s
	c.LeadsFound = len(leads)
	c.LeadsSelected = 0
	c.Status = models.StatusResearchComplete
	if err := o.st.UpdateCampaign(ctx, c); err != nil {
		return ResearchResult{}, fmt.Errorf("store snapshot: %w", err)
	}
	o.cache.put(c.ID, Working{Campaign: c, Leads: leads, Messages: []models.Message{}})
	log.Info("research complete", slog.Int("leads_found", len(leads)))
	return ResearchResult{CampaignID: c.ID, Leads: leads, Status: c.Status}, nil
}

func (o *Orchestrator) researchTarget(ctx context.Context, crit models.Criteria) (models.Campaign, bool, error) {
	empty := "[]"
	fresh := models.Campaign{ID: crit.CampaignID, LeadsData: &empty, CreatedAt: o.now()}
	if crit.CampaignID == "" {
		fresh.ID = uuid.NewString()
		return fresh, false, nil
	}
	c, err := o.st.GetCampaign(ctx, crit.CampaignID)
	if errors.Is(err, store.ErrNotFound) {
		return fresh, false, nil
	}
	if err != nil {
		return models.Campaign{}, false, err
	}
	if c.Status.Terminal() {
		return models.Campaign{}, false, fmt.Errorf("campaign %s: %w", c.ID, ErrCompleted)
	}
	if c.LeadsData == nil {
		c.LeadsData = &empty
	}
	return c, true, nil
}

// GenerateForSelection writes and scores one message per selected lead. Messages are upserted by
// company name, so repeating a selection updates rows instead of adding them. A failed generation
// puts the campaign back in the status it had before the call.
func (o *Orchestrator) GenerateForSelection(ctx context.Context, req GenerateRequest) (msgs []models.Message, err error) {
	defer func() { o.prom.Stage("generate", err) }()

	if req.CampaignID == "" || len(req.SelectedIDs) == 0 {
		return nil, fmt.Errorf("campaign_id and selected_lead_ids are required: %w", ErrInvalid)
	}
	c, err := o.load(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, fmt.Errorf("campaign %s: %w", c.ID, ErrCompleted)
	}
	leads, err := decodeSnapshot(c)
	if err != nil {
		return nil, err
	}
	selected := selectLeads(leads, req.SelectedIDs)
	if len(selected) == 0 {
		return nil, fmt.Errorf("none of the selected leads belong to campaign %s: %w", c.ID, ErrInvalid)
	}

	prev := c.Status
	c.Status = models.StatusGenerationInProgress
	c.LeadsSelected = min(len(selected), c.LeadsFound)
	if err := o.st.UpdateCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("store campaign: %w", err)
	}
	o.cache.drop(c.ID)
	log := o.log.With(slog.String("campaign_id", c.ID))
	log.Info("generation started", slog.Int("selected", len(selected)), slog.Bool("refine", req.Refine))

	revert := func(cause error) error {
		c.Status = prev
		if err := o.st.UpdateCampaign(context.WithoutCancel(ctx), c); err != nil {
			log.Error("revert status failed", slog.String("err", err.Error()))
		}
		log.Error("generation failed", slog.String("err", cause.Error()))
		return fmt.Errorf("generate campaign %s: %w", c.ID, cause)
	}

	brief := agents.Brief{
		ProductService: firstNonEmpty(req.ProductService, c.ProductService),
		Context:        firstNonEmpty(req.Context, c.Context),
		Angle:          firstNonEmpty(req.Angle, c.Angle),
		Sender:         o.sender(ctx),
	}

	msgs = make([]models.Message, len(selected))
	err = o.pool.Each(ctx, len(selected), func(ctx context.Context, i int) error {
		lead := selected[i]
		content, score, err := o.draft(ctx, lead, brief, req.Refine)
		if err != nil {
			return err
		}
		msgs[i] = models.Message{
			ID:           uuid.NewString(),
			CampaignID:   c.ID,
			CompanyName:  lead.Name,
			Industry:     lead.Industry,
			Location:     lead.Location,
			Content:      content,
			QualityScore: score,
			CreatedAt:    o.now(),
		}
		return nil
	})
	if err != nil {
		return nil, revert(err)
	}

	msgs, err = o.st.UpsertMessages(ctx, msgs)
	if err != nil {
		return nil, revert(err)
	}
	for _, m := range msgs {
		o.prom.ObserveQuality(m.QualityScore)
	}

	c.Status = models.StatusGenerationComplete
	if err := o.st.UpdateCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("store campaign: %w", err)
	}
	SortByQuality(msgs)
	if all, err := o.st.ListMessages(ctx, c.ID); err == nil {
		o.cache.put(c.ID, Working{Campaign: c, Leads: leads, Messages: all})
	}
	log.Info("generation complete", slog.Int("messages", len(msgs)))
	return msgs, nil
}

func (o *Orchestrator) draft(ctx context.Context, lead models.Lead, brief agents.Brief, refine bool) (string, int, error) {
	if refine && o.refiner != nil {
		r, err := o.refiner.Refine(ctx, lead, brief, o.opts.Refine)
		if err != nil {
			return "", 0, err
		}
		return r.Content, r.Scores.Overall, nil
	}
	content, err := o.writer.Write(ctx, lead, brief)
	if err != nil {
		return "", 0, err
	}
	if o.eval == nil {
		return content, 0, nil
	}
	scores, err := o.eval.Evaluate(ctx, content, lead, brief.ProductService)
	if err != nil {
		return "", 0, err
	}
	return content, scores.Overall, nil
}

// Restore rebuilds the working set of a non-completed campaign from the store. It never writes
// to the store. Messages are included once generation has completed.
func (o *Orchestrator) Restore(ctx context.Context, id string) (Working, error) {
	c, err := o.load(ctx, id)
	if err != nil {
		return Working{}, err
	}
	if c.Status.Terminal() {
		return Working{}, fmt.Errorf("campaign %s: %w", id, ErrCompleted)
	}
	leads, err := decodeSnapshot(c)
	if err != nil {
		return Working{}, err
	}
	w := Working{Campaign: c, Leads: leads, Messages: []models.Message{}}
	if c.Status == models.StatusGenerationComplete {
		if w.Messages, err = o.st.ListMessages(ctx, id); err != nil {
			return Working{}, err
		}
	}
	o.cache.put(id, w)
	return w, nil
}

// Working returns the cached working set, restoring it from the store on a miss.
func (o *Orchestrator) Working(ctx context.Context, id string) (Working, error) {
	if w, ok := o.cache.get(id); ok {
		return w, nil
	}
	return o.Restore(ctx, id)
}

// Save marks the campaign completed, drops its snapshot and replaces its messages. A campaign
// that does not exist yet is created already completed.
func (o *Orchestrator) Save(ctx context.Context, req SaveRequest) (err error) {
	defer func() { o.prom.Stage("save", err) }()

	if req.CampaignID == "" {
		return fmt.Errorf("campaign_id is required: %w", ErrInvalid)
	}
	if req.LeadsFound < 0 || req.LeadsSelected < 0 || req.LeadsSelected > req.LeadsFound {
		return fmt.Errorf("leads_selected must be between 0 and leads_found: %w", ErrInvalid)
	}

	c, err := o.st.GetCampaign(ctx, req.CampaignID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c = models.Campaign{
			ID:             req.CampaignID,
			ProductService: req.ProductService,
			Area:           req.Area,
			Context:        req.Context,
			Angle:          req.Angle,
			MaxLeads:       req.MaxLeads,
			CreatedAt:      o.now(),
		}
	case err != nil:
		return err
	case c.Status.Terminal():
		return fmt.Errorf("campaign %s: %w", c.ID, ErrCompleted)
	}
	c.Status = models.StatusCompleted
	c.LeadsFound = req.LeadsFound
	c.LeadsSelected = req.LeadsSelected
	c.LeadsData = nil

	msgs := make([]models.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.CampaignID = c.ID
		m.QualityScore = models.Clamp(m.QualityScore)
		m.CreatedAt = o.now()
		msgs = append(msgs, m)
	}
	if err := o.st.SaveCampaign(ctx, c, msgs); err != nil {
		return fmt.Errorf("save campaign %s: %w", c.ID, err)
	}
	o.cache.drop(c.ID)
	o.log.Info("campaign saved", slog.String("campaign_id", c.ID), slog.Int("messages", len(msgs)))
	o.exportSaved(ctx, c.ID)
	return nil
}

// exportSaved failures are logged only; the save itself is already durable.
func (o *Orchestrator) exportSaved(ctx context.Context, id string) {
	if o.export == nil {
		return
	}
	d, err := o.Campaign(ctx, id)
	if err == nil {
		err = o.export.Export(ctx, d)
	}
	o.prom.Stage("export", err)
	if err != nil {
		o.log.Warn("export failed", slog.String("campaign_id", id), slog.String("err", err.Error()))
	}
}

// Campaign returns a stored campaign with its messages, best quality first.
func (o *Orchestrator) Campaign(ctx context.Context, id string) (models.CampaignDetail, error) {
	c, err := o.load(ctx, id)
	if err != nil {
		return models.CampaignDetail{}, err
	}
	msgs, err := o.st.ListMessages(ctx, id)
	if err != nil {
		return models.CampaignDetail{}, err
	}
	return models.CampaignDetail{Campaign: c, Messages: msgs}, nil
}

func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	err := o.st.DeleteCampaign(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	o.cache.drop(id)
	return nil
}

// Profile returns the sender profile, or the default sender when none was stored.
func (o *Orchestrator) Profile(ctx context.Context) (models.Profile, error) {
	p, err := o.st.GetProfile(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return models.Profile{CompanyName: o.opts.DefaultSender, Services: []string{}}, nil
	}
	if err != nil {
		return models.Profile{}, err
	}
	if p.CompanyName == "" {
		p.CompanyName = o.opts.DefaultSender
	}
	return p, nil
}

func (o *Orchestrator) UpdateProfile(ctx context.Context, u ProfileUpdate) (models.Profile, error) {
	p, err := o.st.GetProfile(ctx)
	if errors.Is(err, store.ErrNotFound) {
		p = models.Profile{CompanyName: o.opts.DefaultSender}
	} else if err != nil {
		return models.Profile{}, err
	}
	if u.CompanyName != nil {
		p.CompanyName = strings.TrimSpace(*u.CompanyName)
	}
	if u.Services != nil {
		p.Services = u.Services
	}
	p.UpdatedAt = o.now()
	p, err = o.st.PutProfile(ctx, p)
	if err != nil {
		return models.Profile{}, err
	}
	if p.CompanyName == "" {
		p.CompanyName = o.opts.DefaultSender
	}
	return p, nil
}

func (o *Orchestrator) sender(ctx context.Context) string {
	p, err := o.Profile(ctx)
	if err != nil {
		o.log.Warn("profile lookup failed", slog.String("err", err.Error()))
		return o.opts.DefaultSender
	}
	return p.CompanyName
}

func decodeSnapshot(c models.Campaign) ([]models.Lead, error) {
	if c.LeadsData == nil || strings.TrimSpace(*c.LeadsData) == "" {
		return nil, fmt.Errorf("campaign %s: %w", c.ID, ErrSnapshotMissing)
	}
	var leads []models.Lead
	if err := json.Unmarshal([]byte(*c.LeadsData), &leads); err != nil {
		return nil, fmt.Errorf("decode snapshot of campaign %s: %w", c.ID, err)
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	return leads, nil
}

// selectLeads keeps snapshot order and ignores ids that are not in the snapshot.
func selectLeads(leads []models.Lead, ids []string) []models.Lead {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []models.Lead
	for _, l := range leads {
		if _, ok := want[l.ID]; ok {
			out = append(out, l)
		}
	}
	return out
}

// SortByQuality orders messages best first, keeping input order on ties.
func SortByQuality(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].QualityScore > msgs[j].QualityScore })
}

// AverageQuality is the mean quality score rounded to two decimals, 0 for no messages.
func AverageQuality(msgs []models.Message) float64 {
	if len(msgs) == 0 {
		return 0
	}
	total := 0
	for _, m := range msgs {
		total += m.QualityScore
	}
	return math.Round(float64(total)/float64(len(msgs))*100) / 100
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
