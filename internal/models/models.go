package models

import "time"

type Status string

const (
	StatusResearchInProgress   Status = "research-in-progress"
	StatusResearchComplete     Status = "research-complete"
	StatusGenerationInProgress Status = "generation-in-progress"
	StatusGenerationComplete   Status = "generation-complete"
	StatusCompleted            Status = "completed"
)

// Terminal reports whether no further stage operation may run against the campaign.
func (s Status) Terminal() bool { return s == StatusCompleted }

func (s Status) Valid() bool {
	switch s {
	case StatusResearchInProgress, StatusResearchComplete, StatusGenerationInProgress,
		StatusGenerationComplete, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus accepts the wire value; anything unknown maps to research-in-progress.
func ParseStatus(s string) Status {
	st := Status(s)
	if st.Valid() {
		return st
	}
	return StatusResearchInProgress
}

type Criteria struct {
	CampaignID     string `json:"campaign_id,omitempty"`
	ProductService string `json:"product_service"`
	Area           string `json:"area"`
	Context        string `json:"context,omitempty"`
	Angle          string `json:"angle,omitempty"`
	MaxLeads       int    `json:"max_leads"`
}

type Campaign struct {
	ID             string    `json:"id"`
	ProductService string    `json:"product_service"`
	Area           string    `json:"area"`
	Context        string    `json:"context,omitempty"`
	Angle          string    `json:"angle,omitempty"`
	MaxLeads       int       `json:"max_leads"`
	Status         Status    `json:"status"`
	LeadsFound     int       `json:"leads_found"`
	LeadsSelected  int       `json:"leads_selected"`
	LeadsData      *string   `json:"-"` // JSON snapshot of []Lead, nil once completed
	CreatedAt      time.Time `json:"created_at"`
}

type Lead struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Industry        string `json:"industry"`
	Location        string `json:"location"`
	Description     string `json:"description"`
	Website         string `json:"website,omitempty"`
	Employees       string `json:"employees,omitempty"`
	RelevanceReason string `json:"relevance_reason,omitempty"`
	RecentNews      string `json:"recent_news,omitempty"`
	Verified        *bool  `json:"verified,omitempty"`
	DataSource      string `json:"data_source,omitempty"`
}

type Message struct {
	ID           string    `json:"id"`
	CampaignID   string    `json:"campaign_id,omitempty"`
	CompanyName  string    `json:"company_name"`
	Industry     string    `json:"industry"`
	Location     string    `json:"location"`
	Content      string    `json:"content"`
	QualityScore int       `json:"quality_score"`
	CreatedAt    time.Time `json:"created_at"`
}

type Profile struct {
	CompanyName string    `json:"company_name"`
	Services    []string  `json:"services"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CampaignDetail struct {
	Campaign
	Messages []Message `json:"messages"`
}

type RecentActivity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

type DashboardStats struct {
	TotalCampaigns  int `json:"total_campaigns"`
	TotalLeadsFound int `json:"total_leads_found"`
}

type Dashboard struct {
	Stats          DashboardStats   `json:"stats"`
	RecentActivity []RecentActivity `json:"recent_activity"`
}
