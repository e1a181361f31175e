package models

import (
	"time"

	"gorm.io/datatypes"
)

// Provenance tags written to PlanContent.Meta.Source.
const (
	SourceOpenAI = "openai"
	SourceStub   = "stub"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type TimeBlock struct {
	Time        string   `json:"time"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
}

type Meta struct {
	Source  string `json:"source"`
	Version int    `json:"version"`
}

// PlanContent is the structured schedule payload stored in plans.content_json.
// Blocks are in display (chronological) order.
type PlanContent struct {
	GeneratedAt string      `json:"generated_at"`
	Meta        Meta        `json:"meta"`
	Day         string      `json:"day"`
	Blocks      []TimeBlock `json:"blocks"`
}

// Plan is a persisted, generated daily schedule. Rows are written once by the
// quota-gated insert and never updated by the server.
type Plan struct {
	ID          string                          `gorm:"primaryKey;type:text" json:"id"`
	UserID      string                          `gorm:"type:text;not null;index" json:"user_id"`
	Title       string                          `gorm:"type:text;not null" json:"title"`
	ContentJSON datatypes.JSONType[PlanContent] `gorm:"column:content_json;not null" json:"content_json"`
	Model       *string                         `gorm:"type:text" json:"model"`
	TokensIn    *int                            `json:"tokens_in"`
	TokensOut   *int                            `json:"tokens_out"`
	CreatedAt   time.Time                       `gorm:"not null" json:"created_at"`
}

func (Plan) TableName() string { return "plans" }

// NewPlan is the argument set of consume_request_and_insert_plan.
type NewPlan struct {
	UserID    string
	Title     string
	Content   PlanContent
	Model     *string
	TokensIn  *int
	TokensOut *int
}
