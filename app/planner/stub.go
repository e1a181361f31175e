package planner

import (
	"context"

	"example/plan-api/app/models"
	"example/plan-api/app/schema"
)

const stubTitle = "Daily Plan (stub)"

var stubBlocks = []models.TimeBlock{
	{Time: "06:00–06:30", Title: "Fajr & morning routine"},
	{Time: "07:00–08:00", Title: "Gym: incline walk 15 / 3.5 mph"},
	{Time: "09:00–12:00", Title: "Deep work: MuhsinAI UI polish"},
	{Time: "12:00–13:00", Title: "Dhuhr + lunch"},
	{Time: "13:00–15:00", Title: "Classes / review notes"},
	{Time: "15:30–16:00", Title: "Asr & break"},
	{Time: "16:00–18:00", Title: "Networking outreach (2 messages)"},
	{Time: "18:00–18:30", Title: "Maghrib"},
	{Time: "19:00–21:00", Title: "LeetCode + project chores"},
	{Time: "21:00–21:15", Title: "Isha"},
	{Time: "22:30", Title: "Wind down & sleep"},
}

// StubGenerator returns a fixed template without calling an engine. The
// prompt is ignored.
type StubGenerator struct {
	validator *schema.Validator
}

func NewStubGenerator(validator *schema.Validator) *StubGenerator {
	return &StubGenerator{validator: validator}
}

func (g *StubGenerator) Generate(_ context.Context, _ string) (Draft, error) {
	blocks := make([]models.TimeBlock, len(stubBlocks))
	copy(blocks, stubBlocks)
	content, err := g.validator.Content(models.PlanContent{Day: "Today", Blocks: blocks}, models.SourceStub)
	if err != nil {
		return Draft{}, err
	}
	model := models.SourceStub
	return Draft{Title: stubTitle, Content: content, Model: &model}, nil
}
