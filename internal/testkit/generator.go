// Package testkit generates deterministic run histories for tests and local
// development, and provides an in-memory RunSource.
package testkit

import (
	"fmt"
	"math/rand"
	"time"

	"flakewatch/domain/run"
)

// GeneratorConfig configures the synthetic run-history generator
type GeneratorConfig struct {
	Entities    int       `json:"entities"`
	RunsPerDay  int       `json:"runs_per_day"`
	BaseRate    float64   `json:"base_rate"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Seed        int64     `json:"seed"`
	ShiftEntity string    `json:"shift_entity"`
	ShiftRate   float64   `json:"shift_rate"`
	ShiftStart  time.Time `json:"shift_start"`
}

// DefaultGeneratorConfig returns a six-month history of stable entities plus
// one whose failure rate jumps halfway through.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Entities:    5,
		RunsPerDay:  4,
		BaseRate:    0.05,
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Seed:        42,
		ShiftEntity: "entity-1",
		ShiftRate:   0.40,
		ShiftStart:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Generator produces synthetic run outcomes
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a generator seeded from the config
func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate produces the full outcome history
func (g *Generator) Generate() []run.Outcome {
	var outcomes []run.Outcome
	for e := 0; e < g.config.Entities; e++ {
		entity := fmt.Sprintf("entity-%d", e)
		for day := g.config.StartDate; !day.After(g.config.EndDate); day = day.AddDate(0, 0, 1) {
			rate := g.config.BaseRate
			if entity == g.config.ShiftEntity && !day.Before(g.config.ShiftStart) {
				rate = g.config.ShiftRate
			}
			for r := 0; r < g.config.RunsPerDay; r++ {
				outcomes = append(outcomes, run.Outcome{
					EntityID: entity,
					Snapshot: day.Add(time.Duration(r) * 6 * time.Hour),
					Failed:   g.rng.Float64() < rate,
				})
			}
		}
	}
	return outcomes
}
