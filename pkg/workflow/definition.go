// Package workflow implements the DAG-based multi-agent workflow
// orchestrator: WorkflowDefinition/Stage templates per workflow type,
// dependency validation, a concurrent-fan-out executor, and a
// pause/resume/stop control surface with artifact accumulation.
package workflow

import (
	"fmt"
	"time"
)

// Type is the kind of workflow a definition was generated for.
type Type string

const (
	TypeGuidedAssessment         Type = "GuidedAssessment"
	TypeTargetedAnalysis         Type = "TargetedAnalysis"
	TypeExploitationVerification Type = "ExploitationVerification"
	TypeRemediationPlanning      Type = "RemediationPlanning"
	TypePolicyCompliance         Type = "PolicyCompliance"
	TypeComprehensive            Type = "Comprehensive"
)

// Stage is one node of a workflow's dependency DAG.
type Stage struct {
	Name                string
	Agent               string   // single-agent dispatch; empty when Agents is set
	Agents              []string // multi-agent stage; requires CommunicationPattern
	Description         string
	CommunicationPattern string
	Dependencies        []string
}

// Definition is an immutable workflow template.
type Definition struct {
	ID                     string
	Type                   Type
	Name                   string
	Description            string
	TargetID               string
	TargetType             string
	Parameters             map[string]any
	Agents                 []string
	Stages                 []Stage
	CommunicationPatterns  []string
	CreatedAt              time.Time
}

// validate checks stage-name uniqueness, dependency existence, and the
// absence of dependency cycles (a topological order must exist).
func (d *Definition) validate() error {
	seen := make(map[string]bool, len(d.Stages))
	for _, s := range d.Stages {
		if seen[s.Name] {
			return fmt.Errorf("workflow: duplicate stage name %q", s.Name)
		}
		seen[s.Name] = true
		if s.Agent == "" && len(s.Agents) == 0 {
			return fmt.Errorf("workflow: stage %q names no agent", s.Name)
		}
		if len(s.Agents) >= 2 && s.CommunicationPattern == "" {
			return fmt.Errorf("workflow: multi-agent stage %q requires a communication pattern", s.Name)
		}
	}
	for _, s := range d.Stages {
		for _, dep := range s.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("workflow: stage %q depends on unknown stage %q", s.Name, dep)
			}
		}
	}
	if _, err := topologicalOrder(d.Stages); err != nil {
		return err
	}
	return nil
}

// topologicalOrder returns stage indices in an order where every stage's
// dependencies precede it, or an error if the dependency graph has a cycle.
func topologicalOrder(stages []Stage) ([]int, error) {
	nameToIdx := make(map[string]int, len(stages))
	for i, s := range stages {
		nameToIdx[s.Name] = i
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(stages))
	order := make([]int, 0, len(stages))

	var visit func(i int) error
	visit = func(i int) error {
		switch color[i] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("workflow: dependency cycle involving stage %q", stages[i].Name)
		}
		color[i] = gray
		for _, dep := range stages[i].Dependencies {
			if err := visit(nameToIdx[dep]); err != nil {
				return err
			}
		}
		color[i] = black
		order = append(order, i)
		return nil
	}

	for i := range stages {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}
