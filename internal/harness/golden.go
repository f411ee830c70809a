// Package harness runs the scenario suite from the testable-properties
// list against a real Store: each scenario drives admission, the
// timeline service, and the clock exactly as the CLI driver would, then
// asserts the resulting projection or log shape.
package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

// ScenarioSnapshot is the canonical-JSON-comparable shape of a
// scenario's recorded outcome. Fields is the scenario-specific payload
// under comparison, e.g. a rejected action's recorded fields.
type ScenarioSnapshot struct {
	Name   string
	Fields map[string]any
}

func (s ScenarioSnapshot) toCanonicalMap() map[string]any {
	result := make(map[string]any, len(s.Fields)+1)
	for k, v := range s.Fields {
		result[k] = v
	}
	result["scenario"] = s.Name
	return result
}

// AssertGolden compares a scenario's recorded outcome fields against its
// golden fixture under testdata/golden/<name>.golden.
func AssertGolden(t *testing.T, name string, fields map[string]any) {
	t.Helper()

	snapshot := ScenarioSnapshot{Name: name, Fields: fields}
	data, err := domain.CanonicalJSON(snapshot.toCanonicalMap())
	if err != nil {
		t.Fatalf("marshal scenario snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

// actionFields flattens the comparable subset of a recorded action
// outcome into the map shape AssertGolden expects.
func actionFields(a *domain.ActionPayload) map[string]any {
	m := map[string]any{
		"actor_id":    a.ActorID,
		"action_type": string(a.ActionType),
		"status":      string(a.Status),
	}
	if a.Body != nil {
		m["body"] = *a.Body
	}
	if a.Reason != nil {
		m["reason"] = string(*a.Reason)
	}
	if a.TargetPostID != nil {
		m["target_post_id"] = *a.TargetPostID
	}
	if a.TargetUserID != nil {
		m["target_user_id"] = *a.TargetUserID
	}
	if a.Position != nil {
		m["position"] = int64(*a.Position)
	}
	return m
}
