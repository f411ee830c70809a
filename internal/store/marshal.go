package store

import (
	"encoding/json"
	"fmt"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

// marshalPayload converts a kind-specific payload into the canonical JSON
// text stored in the payload column (§6.1). Building an explicit
// map[string]any first — rather than relying on encoding/json's struct
// field order — is what guarantees the sorted-key, canonical-float
// encoding CanonicalJSON promises regardless of how the Go struct fields
// happen to be declared.
func marshalPayload(kind domain.EventKind, p domain.Payload) (string, error) {
	m, err := payloadToMap(kind, p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	data, err := domain.CanonicalJSON(m)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

func payloadToMap(kind domain.EventKind, p domain.Payload) (map[string]any, error) {
	switch kind {
	case domain.KindRunStarted:
		if p.RunStarted == nil {
			return nil, fmt.Errorf("run_started payload missing")
		}
		return map[string]any{
			"run_id":       p.RunStarted.RunID,
			"started_tick": int64(p.RunStarted.StartedTick),
		}, nil

	case domain.KindRunConfig:
		if p.RunConfig == nil {
			return nil, fmt.Errorf("run_config payload missing")
		}
		c := p.RunConfig
		return map[string]any{
			"run_id":            c.RunID,
			"seed":              int64(c.Seed),
			"agents":            int64(c.Agents),
			"ranking_algorithm": string(c.RankingAlgorithm),
			"k":                 int64(c.K),
			"ticks":             int64(c.Ticks),
		}, nil

	case domain.KindAdvanceTick:
		if p.AdvanceTick == nil {
			return nil, fmt.Errorf("advance_tick payload missing")
		}
		return map[string]any{"new_tick": int64(p.AdvanceTick.NewTick)}, nil

	case domain.KindTimelineServed:
		if p.TimelineServed == nil {
			return nil, fmt.Errorf("timeline_served payload missing")
		}
		return timelineServedToMap(p.TimelineServed), nil

	case domain.KindAction:
		if p.Action == nil {
			return nil, fmt.Errorf("action payload missing")
		}
		return actionToMap(p.Action), nil

	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}

func timelineServedToMap(t *domain.TimelineServedPayload) map[string]any {
	items := make([]any, len(t.Items))
	for i, item := range t.Items {
		features := make(map[string]any, len(item.Features))
		for k, v := range item.Features {
			features[k] = v
		}
		items[i] = map[string]any{
			"post_id":  item.PostID,
			"position": int64(item.Position),
			"score":    item.Score,
			"features": features,
		}
	}
	return map[string]any{
		"timeline_id":     t.TimelineID,
		"user_id":         t.UserID,
		"k":               int64(t.K),
		"algorithm":       string(t.Algorithm),
		"ranking_version": int64(t.RankingVersion),
		"seed":            int64(t.Seed),
		"items":           items,
	}
}

func actionToMap(a *domain.ActionPayload) map[string]any {
	m := map[string]any{
		"actor_id":    a.ActorID,
		"action_type": string(a.ActionType),
		"status":      string(a.Status),
	}
	if a.TimelineID != nil {
		m["timeline_id"] = *a.TimelineID
	}
	if a.Position != nil {
		m["position"] = int64(*a.Position)
	}
	if a.TargetPostID != nil {
		m["target_post_id"] = *a.TargetPostID
	}
	if a.TargetUserID != nil {
		m["target_user_id"] = *a.TargetUserID
	}
	if a.Body != nil {
		m["body"] = *a.Body
	}
	if a.Reason != nil {
		m["reason"] = string(*a.Reason)
	}
	return m
}

// unmarshalPayload parses the canonical JSON payload column back into a
// typed Payload. The canonical encoding is a valid JSON subset, so
// encoding/json's tag-driven decoding works regardless of the key order
// CanonicalJSON produced.
func unmarshalPayload(kind domain.EventKind, data string) (domain.Payload, error) {
	switch kind {
	case domain.KindRunStarted:
		var v domain.RunStartedPayload
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return domain.Payload{}, fmt.Errorf("unmarshal run_started: %w", err)
		}
		return domain.Payload{RunStarted: &v}, nil

	case domain.KindRunConfig:
		var v domain.RunConfigPayload
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return domain.Payload{}, fmt.Errorf("unmarshal run_config: %w", err)
		}
		return domain.Payload{RunConfig: &v}, nil

	case domain.KindAdvanceTick:
		var v domain.AdvanceTickPayload
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return domain.Payload{}, fmt.Errorf("unmarshal advance_tick: %w", err)
		}
		return domain.Payload{AdvanceTick: &v}, nil

	case domain.KindTimelineServed:
		var v domain.TimelineServedPayload
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return domain.Payload{}, fmt.Errorf("unmarshal timeline_served: %w", err)
		}
		return domain.Payload{TimelineServed: &v}, nil

	case domain.KindAction:
		var v domain.ActionPayload
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return domain.Payload{}, fmt.Errorf("unmarshal action: %w", err)
		}
		return domain.Payload{Action: &v}, nil

	default:
		return domain.Payload{}, fmt.Errorf("unknown event kind %q", kind)
	}
}
