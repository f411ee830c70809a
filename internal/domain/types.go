// Package domain defines the closed set of event and action variants that
// make up the simulator's event-sourced kernel: stable on-disk shapes,
// canonical encoding, content-derived identifiers, and the error kinds
// admission and replay produce.
package domain

// EventKind is the closed tag set for log entries. Adding a variant is a
// schema-version bump; nothing in this package dispatches dynamically on
// an unrecognized kind — unknown kinds are rejected, never skipped.
type EventKind string

const (
	KindRunStarted     EventKind = "run_started"
	KindRunConfig      EventKind = "run_config"
	KindAdvanceTick    EventKind = "advance_tick"
	KindTimelineServed EventKind = "timeline_served"
	KindAction         EventKind = "action"
)

// Valid reports whether k is one of the closed set of event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindRunStarted, KindRunConfig, KindAdvanceTick, KindTimelineServed, KindAction:
		return true
	}
	return false
}

// ActionType is the closed set of state-changing actions an agent may
// submit through Act.
type ActionType string

const (
	ActionPost     ActionType = "post"
	ActionComment  ActionType = "comment"
	ActionLike     ActionType = "like"
	ActionUnlike   ActionType = "unlike"
	ActionFollow   ActionType = "follow"
	ActionUnfollow ActionType = "unfollow"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionPost, ActionComment, ActionLike, ActionUnlike, ActionFollow, ActionUnfollow:
		return true
	}
	return false
}

// RequiresExposure reports whether an action type must reference a prior
// timeline_served item (§4.2).
func (a ActionType) RequiresExposure() bool {
	switch a {
	case ActionComment, ActionLike, ActionUnlike:
		return true
	}
	return false
}

// RequiresTargetUser reports whether an action type targets another user
// rather than a post.
func (a ActionType) RequiresTargetUser() bool {
	return a == ActionFollow || a == ActionUnfollow
}

// ActionStatus is the outcome recorded on an action event.
type ActionStatus string

const (
	StatusAccepted ActionStatus = "accepted"
	StatusRejected ActionStatus = "rejected"
)

// RankingAlgorithm is the closed set of ranking algorithms the Ranker
// supports (§4.4).
type RankingAlgorithm string

const (
	AlgorithmNew RankingAlgorithm = "new"
	AlgorithmTop RankingAlgorithm = "top"
	AlgorithmHot RankingAlgorithm = "hot"
)

func (a RankingAlgorithm) Valid() bool {
	switch a {
	case AlgorithmNew, AlgorithmTop, AlgorithmHot:
		return true
	}
	return false
}

// RankingVersion is bumped whenever scoring semantics change. Live
// projections never re-score historical timelines on a version bump
// (§9 open question) — the recorded per-item features are the durable
// record.
const RankingVersion = 1

// Event is an immutable log entry as read back from the Store. Seq is
// assigned by the Store at append and is never set by callers.
type Event struct {
	Seq     int64     `json:"seq"`
	Tick    int64     `json:"tick"`
	Kind    EventKind `json:"kind"`
	OpID    *string   `json:"op_id,omitempty"` // only present on action events
	Payload Payload   `json:"payload"`
}

// Payload is the kind-specific structured data carried by an Event. Only
// one field is populated, matching Kind.
type Payload struct {
	RunStarted     *RunStartedPayload     `json:"run_started,omitempty"`
	RunConfig      *RunConfigPayload      `json:"run_config,omitempty"`
	AdvanceTick    *AdvanceTickPayload    `json:"advance_tick,omitempty"`
	TimelineServed *TimelineServedPayload `json:"timeline_served,omitempty"`
	Action         *ActionPayload         `json:"action,omitempty"`
}

type RunStartedPayload struct {
	RunID       string `json:"run_id"`
	StartedTick int64  `json:"started_tick"`
}

type RunConfigPayload struct {
	RunID            string           `json:"run_id"`
	Seed             int64            `json:"seed"`
	Agents           int              `json:"agents"`
	RankingAlgorithm RankingAlgorithm `json:"ranking_algorithm"`
	K                int              `json:"k"`
	Ticks            int              `json:"ticks"`
}

type AdvanceTickPayload struct {
	NewTick int64 `json:"new_tick"`
}

// TimelineItem is a single ranked item recorded on a timeline_served
// event. Position is 0-based and equals the item's index (§3.2).
type TimelineItem struct {
	PostID   string             `json:"post_id"`
	Position int                `json:"position"`
	Score    float64            `json:"score"`
	Features map[string]float64 `json:"features"`
}

type TimelineServedPayload struct {
	TimelineID     string           `json:"timeline_id"`
	UserID         string           `json:"user_id"`
	K              int              `json:"k"`
	Algorithm      RankingAlgorithm `json:"algorithm"`
	RankingVersion int              `json:"ranking_version"`
	Seed           int64            `json:"seed"`
	Items          []TimelineItem   `json:"items"`
}

// ActionPayload is the kind-specific data on an action event. Fields are
// optional per action_type per the constraint table in §4.2.
type ActionPayload struct {
	ActorID      string       `json:"actor_id"`
	ActionType   ActionType   `json:"action_type"`
	TimelineID   *string      `json:"timeline_id,omitempty"`
	Position     *int         `json:"position,omitempty"`
	TargetPostID *string      `json:"target_post_id,omitempty"`
	TargetUserID *string      `json:"target_user_id,omitempty"`
	Body         *string      `json:"body,omitempty"`
	Status       ActionStatus `json:"status"`
	Reason       *RejectionCode `json:"reason,omitempty"`
}
