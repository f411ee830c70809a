// Package simagent provides a minimal reference agent policy: a stub
// decision procedure driven entirely by configured probabilities, used
// only by the simulate CLI command to generate candidate actions. The
// core admission/timeline/reducer components know nothing about agents —
// they only see the op_id-tagged actions this package produces (§1:
// "the core sees agents only as a source of candidate actions").
package simagent

import (
	"fmt"
	"math/rand"

	"github.com/dcrew44/llm-social-network/internal/admission"
	"github.com/dcrew44/llm-social-network/internal/domain"
	"github.com/dcrew44/llm-social-network/internal/timeline"
)

// Intent is the closed set of things an agent's turn can decide to do.
type Intent string

const (
	IntentIdle    Intent = "idle"
	IntentPost    Intent = "post"
	IntentLike    Intent = "like"
	IntentComment Intent = "comment"
	IntentFollow  Intent = "follow"
)

// Config configures a single agent's stub policy. Probabilities need not
// sum to 1; whatever residual mass is left over after each probability is
// consumed in order falls through to IntentIdle for that decision.
type Config struct {
	AgentID            string
	PostProbability    float64
	LikeProbability    float64
	CommentProbability float64
	FollowProbability  float64
	MaxActionsPerTick  int
	Seed               int64
}

// DefaultConfig mirrors the reference policy's defaults.
func DefaultConfig(agentID string, seed int64) Config {
	return Config{
		AgentID:            agentID,
		PostProbability:    0.1,
		LikeProbability:    0.3,
		CommentProbability: 0.1,
		FollowProbability:  0.05,
		MaxActionsPerTick:  3,
		Seed:               seed,
	}
}

// Agent is a stateful holder of one agent's RNG and post/comment tallies,
// used only to vary composed body text; it carries no projection state of
// its own.
type Agent struct {
	config        Config
	rng           *rand.Rand
	totalPosts    int
	totalComments int
	actionSeq     int64
}

func New(config Config) *Agent {
	return &Agent{config: config, rng: rand.New(rand.NewSource(config.Seed))}
}

// Plan decides the next intent given the current timeline view, matching
// the reference policy's chained-probability decision: post, then like,
// then comment, then follow, each consuming a slice of the random draw
// before falling through to idle.
func (a *Agent) Plan(items []timeline.Result) Intent {
	r := a.rng.Float64()

	if r < a.config.PostProbability {
		return IntentPost
	}
	r -= a.config.PostProbability

	haveItems := len(items) > 0 && len(items[0].Items) > 0
	if haveItems {
		if r < a.config.LikeProbability {
			return IntentLike
		}
		r -= a.config.LikeProbability

		if r < a.config.CommentProbability {
			return IntentComment
		}
		r -= a.config.CommentProbability

		if r < a.config.FollowProbability {
			return IntentFollow
		}
	}
	return IntentIdle
}

// selectTarget picks an item from the served timeline to act on, biased
// toward the top of the ranking the way the reference policy's
// randint(0, min(len-1, 4)) does.
func (a *Agent) selectTarget(tl timeline.Result) (idx int, ok bool) {
	if len(tl.Items) == 0 {
		return 0, false
	}
	bound := len(tl.Items) - 1
	if bound > 4 {
		bound = 4
	}
	return a.rng.Intn(bound + 1), true
}

// Turn runs one agent's full tick over an already-served timeline: plan,
// compose, and submit actions through the injected act closure until
// max_actions_per_tick is reached, the agent goes idle, or an action
// cannot be submitted. It does not call the Timeline Service itself; the
// caller serves tl and supplies act.
func (a *Agent) Turn(act func(admission.Request) (*domain.ActionPayload, error), tl timeline.Result, tick int64, otherUserID string) []*domain.ActionPayload {
	var results []*domain.ActionPayload
	actionsThisTick := 0

	for actionsThisTick < a.config.MaxActionsPerTick {
		intent := a.Plan([]timeline.Result{tl})
		if intent == IntentIdle {
			break
		}
		outcome := a.executeIntent(act, tl, tick, intent, otherUserID)
		if outcome == nil {
			break
		}
		results = append(results, outcome)
		actionsThisTick++
	}
	return results
}

// opIDFor derives a deterministic op_id from the actor, tick, and this
// agent's running action counter, so that identical simulation configs
// (same seed, agents, ticks, k, ranking) always submit the same op_ids in
// the same order and therefore produce a bit-identical event log (§1, §5).
func (a *Agent) opIDFor(tick int64) string {
	opID := fmt.Sprintf("%s:%d:%d", a.config.AgentID, tick, a.actionSeq)
	a.actionSeq++
	return opID
}

func (a *Agent) executeIntent(act func(admission.Request) (*domain.ActionPayload, error), tl timeline.Result, tick int64, intent Intent, otherUserID string) *domain.ActionPayload {
	opID := a.opIDFor(tick)

	switch intent {
	case IntentPost:
		a.totalPosts++
		body := fmt.Sprintf("Post #%d from %s at tick %d", a.totalPosts, a.config.AgentID, tick)
		outcome, err := act(admission.Request{OpID: opID, ActorID: a.config.AgentID, ActionType: domain.ActionPost, Body: &body})
		if err != nil {
			return nil
		}
		return outcome

	case IntentFollow:
		outcome, err := act(admission.Request{OpID: opID, ActorID: a.config.AgentID, ActionType: domain.ActionFollow, TargetUserID: &otherUserID})
		if err != nil {
			return nil
		}
		return outcome
	}

	idx, ok := a.selectTarget(tl)
	if !ok {
		return nil
	}
	target := tl.Items[idx]

	switch intent {
	case IntentLike:
		outcome, err := act(admission.Request{
			OpID: opID, ActorID: a.config.AgentID, ActionType: domain.ActionLike,
			TimelineID: &tl.TimelineID, Position: &idx, TargetPostID: &target.PostID,
		})
		if err != nil {
			return nil
		}
		return outcome

	case IntentComment:
		a.totalComments++
		body := fmt.Sprintf("Comment #%d on %s by %s", a.totalComments, target.PostID, a.config.AgentID)
		outcome, err := act(admission.Request{
			OpID: opID, ActorID: a.config.AgentID, ActionType: domain.ActionComment,
			TimelineID: &tl.TimelineID, Position: &idx, TargetPostID: &target.PostID, Body: &body,
		})
		if err != nil {
			return nil
		}
		return outcome
	}
	return nil
}
