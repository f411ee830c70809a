// Package admission implements Action Admission (§4.6): the pipeline that
// ties every state-changing action to idempotency, schema validity, a
// prior exposure, and action-specific semantic rules, then records the
// outcome — accepted or rejected — as a single atomic transaction.
package admission

import (
	"context"
	"log/slog"

	"github.com/dcrew44/llm-social-network/internal/domain"
	"github.com/dcrew44/llm-social-network/internal/store"
)

// Request is the caller-supplied shape of act() (§4.6). Optional fields
// are nil when the action type does not carry them.
type Request struct {
	OpID         string
	ActorID      string
	ActionType   domain.ActionType
	TimelineID   *string
	Position     *int
	TargetPostID *string
	TargetUserID *string
	Body         *string
}

// Act runs the five-step admission pipeline and returns the recorded
// outcome. A resubmitted op_id returns the original outcome verbatim
// without appending a new event (§4.6 step 1). The returned error is
// non-nil only for fatal store failures — rejections are a normal,
// successful return with Status=StatusRejected.
func Act(ctx context.Context, s *store.Store, tick int64, req Request) (*domain.ActionPayload, error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if prior, err := tx.LookupByOpID(ctx, req.OpID); err != nil {
		return nil, err
	} else if prior != nil {
		return prior.Payload.Action, nil
	}

	outcome := &domain.ActionPayload{
		ActorID:      req.ActorID,
		ActionType:   req.ActionType,
		TimelineID:   req.TimelineID,
		Position:     req.Position,
		TargetPostID: req.TargetPostID,
		TargetUserID: req.TargetUserID,
		Body:         req.Body,
	}

	if reason := validateSchema(req); reason != nil {
		outcome.Status = domain.StatusRejected
		outcome.Reason = reason
	} else if reason, err := checkExposure(ctx, tx, req); err != nil {
		return nil, err
	} else if reason != nil {
		outcome.Status = domain.StatusRejected
		outcome.Reason = reason
	} else if reason, err := checkSemantics(ctx, tx, req); err != nil {
		return nil, err
	} else if reason != nil {
		outcome.Status = domain.StatusRejected
		outcome.Reason = reason
	} else {
		outcome.Status = domain.StatusAccepted
	}

	if outcome.Status == domain.StatusRejected {
		slog.Debug("action rejected", "op_id", req.OpID, "action_type", req.ActionType, "reason", *outcome.Reason)
	}

	ev := domain.Event{Tick: tick, Kind: domain.KindAction, OpID: &req.OpID, Payload: domain.Payload{Action: outcome}}
	if _, err := tx.Append(ctx, tick, ev.Kind, &req.OpID, ev.Payload); err != nil {
		return nil, err
	}
	if err := tx.ApplyEvent(ctx, ev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.WrapKernelError(domain.ErrCodeStore, "commit action", err)
	}
	return outcome, nil
}

func reasonPtr(r domain.RejectionCode) *domain.RejectionCode { return &r }

// validateSchema enforces the per-action_type shape rules of §4.2. It
// never inspects projection state — only the literal request shape.
func validateSchema(req Request) *domain.RejectionCode {
	if !req.ActionType.Valid() {
		return reasonPtr(domain.ReasonMalformed)
	}
	switch req.ActionType {
	case domain.ActionPost:
		if req.Body == nil || req.TimelineID != nil {
			return reasonPtr(domain.ReasonMalformed)
		}
	case domain.ActionComment:
		if req.TimelineID == nil || req.Position == nil || req.TargetPostID == nil || req.Body == nil {
			return reasonPtr(domain.ReasonMalformed)
		}
	case domain.ActionLike, domain.ActionUnlike:
		if req.TimelineID == nil || req.Position == nil || req.TargetPostID == nil {
			return reasonPtr(domain.ReasonMalformed)
		}
	case domain.ActionFollow, domain.ActionUnfollow:
		if req.TargetUserID == nil {
			return reasonPtr(domain.ReasonMalformed)
		}
	}
	return nil
}

// checkExposure is the tie-check of §4.6 step 3: comment/like/unlike must
// reference a timeline_served item actually served to this actor at the
// stated position, pointing at the stated post.
func checkExposure(ctx context.Context, tx *store.Tx, req Request) (*domain.RejectionCode, error) {
	if !req.ActionType.RequiresExposure() {
		return nil, nil
	}
	entry, found, err := tx.LookupTimelineItem(ctx, *req.TimelineID, *req.Position)
	if err != nil {
		return nil, err
	}
	if !found || entry.UserID != req.ActorID || entry.PostID != *req.TargetPostID {
		return reasonPtr(domain.ReasonOffFeed), nil
	}
	return nil, nil
}

// checkSemantics is §4.6 step 4: the action-specific business rules that
// require looking at current projection state.
func checkSemantics(ctx context.Context, tx *store.Tx, req Request) (*domain.RejectionCode, error) {
	switch req.ActionType {
	case domain.ActionLike:
		exists, err := tx.VoteExists(ctx, req.ActorID, *req.TargetPostID)
		if err != nil {
			return nil, err
		}
		if exists {
			return reasonPtr(domain.ReasonDuplicateVote), nil
		}
	case domain.ActionUnlike:
		exists, err := tx.VoteExists(ctx, req.ActorID, *req.TargetPostID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return reasonPtr(domain.ReasonNoSuchVote), nil
		}
	case domain.ActionFollow:
		if *req.TargetUserID == req.ActorID {
			return reasonPtr(domain.ReasonSelfFollow), nil
		}
		exists, err := tx.FollowExists(ctx, req.ActorID, *req.TargetUserID)
		if err != nil {
			return nil, err
		}
		if exists {
			return reasonPtr(domain.ReasonDuplicateFollow), nil
		}
	case domain.ActionUnfollow:
		exists, err := tx.FollowExists(ctx, req.ActorID, *req.TargetUserID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return reasonPtr(domain.ReasonNoSuchFollow), nil
		}
	case domain.ActionComment:
		if *req.Body == "" {
			return reasonPtr(domain.ReasonEmptyBody), nil
		}
	}
	return nil, nil
}
