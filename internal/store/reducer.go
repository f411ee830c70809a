package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

// applyEvent folds a single event into the projection tables per the
// effect table in §4.3. It is the only code path that ever writes to a
// projection table — Append alone never does, which is what makes
// replay_all's truncate-then-refold produce identical state to the
// incremental path.
func applyEvent(ctx context.Context, q dbtx, ev domain.Event) error {
	switch ev.Kind {
	case domain.KindRunStarted:
		return applyRunStarted(ctx, q, ev)
	case domain.KindRunConfig:
		return nil // metadata only; no projection row beyond what run_started already set
	case domain.KindAdvanceTick:
		return applyAdvanceTick(ctx, q, ev)
	case domain.KindTimelineServed:
		return applyTimelineServed(ctx, q, ev)
	case domain.KindAction:
		return applyAction(ctx, q, ev)
	default:
		return domain.WrapKernelError(domain.ErrCodeStore, "apply event", errUnknownKind(ev.Kind))
	}
}

type errUnknownKind domain.EventKind

func (e errUnknownKind) Error() string { return "unknown event kind: " + string(e) }

func applyRunStarted(ctx context.Context, q dbtx, ev domain.Event) error {
	p := ev.Payload.RunStarted
	_, err := q.ExecContext(ctx, `
		UPDATE kernel_state
		SET run_id = ?, current_tick = MAX(current_tick, ?)
		WHERE id = 0`,
		p.RunID, p.StartedTick,
	)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "apply run_started", err)
	}
	return nil
}

func applyAdvanceTick(ctx context.Context, q dbtx, ev domain.Event) error {
	p := ev.Payload.AdvanceTick
	_, err := q.ExecContext(ctx, `UPDATE kernel_state SET current_tick = ? WHERE id = 0`, p.NewTick)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "apply advance_tick", err)
	}
	return nil
}

func applyTimelineServed(ctx context.Context, q dbtx, ev domain.Event) error {
	p := ev.Payload.TimelineServed
	if err := ensureUser(ctx, q, p.UserID, ev.Tick); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO timelines (timeline_id, user_id, tick, algorithm, k, seed, ranking_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.TimelineID, p.UserID, ev.Tick, string(p.Algorithm), p.K, p.Seed, p.RankingVersion,
	)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "insert timeline", err)
	}
	for _, item := range p.Items {
		features, err := domain.CanonicalJSON(featuresToMap(item.Features))
		if err != nil {
			return domain.WrapKernelError(domain.ErrCodeStore, "encode timeline item features", err)
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO timeline_items (timeline_id, position, post_id, score, features_blob)
			VALUES (?, ?, ?, ?, ?)`,
			p.TimelineID, item.Position, item.PostID, item.Score, string(features),
		)
		if err != nil {
			return domain.WrapKernelError(domain.ErrCodeStore, "insert timeline item", err)
		}
	}
	return nil
}

func featuresToMap(f map[string]float64) map[string]any {
	m := make(map[string]any, len(f))
	for k, v := range f {
		m[k] = v
	}
	return m
}

func applyAction(ctx context.Context, q dbtx, ev domain.Event) error {
	p := ev.Payload.Action
	if p.Status != domain.StatusAccepted {
		return nil // rejected actions never mutate projections (§4.3)
	}

	opID := ""
	if ev.OpID != nil {
		opID = *ev.OpID
	}

	switch p.ActionType {
	case domain.ActionPost:
		return applyPost(ctx, q, ev.Tick, p, opID)
	case domain.ActionComment:
		return applyComment(ctx, q, ev.Tick, p, opID)
	case domain.ActionLike:
		return applyLike(ctx, q, ev.Tick, p)
	case domain.ActionUnlike:
		return applyUnlike(ctx, q, p)
	case domain.ActionFollow:
		return applyFollow(ctx, q, ev.Tick, p)
	case domain.ActionUnfollow:
		return applyUnfollow(ctx, q, p)
	default:
		return domain.WrapKernelError(domain.ErrCodeStore, "apply action", errUnknownKind(ev.Kind))
	}
}

func ensureUser(ctx context.Context, q dbtx, userID string, tick int64) error {
	_, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO users (user_id, created_tick) VALUES (?, ?)`, userID, tick)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "ensure user", err)
	}
	return nil
}

func applyPost(ctx context.Context, q dbtx, tick int64, p *domain.ActionPayload, opID string) error {
	if err := ensureUser(ctx, q, p.ActorID, tick); err != nil {
		return err
	}
	postID := domain.DerivePostID(opID)
	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO posts (post_id, author_id, body, created_tick, up_votes)
		VALUES (?, ?, ?, ?, 0)`,
		postID, p.ActorID, bodyOf(p), tick,
	)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "apply post", err)
	}
	return nil
}

func applyComment(ctx context.Context, q dbtx, tick int64, p *domain.ActionPayload, opID string) error {
	if err := ensureUser(ctx, q, p.ActorID, tick); err != nil {
		return err
	}
	commentID := domain.DeriveCommentID(opID)
	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO comments (comment_id, post_id, author_id, body, created_tick)
		VALUES (?, ?, ?, ?, ?)`,
		commentID, *p.TargetPostID, p.ActorID, bodyOf(p), tick,
	)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "apply comment", err)
	}
	return nil
}

func bodyOf(p *domain.ActionPayload) string {
	if p.Body == nil {
		return ""
	}
	return *p.Body
}

func applyLike(ctx context.Context, q dbtx, tick int64, p *domain.ActionPayload) error {
	if err := ensureUser(ctx, q, p.ActorID, tick); err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO votes (user_id, post_id, tick) VALUES (?, ?, ?)`,
		p.ActorID, *p.TargetPostID, tick)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "apply like", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "apply like", err)
	}
	if n == 0 {
		return nil // already voted; replay idempotency (§4.3)
	}
	if _, err := q.ExecContext(ctx, `UPDATE posts SET up_votes = up_votes + 1 WHERE post_id = ?`, *p.TargetPostID); err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "increment up_votes", err)
	}
	return nil
}

// applyUnlike only deletes from votes, so it never hits the user_id FK;
// the actor's users row is guaranteed to already exist from the applyLike
// that created the vote being removed (unlike always targets an existing vote).
func applyUnlike(ctx context.Context, q dbtx, p *domain.ActionPayload) error {
	res, err := q.ExecContext(ctx, `DELETE FROM votes WHERE user_id = ? AND post_id = ?`, p.ActorID, *p.TargetPostID)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "apply unlike", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "apply unlike", err)
	}
	if n == 0 {
		return nil // no vote to remove; replay idempotency
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE posts SET up_votes = MAX(up_votes - 1, 0) WHERE post_id = ?`, *p.TargetPostID); err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "decrement up_votes", err)
	}
	return nil
}

func applyFollow(ctx context.Context, q dbtx, tick int64, p *domain.ActionPayload) error {
	if err := ensureUser(ctx, q, p.ActorID, tick); err != nil {
		return err
	}
	if err := ensureUser(ctx, q, *p.TargetUserID, tick); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO follows (follower_id, followee_id, tick) VALUES (?, ?, ?)`,
		p.ActorID, *p.TargetUserID, tick)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "apply follow", err)
	}
	return nil
}

func applyUnfollow(ctx context.Context, q dbtx, p *domain.ActionPayload) error {
	_, err := q.ExecContext(ctx, `DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		p.ActorID, *p.TargetUserID)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "apply unfollow", err)
	}
	return nil
}

// ApplyEvent applies ev outside of any larger transaction. Admission and
// the Timeline Service instead call the Tx-scoped applyEvent directly
// within their own transaction (as does AdvanceTick), so this is only used
// by drivers that append and apply a single event on their own, such as
// simulate's run_started.
func (s *Store) ApplyEvent(ctx context.Context, ev domain.Event) error {
	return applyEvent(ctx, s.db, ev)
}

func (t *Tx) ApplyEvent(ctx context.Context, ev domain.Event) error {
	return applyEvent(ctx, t.tx, ev)
}

// ReplayAll truncates every projection table and refolds the entire event
// log from seq 1 (§4.3). It is the kernel's determinism witness: running
// it twice against the same log must leave ProjectionHash unchanged.
func (s *Store) ReplayAll(ctx context.Context) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := truncateProjections(ctx, tx.tx); err != nil {
		return err
	}
	events, err := scanFrom(ctx, tx.tx, 0)
	if err != nil {
		return err
	}
	slog.Info("replaying event log", "events", len(events))
	for _, ev := range events {
		if err := applyEvent(ctx, tx.tx, ev); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "commit replay", err)
	}
	return nil
}

// ProjectionHash computes a SHA-256 digest over the full projection state
// in a fixed, table-by-table and row-by-row order. Two replays of the same
// log must produce the same hash; that equality is the test oracle for
// the determinism scenarios (§8 S1).
func (s *Store) ProjectionHash(ctx context.Context) (string, error) {
	h := sha256.New()
	queries := []string{
		`SELECT user_id, created_tick FROM users ORDER BY user_id`,
		`SELECT post_id, author_id, body, created_tick, up_votes FROM posts ORDER BY post_id`,
		`SELECT comment_id, post_id, author_id, body, created_tick FROM comments ORDER BY comment_id`,
		`SELECT user_id, post_id, tick FROM votes ORDER BY user_id, post_id`,
		`SELECT follower_id, followee_id, tick FROM follows ORDER BY follower_id, followee_id`,
		`SELECT timeline_id, user_id, tick, algorithm, k, seed, ranking_version FROM timelines ORDER BY timeline_id`,
		`SELECT timeline_id, position, post_id, score, features_blob FROM timeline_items ORDER BY timeline_id, position`,
	}
	for _, query := range queries {
		if err := hashQuery(ctx, s.db, h, query); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashQuery(ctx context.Context, q dbtx, h interface{ Write([]byte) (int, error) }, query string) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "hash query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "hash query columns", err)
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return domain.WrapKernelError(domain.ErrCodeStore, "hash query scan", err)
		}
		for _, v := range values {
			h.Write([]byte{0})
			if b, ok := v.([]byte); ok {
				h.Write(b)
			} else if v != nil {
				h.Write([]byte(fmt.Sprint(v)))
			}
		}
		h.Write([]byte{1})
	}
	return rows.Err()
}
