package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

func rowExists(ctx context.Context, q dbtx, query string, args ...any) (bool, error) {
	var x int
	err := q.QueryRowContext(ctx, query, args...).Scan(&x)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, domain.WrapKernelError(domain.ErrCodeStore, "check existence", err)
	}
	return true, nil
}

func userExists(ctx context.Context, q dbtx, userID string) (bool, error) {
	return rowExists(ctx, q, `SELECT 1 FROM users WHERE user_id = ?`, userID)
}

func postExists(ctx context.Context, q dbtx, postID string) (bool, error) {
	return rowExists(ctx, q, `SELECT 1 FROM posts WHERE post_id = ?`, postID)
}

func voteExists(ctx context.Context, q dbtx, userID, postID string) (bool, error) {
	return rowExists(ctx, q, `SELECT 1 FROM votes WHERE user_id = ? AND post_id = ?`, userID, postID)
}

func followExists(ctx context.Context, q dbtx, followerID, followeeID string) (bool, error) {
	return rowExists(ctx, q, `SELECT 1 FROM follows WHERE follower_id = ? AND followee_id = ?`, followerID, followeeID)
}

// timelineServedEntry is the subset of a timeline_served row the exposure
// tie-check (§4.6 step 3) needs: who it was served to and which post sits
// at the stated position.
type timelineServedEntry struct {
	UserID string
	PostID string
}

// lookupTimelineItem returns the entry at position in timelineID, or
// found=false if the timeline does not exist or has no item at that
// position.
func lookupTimelineItem(ctx context.Context, q dbtx, timelineID string, position int) (timelineServedEntry, bool, error) {
	var entry timelineServedEntry
	err := q.QueryRowContext(ctx, `
		SELECT t.user_id, ti.post_id
		FROM timelines t
		JOIN timeline_items ti ON ti.timeline_id = t.timeline_id
		WHERE t.timeline_id = ? AND ti.position = ?`,
		timelineID, position,
	).Scan(&entry.UserID, &entry.PostID)
	if errors.Is(err, sql.ErrNoRows) {
		return timelineServedEntry{}, false, nil
	}
	if err != nil {
		return timelineServedEntry{}, false, domain.WrapKernelError(domain.ErrCodeStore, "lookup timeline item", err)
	}
	return entry, true, nil
}

// CandidatePost is the projection data the Ranker needs per post (§4.4);
// the candidate set is the full post set, so this is a plain unfiltered
// scan of the posts table.
type CandidatePost struct {
	PostID      string
	AuthorID    string
	CreatedTick int64
	UpVotes     int64
}

func listCandidatePosts(ctx context.Context, q dbtx) ([]CandidatePost, error) {
	rows, err := q.QueryContext(ctx, `SELECT post_id, author_id, created_tick, up_votes FROM posts`)
	if err != nil {
		return nil, domain.WrapKernelError(domain.ErrCodeStore, "list candidate posts", err)
	}
	defer rows.Close()

	var posts []CandidatePost
	for rows.Next() {
		var p CandidatePost
		if err := rows.Scan(&p.PostID, &p.AuthorID, &p.CreatedTick, &p.UpVotes); err != nil {
			return nil, domain.WrapKernelError(domain.ErrCodeStore, "scan candidate post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapKernelError(domain.ErrCodeStore, "iterate candidate posts", err)
	}
	return posts, nil
}

func currentTick(ctx context.Context, q dbtx) (int64, error) {
	var tick int64
	err := q.QueryRowContext(ctx, `SELECT current_tick FROM kernel_state WHERE id = 0`).Scan(&tick)
	if err != nil {
		return 0, domain.WrapKernelError(domain.ErrCodeStore, "read current_tick", err)
	}
	return tick, nil
}

func runID(ctx context.Context, q dbtx) (string, error) {
	var id sql.NullString
	err := q.QueryRowContext(ctx, `SELECT run_id FROM kernel_state WHERE id = 0`).Scan(&id)
	if err != nil {
		return "", domain.WrapKernelError(domain.ErrCodeStore, "read run_id", err)
	}
	return id.String, nil
}

// nextTimelineCounter atomically increments and returns kernel_state's
// timeline_counter. DeriveTimelineID (§4.5) takes the pre-increment value
// as its disambiguating counter, so two timeline() calls in the same tick
// for the same user never collide.
func nextTimelineCounter(ctx context.Context, q dbtx) (int64, error) {
	if _, err := q.ExecContext(ctx, `UPDATE kernel_state SET timeline_counter = timeline_counter + 1 WHERE id = 0`); err != nil {
		return 0, domain.WrapKernelError(domain.ErrCodeStore, "increment timeline_counter", err)
	}
	var counter int64
	if err := q.QueryRowContext(ctx, `SELECT timeline_counter FROM kernel_state WHERE id = 0`).Scan(&counter); err != nil {
		return 0, domain.WrapKernelError(domain.ErrCodeStore, "read timeline_counter", err)
	}
	return counter - 1, nil
}

func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	return userExists(ctx, s.db, userID)
}

func (s *Store) PostExists(ctx context.Context, postID string) (bool, error) {
	return postExists(ctx, s.db, postID)
}

func (s *Store) CurrentTick(ctx context.Context) (int64, error) {
	return currentTick(ctx, s.db)
}

func (s *Store) RunID(ctx context.Context) (string, error) {
	return runID(ctx, s.db)
}

func (s *Store) ListCandidatePosts(ctx context.Context) ([]CandidatePost, error) {
	return listCandidatePosts(ctx, s.db)
}

func (t *Tx) UserExists(ctx context.Context, userID string) (bool, error) {
	return userExists(ctx, t.tx, userID)
}

func (t *Tx) PostExists(ctx context.Context, postID string) (bool, error) {
	return postExists(ctx, t.tx, postID)
}

func (t *Tx) VoteExists(ctx context.Context, userID, postID string) (bool, error) {
	return voteExists(ctx, t.tx, userID, postID)
}

func (t *Tx) FollowExists(ctx context.Context, followerID, followeeID string) (bool, error) {
	return followExists(ctx, t.tx, followerID, followeeID)
}

func (t *Tx) LookupTimelineItem(ctx context.Context, timelineID string, position int) (timelineServedEntry, bool, error) {
	return lookupTimelineItem(ctx, t.tx, timelineID, position)
}

func (t *Tx) CurrentTick(ctx context.Context) (int64, error) {
	return currentTick(ctx, t.tx)
}

func (t *Tx) RunID(ctx context.Context) (string, error) {
	return runID(ctx, t.tx)
}

func (t *Tx) ListCandidatePosts(ctx context.Context) ([]CandidatePost, error) {
	return listCandidatePosts(ctx, t.tx)
}

func (t *Tx) NextTimelineCounter(ctx context.Context) (int64, error) {
	return nextTimelineCounter(ctx, t.tx)
}
