// Package kpis computes read-only analytics over a Store's projections:
// Gini coefficients over attention distribution, Shannon entropy over
// post topics, and a breakdown of action outcomes. Named as an
// out-of-scope external consumer by the core spec (kpis computation is a
// read-only consumer of projections, never a writer), it only reads,
// running read-only SQL against the projection tables and the event log
// through Store.DB().
package kpis

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"strings"

	"github.com/dcrew44/llm-social-network/internal/store"
)

// Report is the full set of KPIs computed over a store's current
// projection state.
type Report struct {
	Counts              Counts          `json:"counts"`
	Actions             ActionBreakdown `json:"actions"`
	AttentionGini       float64         `json:"attention_gini"`
	AuthorAttentionGini float64         `json:"author_attention_gini"`
	TopicEntropy        float64         `json:"topic_entropy"`
}

type Counts struct {
	Posts    int64 `json:"posts"`
	Users    int64 `json:"users"`
	Votes    int64 `json:"votes"`
	Comments int64 `json:"comments"`
	Follows  int64 `json:"follows"`
}

type ActionBreakdown struct {
	Accepted         int64            `json:"accepted"`
	Rejected         int64            `json:"rejected"`
	RejectionReasons map[string]int64 `json:"rejection_reasons"`
}

// GiniCoefficient returns the Gini coefficient of values: 0 for perfect
// equality, approaching 1 for maximal inequality. Ported from the
// original metrics module's formula, which sorts values and sums a
// rank-weighted series rather than computing the more common but
// numerically pricier double-sum definition.
func GiniCoefficient(values []float64) float64 {
	n := len(values)
	if n == 0 || n == 1 {
		return 0.0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var cumsum, sum float64
	for i, v := range sorted {
		cumsum += float64(2*(i+1)-n-1) * v
		sum += v
	}
	mean := sum / float64(n)
	if mean == 0 {
		return 0.0
	}
	return cumsum / (float64(n) * float64(n) * mean)
}

// Entropy returns the Shannon entropy, in bits, of a distribution given
// as raw counts.
func Entropy(counts []int64) float64 {
	var total int64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0.0
	}
	var h float64
	for _, c := range counts {
		if c > 0 {
			p := float64(c) / float64(total)
			h -= p * math.Log2(p)
		}
	}
	return h
}

// Compute reads projections and the event log through db directly
// (read-only SQL, not Store's write-path API) and returns the full KPI
// report.
func Compute(ctx context.Context, s *store.Store) (Report, error) {
	db := s.DB()

	counts, err := queryCounts(ctx, db)
	if err != nil {
		return Report{}, err
	}
	actions, err := queryActionBreakdown(ctx, db)
	if err != nil {
		return Report{}, err
	}
	postEngagement, err := queryPostEngagement(ctx, db)
	if err != nil {
		return Report{}, err
	}
	authorEngagement, err := queryAuthorEngagement(ctx, db)
	if err != nil {
		return Report{}, err
	}
	topicCounts, err := queryTopicCounts(ctx, db)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Counts:              counts,
		Actions:             actions,
		AttentionGini:       GiniCoefficient(postEngagement),
		AuthorAttentionGini: GiniCoefficient(authorEngagement),
		TopicEntropy:        Entropy(topicCounts),
	}, nil
}

func queryCounts(ctx context.Context, db *sql.DB) (Counts, error) {
	var c Counts
	queries := []struct {
		table string
		dest  *int64
	}{
		{"posts", &c.Posts}, {"users", &c.Users}, {"votes", &c.Votes},
		{"comments", &c.Comments}, {"follows", &c.Follows},
	}
	for _, q := range queries {
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dest); err != nil {
			return Counts{}, err
		}
	}
	return c, nil
}

func queryActionBreakdown(ctx context.Context, db *sql.DB) (ActionBreakdown, error) {
	breakdown := ActionBreakdown{RejectionReasons: map[string]int64{}}

	var accepted int64
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE kind = 'action' AND json_extract(payload, '$.status') = 'accepted'`,
	).Scan(&accepted); err != nil {
		return ActionBreakdown{}, err
	}
	breakdown.Accepted = accepted

	rows, err := db.QueryContext(ctx,
		`SELECT json_extract(payload, '$.reason') as reason, COUNT(*) as n
		 FROM events WHERE kind = 'action' AND json_extract(payload, '$.status') = 'rejected'
		 GROUP BY reason`)
	if err != nil {
		return ActionBreakdown{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var reason sql.NullString
		var n int64
		if err := rows.Scan(&reason, &n); err != nil {
			return ActionBreakdown{}, err
		}
		breakdown.Rejected += n
		key := "unknown"
		if reason.Valid {
			key = reason.String
		}
		breakdown.RejectionReasons[key] = n
	}
	return breakdown, rows.Err()
}

// queryPostEngagement returns per-post engagement (likes + comments),
// one value per post, for the post-level attention Gini coefficient.
func queryPostEngagement(ctx context.Context, db *sql.DB) ([]float64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.post_id,
		       (SELECT COUNT(*) FROM votes v WHERE v.post_id = p.post_id) +
		       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.post_id) AS engagement
		FROM posts p`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var postID string
		var engagement int64
		if err := rows.Scan(&postID, &engagement); err != nil {
			return nil, err
		}
		values = append(values, float64(engagement))
	}
	return values, rows.Err()
}

// queryTopicCounts buckets every post by its "topic" — the first
// whitespace-delimited token of its body, lowercased — and returns the
// per-topic post counts feeding TopicEntropy. Bodies with no tokens (empty
// after trimming) fall into a single "" bucket like any other topic.
func queryTopicCounts(ctx context.Context, db *sql.DB) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT body FROM posts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byTopic := map[string]int64{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		byTopic[topicOf(body)]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make([]int64, 0, len(byTopic))
	for _, n := range byTopic {
		counts = append(counts, n)
	}
	return counts, nil
}

// topicOf extracts a post's topic as the first word of its body,
// lowercased, mirroring the original implementation's
// body.split()[0].lower() when present.
func topicOf(body string) string {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// queryAuthorEngagement returns per-author total engagement across all of
// that author's posts, for the author-level attention Gini coefficient.
func queryAuthorEngagement(ctx context.Context, db *sql.DB) ([]float64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.author_id,
		       SUM((SELECT COUNT(*) FROM votes v WHERE v.post_id = p.post_id) +
		           (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.post_id)) AS engagement
		FROM posts p
		GROUP BY p.author_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var authorID string
		var engagement int64
		if err := rows.Scan(&authorID, &engagement); err != nil {
			return nil, err
		}
		values = append(values, float64(engagement))
	}
	return values, rows.Err()
}
