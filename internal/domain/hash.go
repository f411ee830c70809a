package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"strconv"
)

// splitmix64 is the fixed, portable mixing function §4.4 calls for when it
// says the ranker's tie-break key is "H(seed, post_id) where H is a fixed,
// portable hash (e.g. splitmix of the two 64-bit values)". It is a pure
// function of its input: same input, same output, on any platform.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x ^= x >> 31
	return x
}

// TieBreakKey computes the ranker's stable deterministic tie-break key
// for a post under a given seed (§4.4). Descending score order, then
// ascending TieBreakKey, gives a total order with no ties.
func TieBreakKey(seed int64, postID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(postID))
	postHash := h.Sum64()

	mixed := splitmix64(uint64(seed))
	return splitmix64(mixed ^ postHash)
}

// hashWithDomain computes a SHA-256 hash with domain separation: a null
// byte between the domain tag and the data prevents boundary ambiguity
// between e.g. domain "post"+data "x" and domain "pos"+data "tx".
func hashWithDomain(domain string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DerivePostID computes the content-addressed post id for an accepted
// post action (§6.1: post_id := H("post", op_id)). Deriving the id from
// op_id rather than a random generator makes replay of the same event
// log produce the same id, satisfying the idempotency-of-replay
// requirement in §4.3 without a sequence counter in projection state.
func DerivePostID(opID string) string {
	return hashWithDomain("post", opID)
}

// DeriveCommentID computes the content-addressed comment id for an
// accepted comment action (§6.1: comment_id := H("comment", op_id)).
func DeriveCommentID(opID string) string {
	return hashWithDomain("comment", opID)
}

// DeriveTimelineID computes the deterministic timeline id per §4.5:
// H(run_id, user_id, current_tick, algorithm, seed, next_timeline_counter).
// The counter disambiguates two timelines served to the same user in the
// same tick under the same algorithm and seed — without it they would
// collide.
func DeriveTimelineID(runID, userID string, currentTick int64, algorithm RankingAlgorithm, seed int64, counter int64) string {
	return hashWithDomain("timeline",
		runID,
		userID,
		strconv.FormatInt(currentTick, 10),
		string(algorithm),
		strconv.FormatInt(seed, 10),
		strconv.FormatInt(counter, 10),
	)
}

// DeriveRunID computes a deterministic run id from the run's own
// configuration: H("run", seed, agents, ticks, k, ranking). Two simulate
// invocations with identical configuration therefore mint the same run_id
// and, transitively, the same downstream post/comment/timeline ids —
// satisfying "same simulation configuration produces a bit-identical log"
// (§1, §5) without a random or wall-clock source.
func DeriveRunID(seed int64, agents, ticks, k int, algorithm RankingAlgorithm) string {
	return hashWithDomain("run",
		strconv.FormatInt(seed, 10),
		strconv.Itoa(agents),
		strconv.Itoa(ticks),
		strconv.Itoa(k),
		string(algorithm),
	)
}
