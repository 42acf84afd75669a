// Package metrics computes campaign growth figures from point-in-time stats.
package metrics

import "math"

// Stats is what a platform reports for an account at one moment.
type Stats struct {
	Followers  int64
	Likes      int64
	MediaCount int64
}

// Growth is the change between two snapshots of the same account.
type Growth struct {
	Followers int64
	Likes     int64
	// Rate is the follower growth in percent of the previous follower count.
	Rate float64
}

// Compute returns the growth from prev to cur. A nil prev means cur is the
// baseline, which has zero growth. A zero previous follower count yields a
// zero rate rather than an infinite one.
func Compute(prev *Stats, cur Stats) Growth {
	if prev == nil {
		return Growth{}
	}
	g := Growth{
		Followers: cur.Followers - prev.Followers,
		Likes:     cur.Likes - prev.Likes,
	}
	if prev.Followers > 0 {
		g.Rate = round2(float64(g.Followers) / float64(prev.Followers) * 100)
	}
	return g
}

// EngagementRate is average likes per post as a percentage of followers.
func EngagementRate(s Stats) float64 {
	if s.Followers <= 0 || s.MediaCount <= 0 {
		return 0
	}
	avgLikes := float64(s.Likes) / float64(s.MediaCount)
	return round2(avgLikes / float64(s.Followers) * 100)
}

// Summary aggregates the snapshots of a campaign.
type Summary struct {
	Influencers     int     `json:"influencers"`
	TotalFollowers  int64   `json:"totalFollowers"`
	FollowersGrowth int64   `json:"followersGrowth"`
	LikesGrowth     int64   `json:"likesGrowth"`
	GrowthRate      float64 `json:"growthRate"`
}

// Point is one account's baseline and latest stats inside a campaign.
type Point struct {
	InfluencerID int64
	Baseline     Stats
	Latest       Stats
}

// Summarize adds up growth across every account from its baseline to its latest
// snapshot. The rate is relative to the summed baseline followers.
func Summarize(points []Point) Summary {
	var (
		s        Summary
		baseline int64
		seen     = map[int64]struct{}{}
	)
	for _, p := range points {
		seen[p.InfluencerID] = struct{}{}
		baseline += p.Baseline.Followers
		s.TotalFollowers += p.Latest.Followers
		s.FollowersGrowth += p.Latest.Followers - p.Baseline.Followers
		s.LikesGrowth += p.Latest.Likes - p.Baseline.Likes
	}
	s.Influencers = len(seen)
	if baseline > 0 {
		s.GrowthRate = round2(float64(s.FollowersGrowth) / float64(baseline) * 100)
	}
	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
