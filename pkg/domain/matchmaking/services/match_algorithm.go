package services

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/matchmaking/entities"
	userentities "github.com/matchcore/core/pkg/domain/user/entities"
)

const (
	// MinGroupSize is the floor group selection enforces regardless of a
	// request's own criteria.groupSize.min.
	MinGroupSize = 2

	baseAcceptanceThreshold = 0.55
	relaxationStepDown      = 0.05
	acceptanceFloor         = 0.35

	baseSkillTolerance = 10.0
	skillToleranceStep = 5.0

	queueAgeBonusCapMs = 300000.0
	queueAgeBonusWeight = 0.10

	weightRegion    = 0.20
	weightLanguage  = 0.15
	weightSkill     = 0.30
	weightGroupSize = 0.10
	weightParty     = 0.15
)

// EnrichedRequest pairs a MatchRequest with the submitter's User profile;
// MatchAlgorithm only ever operates on these, never on bare requests.
type EnrichedRequest struct {
	Request *entities.MatchRequest
	User    *userentities.User
}

// Enrich pairs requests with their users. Requests whose user cannot be
// resolved are dropped — a caller-level concern, not an algorithm error:
// MatchAlgorithm is a pure function and reports no errors.
func Enrich(requests []*entities.MatchRequest, users map[uuid.UUID]*userentities.User) []EnrichedRequest {
	out := make([]EnrichedRequest, 0, len(requests))
	for _, r := range requests {
		u, ok := users[r.UserID]
		if !ok {
			continue
		}
		out = append(out, EnrichedRequest{Request: r, User: u})
	}
	return out
}

// Score computes the [0,1] pairwise compatibility of a and b with respect
// to their shared primary game. A hard gate on game mode returns 0.
func Score(a, b EnrichedRequest, now time.Time) float64 {
	if a.Request.Criteria.GameMode != b.Request.Criteria.GameMode {
		return 0
	}

	region := regionScore(a.Request.Criteria, b.Request.Criteria)
	language := languageScore(a.Request.Criteria, b.Request.Criteria)
	skill := skillScore(a, b)
	groupSize := groupSizeScore(a.Request.Criteria.GroupSize, b.Request.Criteria.GroupSize)
	party := 0.0
	if entities.PreselectsEachOther(a.Request, b.Request) {
		party = weightParty
	}

	total := region*weightRegion + language*weightLanguage + skill*weightSkill +
		groupSize*weightGroupSize + party

	total += queueAgeBonus(a.Request, b.Request, now)

	return total
}

func queueAgeBonus(a, b *entities.MatchRequest, now time.Time) float64 {
	oldest := a
	if b.SearchStartTime.Before(a.SearchStartTime) {
		oldest = b
	}
	ms := float64(oldest.SearchDuration(now).Milliseconds())
	fraction := ms / queueAgeBonusCapMs
	if fraction > 1 {
		fraction = 1
	}
	return fraction * queueAgeBonusWeight
}

func regionScore(a, b entities.Criteria) float64 {
	if intersects(a.RegionSet(), b.RegionSet()) {
		return 1
	}
	return byPreference(strictestOf(a.RegionPreference, b.RegionPreference))
}

func languageScore(a, b entities.Criteria) float64 {
	if stringSetsIntersect(a.Languages, b.Languages) {
		return 1
	}
	return byPreference(strictestOf(a.LanguagePreference, b.LanguagePreference))
}

// strictestOf picks whichever side's preference is more conservative,
// since an intersection miss must satisfy the stricter of the two parties.
func strictestOf(a, b entities.Preference) entities.Preference {
	rank := map[entities.Preference]int{
		entities.PreferenceStrict:    0,
		entities.PreferencePreferred: 1,
		entities.PreferenceAny:       2,
	}
	ra, oka := rank[a]
	rb, okb := rank[b]
	if !oka {
		ra = 2
	}
	if !okb {
		rb = 2
	}
	if ra <= rb {
		return a
	}
	return b
}

func byPreference(p entities.Preference) float64 {
	switch p {
	case entities.PreferenceAny:
		return 0.5
	case entities.PreferencePreferred:
		return 0.3
	default: // strict
		return 0
	}
}

func intersects(a, b map[entities.Region]struct{}) bool {
	for r := range a {
		if _, ok := b[r]; ok {
			return true
		}
	}
	return false
}

func stringSetsIntersect(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func skillScore(a, b EnrichedRequest) float64 {
	if a.Request.Criteria.SkillPreference == entities.SkillPreferenceAny ||
		b.Request.Criteria.SkillPreference == entities.SkillPreferenceAny {
		return 1.0
	}

	primaryA, okA := a.Request.Criteria.PrimaryGame()
	primaryB, okB := b.Request.Criteria.PrimaryGame()
	if !okA || !okB {
		return 0.5
	}

	profA, okA := a.User.GameProfileFor(primaryA.GameID)
	profB, okB := b.User.GameProfileFor(primaryB.GameID)
	if !okA || !okB {
		return 0.5
	}

	delta := math.Abs(float64(profA.SkillLevel - profB.SkillLevel))
	tolerance := baseSkillTolerance + skillToleranceStep*float64(maxInt(a.Request.RelaxationLevel, b.Request.RelaxationLevel))

	score := 1 - delta/tolerance
	if score < 0 {
		return 0
	}
	return score
}

func groupSizeScore(a, b entities.GroupSize) float64 {
	lo := maxInt(a.Min, b.Min)
	hi := minInt(a.Max, b.Max)
	if lo <= hi {
		return 1
	}
	return 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// AcceptanceThreshold returns the minimum pairwise score a candidate must
// clear to join a forming group, lowered by 0.05 per relaxation step down
// to a 0.35 floor.
func AcceptanceThreshold(relaxationLevel int) float64 {
	threshold := baseAcceptanceThreshold - float64(relaxationLevel)*relaxationStepDown
	if threshold < acceptanceFloor {
		return acceptanceFloor
	}
	return threshold
}

// MatchGroup is a candidate set of requests MatchAlgorithm selected as
// mutually compatible.
type MatchGroup struct {
	Members []EnrichedRequest
	Quality entities.MatchQuality
	Metrics entities.MatchingMetrics
}

// FindMatches runs greedy group selection over a bucket snapshot: seed from
// the oldest request, grow by always adding the best-scoring compatible
// peer, emit once the floor size is reached, and keep scanning unused
// requests for further groups.
func FindMatches(bucket []EnrichedRequest, now time.Time) []MatchGroup {
	pool := make([]EnrichedRequest, len(bucket))
	copy(pool, bucket)
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Request.SearchStartTime.Equal(pool[j].Request.SearchStartTime) {
			return pool[i].Request.UserID.String() < pool[j].Request.UserID.String()
		}
		return pool[i].Request.SearchStartTime.Before(pool[j].Request.SearchStartTime)
	})

	used := make(map[uuid.UUID]bool, len(pool))
	var groups []MatchGroup

	for i := range pool {
		seed := pool[i]
		if used[seed.Request.UserID] {
			continue
		}

		group := []EnrichedRequest{seed}
		used[seed.Request.UserID] = true
		maxSize := seed.Request.Criteria.GroupSize.Max

		for {
			threshold := AcceptanceThreshold(maxRelaxation(group))
			best := -1
			bestScore := -1.0

			for j := range pool {
				cand := pool[j]
				if used[cand.Request.UserID] {
					continue
				}
				if len(group)+1 > maxSize || len(group)+1 > cand.Request.Criteria.GroupSize.Max {
					continue
				}

				meanScore, ok := meanPairwise(group, cand, threshold, now)
				if !ok {
					continue
				}
				if meanScore > bestScore {
					bestScore = meanScore
					best = j
				}
			}

			if best == -1 {
				break
			}

			group = append(group, pool[best])
			used[pool[best].Request.UserID] = true
			if minInt(maxSize, pool[best].Request.Criteria.GroupSize.Max) < maxSize {
				maxSize = minInt(maxSize, pool[best].Request.Criteria.GroupSize.Max)
			}
		}

		floor := requiredGroupSize(group)
		if len(group) >= floor {
			groups = append(groups, buildGroup(group, now))
		} else {
			for _, m := range group {
				used[m.Request.UserID] = false
			}
		}
	}

	return groups
}

func maxRelaxation(group []EnrichedRequest) int {
	max := 0
	for _, m := range group {
		if m.Request.RelaxationLevel > max {
			max = m.Request.RelaxationLevel
		}
	}
	return max
}

// meanPairwise reports the mean compatibility of cand against every current
// member, requiring every individual pairwise score to clear threshold.
func meanPairwise(group []EnrichedRequest, cand EnrichedRequest, threshold float64, now time.Time) (float64, bool) {
	total := 0.0
	for _, m := range group {
		s := Score(m, cand, now)
		if s < threshold {
			return 0, false
		}
		total += s
	}
	return total / float64(len(group)), true
}

func requiredGroupSize(group []EnrichedRequest) int {
	min := 0
	for i, m := range group {
		if i == 0 || m.Request.Criteria.GroupSize.Min > min {
			min = m.Request.Criteria.GroupSize.Min
		}
	}
	if min < MinGroupSize {
		return MinGroupSize
	}
	return min
}

func buildGroup(group []EnrichedRequest, now time.Time) MatchGroup {
	return MatchGroup{
		Members: group,
		Quality: quality(group),
		Metrics: metrics(group, now),
	}
}

// quality averages pairwise region/language scores plus a skill-balance
// metric into overallScore = 0.3*region + 0.2*language + 0.5*skillBalance.
func quality(group []EnrichedRequest) entities.MatchQuality {
	var regionSum, languageSum float64
	pairs := 0
	minSkill, maxSkill := math.MaxInt32, math.MinInt32
	haveSkill := false

	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			regionSum += regionScore(group[i].Request.Criteria, group[j].Request.Criteria)
			languageSum += languageScore(group[i].Request.Criteria, group[j].Request.Criteria)
			pairs++
		}

		primary, ok := group[i].Request.Criteria.PrimaryGame()
		if !ok {
			continue
		}
		prof, ok := group[i].User.GameProfileFor(primary.GameID)
		if !ok {
			continue
		}
		haveSkill = true
		if prof.SkillLevel < minSkill {
			minSkill = prof.SkillLevel
		}
		if prof.SkillLevel > maxSkill {
			maxSkill = prof.SkillLevel
		}
	}

	region, language := 0.0, 0.0
	if pairs > 0 {
		region = regionSum / float64(pairs) * 100
		language = languageSum / float64(pairs) * 100
	}

	skillBalance := 100.0
	if haveSkill {
		skillBalance = (1 - float64(maxSkill-minSkill)/100) * 100
		if skillBalance < 0 {
			skillBalance = 0
		}
	}

	overall := 0.3*region + 0.2*language + 0.5*skillBalance

	return entities.MatchQuality{
		SkillBalance:          skillBalance,
		RegionCompatibility:   region,
		LanguageCompatibility: language,
		OverallScore:          overall,
	}
}

func metrics(group []EnrichedRequest, now time.Time) entities.MatchingMetrics {
	m := entities.MatchingMetrics{RelaxationLevelsUsed: make([]int, 0, len(group))}
	for i, mem := range group {
		ms := mem.Request.SearchDuration(now).Milliseconds()
		m.TotalSearchTimeMs += ms
		if i == 0 || ms > m.MaxSearchTimeMs {
			m.MaxSearchTimeMs = ms
		}
		if i == 0 || ms < m.MinSearchTimeMs {
			m.MinSearchTimeMs = ms
		}
		m.RelaxationLevelsUsed = append(m.RelaxationLevelsUsed, mem.Request.RelaxationLevel)
	}
	return m
}
