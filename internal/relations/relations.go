// Package relations derives date-scoped edges between source domains from
// the articles already in the store. Relations are computed on demand and
// never persisted; each call reads the committed rows for one day.
package relations

import (
	"fmt"
	"math"
	"sort"

	"github.com/pcharbon/newsmesh/internal/database"
)

// Relation kinds.
const (
	KindCoCoverage = "co_coverage"
	KindTemporal   = "temporal_correlation"
	KindTopicSim   = "topic_similarity"
)

// Relation is one weighted edge between two domains on a date. SrcDomain is
// always lexicographically smaller than DstDomain, so an unordered pair has
// exactly one representation.
type Relation struct {
	Date      string  `json:"date"`
	SrcDomain string  `json:"src_domain"`
	DstDomain string  `json:"dst_domain"`
	Kind      string  `json:"relation"`
	Weight    float64 `json:"weight"`
}

// Analyzer computes source relations. It is stateless between calls.
type Analyzer struct {
	db *database.DB
}

// NewAnalyzer creates a relation analyzer on top of the article store.
func NewAnalyzer(db *database.DB) *Analyzer {
	return &Analyzer{db: db}
}

// strategy computes relations from one day's aggregates. Strategies are
// chained: the first one to produce any rows wins.
type strategy func(day *dayStats, date string, minWeight float64) []Relation

func (a *Analyzer) chain(kind string) []strategy {
	switch kind {
	case KindTemporal:
		return []strategy{temporalCorrelation, volumeTopN(5, KindTemporal)}
	case KindTopicSim:
		return []strategy{topicSimilarity, coCoverage, volumeTopN(3, KindTopicSim)}
	default:
		// Unknown kinds get the co-coverage treatment.
		return []strategy{coCoverage, volumeSimilarity}
	}
}

// Analyze returns the ranked relations for a date (YYYY-MM-DD) and kind.
// Each kind has an ordered fallback chain for sparse days; a day with fewer
// than two domains always yields an empty list.
func (a *Analyzer) Analyze(date, kind string, minWeight float64, limit int) ([]Relation, error) {
	articles, err := a.db.ArticlesForDate(date)
	if err != nil {
		return nil, fmt.Errorf("loading articles for %s: %w", date, err)
	}

	day := aggregate(articles)
	if len(day.domains) < 2 {
		return []Relation{}, nil
	}

	var relations []Relation
	for _, s := range a.chain(kind) {
		if relations = s(day, date, minWeight); len(relations) > 0 {
			break
		}
	}

	sort.SliceStable(relations, func(i, j int) bool {
		if relations[i].Weight != relations[j].Weight {
			return relations[i].Weight > relations[j].Weight
		}
		if relations[i].SrcDomain != relations[j].SrcDomain {
			return relations[i].SrcDomain < relations[j].SrcDomain
		}
		return relations[i].DstDomain < relations[j].DstDomain
	})

	if limit > 0 && len(relations) > limit {
		relations = relations[:limit]
	}
	if relations == nil {
		relations = []Relation{}
	}
	return relations, nil
}

// dayStats aggregates one day's articles per domain.
type dayStats struct {
	domains     []string                  // sorted
	topicSets   map[string]map[string]bool
	topicCounts map[string]map[string]int // articles per topic
	hourCounts  map[string]map[int]int    // articles per publish hour
	articles    map[string]int            // plain article count
}

func aggregate(articles []database.Article) *dayStats {
	day := &dayStats{
		topicSets:   make(map[string]map[string]bool),
		topicCounts: make(map[string]map[string]int),
		hourCounts:  make(map[string]map[int]int),
		articles:    make(map[string]int),
	}

	for _, a := range articles {
		d := a.Domain
		if d == "" {
			continue
		}
		if _, ok := day.articles[d]; !ok {
			day.domains = append(day.domains, d)
			day.topicSets[d] = make(map[string]bool)
			day.topicCounts[d] = make(map[string]int)
			day.hourCounts[d] = make(map[int]int)
		}
		day.articles[d]++
		if a.PublishedAt != nil {
			day.hourCounts[d][a.PublishedAt.Hour()]++
		}
		for _, t := range a.Topics {
			day.topicSets[d][t] = true
			day.topicCounts[d][t]++
		}
	}

	sort.Strings(day.domains)
	return day
}

// topicVolume is the article-topic pair count, the volume notion the
// co-coverage blend uses.
func (day *dayStats) topicVolume(domain string) int {
	total := 0
	for _, c := range day.topicCounts[domain] {
		total += c
	}
	return total
}

func (day *dayStats) topicDomains() []string {
	var out []string
	for _, d := range day.domains {
		if len(day.topicSets[d]) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// domainsByVolume returns domains ordered by article count descending,
// ties broken alphabetically.
func (day *dayStats) domainsByVolume() []string {
	out := append([]string(nil), day.domains...)
	sort.SliceStable(out, func(i, j int) bool {
		return day.articles[out[i]] > day.articles[out[j]]
	})
	return out
}

// coCoverage relates domains whose topic sets overlap on the day: a blend of
// Jaccard similarity and the overlap coefficient, plus a bonus for similar
// article volume.
func coCoverage(day *dayStats, date string, minWeight float64) []Relation {
	domains := day.topicDomains()
	threshold := math.Max(0.5, minWeight/5)

	var relations []Relation
	for i, src := range domains {
		for _, dst := range domains[i+1:] {
			t1, t2 := day.topicSets[src], day.topicSets[dst]

			inter := 0
			for t := range t1 {
				if t2[t] {
					inter++
				}
			}
			union := len(t1) + len(t2) - inter
			smaller := len(t1)
			if len(t2) < smaller {
				smaller = len(t2)
			}
			if union == 0 || smaller == 0 {
				continue
			}

			jaccard := float64(inter) / float64(union)
			overlap := float64(inter) / float64(smaller)
			weight := math.Max(jaccard*10, overlap*5)

			vol1, vol2 := day.topicVolume(src), day.topicVolume(dst)
			if vol1 > 0 && vol2 > 0 {
				weight += volumeRatio(vol1, vol2) * 2
			}

			if weight >= threshold {
				relations = append(relations, newRelation(date, src, dst, KindCoCoverage, weight))
			}
		}
	}
	return relations
}

// volumeSimilarity is the co-coverage fallback for days without topic data:
// pure article-volume similarity between every domain pair.
func volumeSimilarity(day *dayStats, date string, minWeight float64) []Relation {
	threshold := math.Max(1.0, minWeight)

	var relations []Relation
	for i, src := range day.domains {
		for _, dst := range day.domains[i+1:] {
			vol1, vol2 := day.articles[src], day.articles[dst]
			if vol1 == 0 || vol2 == 0 {
				continue
			}
			weight := volumeRatio(vol1, vol2) * 10
			if weight >= threshold {
				relations = append(relations, newRelation(date, src, dst, KindCoCoverage, weight))
			}
		}
	}
	return relations
}

// temporalCorrelation relates domains that publish in the same hours:
// shared active hours, a volume-normalized correlation over them, and a
// small bonus for activity in adjacent hours.
func temporalCorrelation(day *dayStats, date string, minWeight float64) []Relation {
	threshold := math.Max(0.5, minWeight/2)

	var relations []Relation
	for i, src := range day.domains {
		for _, dst := range day.domains[i+1:] {
			h1, h2 := day.hourCounts[src], day.hourCounts[dst]
			tot1, tot2 := day.articles[src], day.articles[dst]

			weight := 0.0
			shared := 0
			for h, c1 := range h1 {
				c2, ok := h2[h]
				if !ok {
					continue
				}
				shared++
				if tot1 > 0 && tot2 > 0 {
					n1 := float64(c1) / float64(tot1)
					n2 := float64(c2) / float64(tot2)
					weight += math.Min(n1, n2) * 10
				}
			}
			weight += float64(shared)

			for a := range h1 {
				for b := range h2 {
					if a-b == 1 || b-a == 1 {
						weight += 0.5
					}
				}
			}

			if weight >= threshold {
				relations = append(relations, newRelation(date, src, dst, KindTemporal, weight))
			}
		}
	}
	return relations
}

// topicSimilarity relates domains with similar topic distributions: cosine
// similarity over topic-frequency vectors, Jaccard over topic sets, and a
// volume-weighted overlap term.
func topicSimilarity(day *dayStats, date string, minWeight float64) []Relation {
	domains := day.topicDomains()
	threshold := math.Max(0.3, minWeight/3)

	var relations []Relation
	for i, src := range domains {
		for _, dst := range domains[i+1:] {
			v1, v2 := day.topicCounts[src], day.topicCounts[dst]

			dot, overlapVol := 0.0, 0
			common := 0
			for t, c1 := range v1 {
				if c2, ok := v2[t]; ok {
					common++
					dot += float64(c1) * float64(c2)
					if c2 < c1 {
						overlapVol += c2
					} else {
						overlapVol += c1
					}
				}
			}
			if common == 0 {
				continue
			}

			weight := 0.0
			if n1, n2 := vectorNorm(v1), vectorNorm(v2); n1 > 0 && n2 > 0 {
				weight += dot / (n1 * n2) * 8
			}

			union := len(v1) + len(v2) - common
			if union > 0 {
				weight += float64(common) / float64(union) * 5
			}

			maxTotal := day.articles[src]
			if day.articles[dst] > maxTotal {
				maxTotal = day.articles[dst]
			}
			if maxTotal > 0 {
				weight += float64(overlapVol) / float64(maxTotal) * 3
			}

			if weight >= threshold {
				relations = append(relations, newRelation(date, src, dst, KindTopicSim, weight))
			}
		}
	}
	return relations
}

// volumeTopN is the last-resort fallback: pairwise volume similarity over
// the top publishing domains only, scaled by mult per relation kind.
func volumeTopN(mult float64, kind string) strategy {
	return func(day *dayStats, date string, _ float64) []Relation {
		top := day.domainsByVolume()
		if len(top) > 6 {
			top = top[:6]
		}

		var relations []Relation
		for i, src := range top {
			if i >= 5 {
				break
			}
			for _, dst := range top[i+1:] {
				vol1, vol2 := day.articles[src], day.articles[dst]
				if vol1 == 0 || vol2 == 0 {
					continue
				}
				weight := volumeRatio(vol1, vol2) * mult
				if weight >= 1.0 {
					relations = append(relations, newRelation(date, src, dst, kind, weight))
				}
			}
		}
		return relations
	}
}

func volumeRatio(a, b int) float64 {
	if a > b {
		a, b = b, a
	}
	return float64(a) / float64(b)
}

func vectorNorm(v map[string]int) float64 {
	sum := 0.0
	for _, c := range v {
		sum += float64(c) * float64(c)
	}
	return math.Sqrt(sum)
}

func newRelation(date, a, b, kind string, weight float64) Relation {
	if b < a {
		a, b = b, a
	}
	return Relation{
		Date:      date,
		SrcDomain: a,
		DstDomain: b,
		Kind:      kind,
		Weight:    math.Round(weight*100) / 100,
	}
}
