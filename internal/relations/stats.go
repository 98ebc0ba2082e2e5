package relations

import (
	"fmt"
	"sort"
)

const (
	maxStatsSources      = 20
	maxStatsTopicsListed = 10
)

// DomainStats is one domain's footprint on a date.
type DomainStats struct {
	Domain       string   `json:"domain"`
	ArticleCount int      `json:"article_count"`
	UniqueTopics int      `json:"unique_topics"`
	Topics       []string `json:"topics"`
}

// NetworkStats summarizes the whole source network for a date.
type NetworkStats struct {
	Date              string        `json:"date"`
	TotalSources      int           `json:"total_sources"`
	TotalArticles     int           `json:"total_articles"`
	TotalUniqueTopics int           `json:"total_unique_topics"`
	Sources           []DomainStats `json:"sources"`
}

// NetworkStats aggregates per-domain counts and topic sets for a date,
// ordered by article volume. The per-call source and topic lists are capped;
// the totals are not.
func (a *Analyzer) NetworkStats(date string) (*NetworkStats, error) {
	articles, err := a.db.ArticlesForDate(date)
	if err != nil {
		return nil, fmt.Errorf("loading articles for %s: %w", date, err)
	}

	day := aggregate(articles)

	stats := &NetworkStats{
		Date:         date,
		TotalSources: len(day.domains),
		Sources:      []DomainStats{},
	}

	allTopics := make(map[string]bool)
	for _, d := range day.domains {
		stats.TotalArticles += day.articles[d]

		topics := make([]string, 0, len(day.topicSets[d]))
		for t := range day.topicSets[d] {
			allTopics[t] = true
			topics = append(topics, t)
		}
		sort.Strings(topics)
		if len(topics) > maxStatsTopicsListed {
			topics = topics[:maxStatsTopicsListed]
		}

		stats.Sources = append(stats.Sources, DomainStats{
			Domain:       d,
			ArticleCount: day.articles[d],
			UniqueTopics: len(day.topicSets[d]),
			Topics:       topics,
		})
	}
	stats.TotalUniqueTopics = len(allTopics)

	sort.SliceStable(stats.Sources, func(i, j int) bool {
		return stats.Sources[i].ArticleCount > stats.Sources[j].ArticleCount
	})
	if len(stats.Sources) > maxStatsSources {
		stats.Sources = stats.Sources[:maxStatsSources]
	}
	return stats, nil
}
