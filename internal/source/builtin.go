package source

import (
	"time"

	"horse.fit/driftnet/internal/ratelimit"
)

// builtinFeeds is the default RSS source set. The display name becomes
// the stored source name; registry keys are derived from it.
var builtinFeeds = []struct {
	name string
	url  string
}{
	{"OpenAI Blog", "https://openai.com/blog/rss.xml"},
	{"Google AI Blog", "https://blog.google/technology/ai/rss/"},
	{"DeepMind Blog", "https://deepmind.google/blog/rss.xml"},
	{"BAIR Blog", "https://bair.berkeley.edu/blog/feed.xml"},
	{"AWS Machine Learning Blog", "https://aws.amazon.com/blogs/machine-learning/feed/"},
	{"MIT Technology Review", "https://www.technologyreview.com/feed/"},
	{"TechCrunch AI", "https://techcrunch.com/category/artificial-intelligence/feed/"},
	{"VentureBeat AI", "https://venturebeat.com/category/ai/feed/"},
	{"Ars Technica", "https://feeds.arstechnica.com/arstechnica/index"},
	{"The Verge", "https://www.theverge.com/rss/index.xml"},
	{"Wired AI", "https://www.wired.com/feed/tag/ai/latest/rss"},
	{"MarkTechPost", "https://www.marktechpost.com/feed/"},
	{"KDnuggets", "https://www.kdnuggets.com/feed"},
	{"ScienceDaily AI", "https://www.sciencedaily.com/rss/computers_math/artificial_intelligence.xml"},
}

// builtinFactories returns one factory per built-in source. Each call
// yields fresh adapter instances so runs do not share parser state.
func builtinFactories(defaults Defaults) []Factory {
	factories := make([]Factory, 0, len(builtinFeeds)+1)
	for _, feed := range builtinFeeds {
		name, url := feed.name, feed.url
		factories = append(factories, func() (Adapter, error) {
			return NewRSS(name, url, RSSOptions{
				FullTextMinRunes: defaults.FullTextMinRunes,
				FetchTimeout:     defaults.FetchTimeout,
			}), nil
		})
	}

	// The Firebase API is fetched item by item, so keep it well under
	// any plausible upstream limit.
	factories = append(factories, func() (Adapter, error) {
		return NewHackerNews(ratelimit.New(10, time.Minute), defaults.FetchTimeout), nil
	})

	return factories
}
