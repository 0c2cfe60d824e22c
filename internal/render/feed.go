package render

import (
	"encoding/xml"
	"strings"
	"time"
)

// FeedItems caps the number of entries in index.xml.
const FeedItems = 20

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate,omitempty"`
	Description string `xml:"description,omitempty"`
}

// buildFeed renders an RSS 2.0 feed of the newest dated pages.
func buildFeed(opts Options, pages []*pageView) ([]byte, error) {
	ch := rssChannel{
		Title:       opts.Title,
		Link:        opts.BaseURL,
		Description: "Recent content on " + opts.Title,
	}
	for _, p := range pages {
		if len(ch.Items) == FeedItems {
			break
		}
		if !p.Dated {
			continue
		}
		link := strings.TrimSuffix(opts.BaseURL, "/") + "/" + p.URL
		ch.Items = append(ch.Items, rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        link,
			PubDate:     p.Date.Format(time.RFC1123Z),
			Description: p.Summary,
		})
	}
	if len(ch.Items) > 0 {
		ch.LastBuildDate = ch.Items[0].PubDate
	}

	body, err := xml.MarshalIndent(rss{Version: "2.0", Channel: ch}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
