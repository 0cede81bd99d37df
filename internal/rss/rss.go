package rss

import (
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"vienna-cli/internal/model"
	"vienna-cli/internal/render"
)

const generator = "vienna-cli"

type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

type Channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	LastBuildDate string `xml:"lastBuildDate,omitempty"`
	Generator     string `xml:"generator,omitempty"`
	Items         []Item `xml:"item"`
}

type Item struct {
	GUID        GUID       `xml:"guid"`
	Title       string     `xml:"title,omitempty"`
	Link        string     `xml:"link,omitempty"`
	Author      string     `xml:"author,omitempty"`
	Description string     `xml:"description,omitempty"`
	PubDate     string     `xml:"pubDate,omitempty"`
	Enclosure   *Enclosure `xml:"enclosure,omitempty"`
}

type GUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

type Enclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// NewFeed builds an RSS 2.0 document for articles, in the order given.
func NewFeed(title, link, description string, articles []*model.Article, now time.Time) *RSS {
	channel := Channel{
		Title:         title,
		Link:          render.CanonicalLink(link),
		Description:   description,
		LastBuildDate: now.UTC().Format(time.RFC1123Z),
		Generator:     generator,
	}

	for _, a := range articles {
		if a == nil {
			continue
		}
		channel.Items = append(channel.Items, ItemFromArticle(a))
	}

	return &RSS{Version: "2.0", Channel: channel}
}

func ItemFromArticle(a *model.Article) Item {
	link := render.CanonicalLink(model.StrValue(a.Link()))

	item := Item{
		GUID: GUID{
			Value:       a.GUID(),
			IsPermaLink: link != "" && a.GUID() == model.StrValue(a.Link()),
		},
		Title:       model.StrValue(a.Title()),
		Link:        link,
		Author:      model.StrValue(a.Author()),
		Description: model.StrValue(a.Body()),
	}

	if published := publishedAt(a); published != nil {
		item.PubDate = published.UTC().Format(time.RFC1123Z)
	}

	if enclosure := model.StrValue(a.Enclosure()); enclosure != "" {
		item.Enclosure = &Enclosure{
			URL:  render.CanonicalLink(enclosure),
			Type: enclosureType(enclosure),
		}
	}

	return item
}

func publishedAt(a *model.Article) *time.Time {
	if a.PublicationDate() != nil {
		return a.PublicationDate()
	}
	return a.LastUpdate()
}

func enclosureType(link string) string {
	if t := mime.TypeByExtension(path.Ext(render.EnclosureFilename(link))); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (r *RSS) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write RSS header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode RSS feed: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush RSS feed: %w", err)
	}

	_, err := io.WriteString(w, "\n")
	return err
}
