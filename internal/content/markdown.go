package content

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go-engsite/internal/model"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
		),
	)
}

// RenderMarkdown converts markdown source to HTML with the site's settings.
func RenderMarkdown(src string) (string, error) {
	return renderWith(newMarkdown(), src)
}

func renderWith(md goldmark.Markdown, src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

const wordsPerMinute = 200

// ReadTime estimates "N min read" from HTML content.
func ReadTime(html string) string {
	words := len(strings.Fields(tagPattern.ReplaceAllString(html, " ")))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	multiHyphen     = regexp.MustCompile(`-+`)
)

// Slugify creates a URL-friendly slug from a title.
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	slug = multiHyphen.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "item"
	}
	return slug
}

// UniqueSlug returns base, or base-2, base-3 and so on, skipping every
// value taken reports as used.
func UniqueSlug(base string, taken func(slug string) bool) string {
	slug := base
	for n := 2; taken(slug); n++ {
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	return slug
}

// slugsInUse collects the slugs and ids of every record other than self.
// Ids count because slug lookups also match ids.
func slugsInUse[T model.Entity](list []T, self string, slugOf func(T) string) map[string]bool {
	used := make(map[string]bool, 2*len(list))
	for _, it := range list {
		if it.EntityID() == self {
			continue
		}
		used[slugOf(it)] = true
		used[it.EntityID()] = true
	}
	return used
}
