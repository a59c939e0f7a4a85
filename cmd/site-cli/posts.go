package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go-engsite/internal/content"
	"go-engsite/internal/model"

	"github.com/adrg/frontmatter"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// postMatter is the front matter accepted at the top of an imported post.
type postMatter struct {
	Title    string   `yaml:"title"`
	Slug     string   `yaml:"slug"`
	Excerpt  string   `yaml:"excerpt"`
	Author   string   `yaml:"author"`
	Date     string   `yaml:"date"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`
	Image    string   `yaml:"image"`
	Status   string   `yaml:"status"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func newImportPostsCmd(c *cli) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-posts DIR",
		Short: "Import Markdown files with front matter as blog posts",
		Long: `import-posts reads every *.md file in DIR. Front matter sets the post
fields; the body is Markdown and is rendered to HTML when stored. A post
whose slug already exists is updated in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := filepath.Glob(filepath.Join(args[0], "*.md"))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no .md files in %s", args[0])
			}
			sort.Strings(files)

			env, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()
			created, updated := 0, 0
			for _, f := range files {
				post, err := readPost(f)
				if err != nil {
					return err
				}
				existing, err := env.Site.Blog.BySlug(ctx, post.Slug)
				switch {
				case err == nil:
					if !dryRun {
						if _, err := env.Site.Blog.Update(ctx, existing.ID, post); err != nil {
							return fmt.Errorf("%s: %w", f, err)
						}
					}
					updated++
					fmt.Fprintf(out, "updated  %s\n", post.Slug)
				case errors.Is(err, content.ErrNotFound):
					if !dryRun {
						if _, err := env.Site.Blog.Create(ctx, post); err != nil {
							return fmt.Errorf("%s: %w", f, err)
						}
					}
					created++
					fmt.Fprintf(out, "created  %s\n", post.Slug)
				default:
					return err
				}
			}
			suffix := ""
			if dryRun {
				suffix = " (dry run, nothing written)"
			}
			fmt.Fprintf(out, "%d created, %d updated%s\n", created, updated, suffix)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

// readPost parses one Markdown file. The title falls back to the file name
// and the slug to the slugified title.
func readPost(path string) (model.BlogPost, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.BlogPost{}, err
	}
	var fm postMatter
	body, err := frontmatter.Parse(bytes.NewReader(raw), &fm)
	if err != nil {
		return model.BlogPost{}, fmt.Errorf("%s: front matter: %w", path, err)
	}

	caser := cases.Title(language.English)
	title := strings.TrimSpace(fm.Title)
	if title == "" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		title = caser.String(strings.NewReplacer("-", " ", "_", " ").Replace(name))
	}

	p := model.BlogPost{
		Title:         title,
		Slug:          fm.Slug,
		Excerpt:       fm.Excerpt,
		Content:       string(body),
		ContentFormat: model.FormatMarkdown,
		Author:        fm.Author,
		Category:      caser.String(strings.TrimSpace(fm.Category)),
		Tags:          fm.Tags,
		Image:         fm.Image,
		Status:        model.PostStatus(strings.ToLower(strings.TrimSpace(fm.Status))),
	}
	if p.Slug == "" {
		p.Slug = content.Slugify(title)
	}
	if fm.Date != "" {
		d, err := parseDate(fm.Date)
		if err != nil {
			return model.BlogPost{}, fmt.Errorf("%s: %w", path, err)
		}
		p.Date = d
	}
	return p, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
