// Package digest renders the daily Trending post and its derived formats.
package digest

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joelkehle/trend-digest/internal/analysis"
	"github.com/joelkehle/trend-digest/internal/trending"
)

const (
	SlugPrefix         = "github-trend-"
	DefaultPostURLBase = "https://opflow.cc/posts/"
	DateLayout         = "2006-01-02"

	fallbackFeature = "该项目聚焦于提升开发效率。"
	fallbackCore    = "详见仓库文档。"
)

// Entry is one ranked repository with its analysis.
type Entry struct {
	Item     trending.Item   `json:"item"`
	Analysis analysis.Result `json:"analysis"`
}

type Post struct {
	Slug     string
	Title    string
	Date     string
	Markdown string
}

type frontMatter struct {
	Slug     string   `yaml:"slug"`
	Title    string   `yaml:"title"`
	Date     string   `yaml:"date"`
	Status   string   `yaml:"status"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`
	Summary  string   `yaml:"summary"`
}

// Options tune the prose that is not derived from the entries.
type Options struct {
	Category    string
	TrendingURL string
}

func Slug(date string) string { return SlugPrefix + date }

// PostURL joins base and slug into the published post address.
func PostURL(base, slug string) string {
	if strings.TrimSpace(base) == "" {
		base = DefaultPostURLBase
	}
	return strings.TrimRight(base, "/") + "/" + slug + "/"
}

// Today returns the calendar date at the given UTC offset.
func Today(now time.Time, offsetHours int) string {
	return now.In(time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)).Format(DateLayout)
}

// Render builds the Markdown post with YAML front matter.
func Render(date string, entries []Entry, opts Options) (Post, error) {
	if opts.Category == "" {
		opts.Category = "github trend"
	}
	if opts.TrendingURL == "" {
		opts.TrendingURL = trending.DefaultURL
	}
	post := Post{
		Slug:  Slug(date),
		Title: fmt.Sprintf("GitHub Trend 每日 Top %d｜%s", trending.TopN, date),
		Date:  date,
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(frontMatter{
		Slug:     post.Slug,
		Title:    post.Title,
		Date:     date,
		Status:   "published",
		Category: opts.Category,
		Tags:     []string{"github", "trend", "daily"},
		Summary:  fmt.Sprintf("整理 %s GitHub Trending 日榜前 %d 项目，并基于源码生成功能描述与技术栈报告。", date, trending.TopN),
	}); err != nil {
		return Post{}, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return Post{}, fmt.Errorf("encode front matter: %w", err)
	}
	buf.WriteString("---\n")

	w := func(format string, args ...any) { fmt.Fprintf(&buf, format+"\n", args...) }
	w("# %s", post.Title)
	w("")
	w("今天整理了 GitHub Trending（日榜）前 %d 项目。每个项目均执行了：**临时目录浅克隆源码 + Codex 技术解读**，并输出功能与技术栈报告。", trending.TopN)
	w("")
	w("- 榜单来源：[%s](%s)", opts.TrendingURL, opts.TrendingURL)
	w("- 统计时间（Asia/Shanghai）：%s 08:00", date)
	w("")
	w("## Top %d 项目深度速览", trending.TopN)
	w("")

	for i, e := range entries {
		feature, stack, core := entryContent(e)
		w("### %d. [%s](%s)", i+1, e.Item.Repo, e.Item.URL)
		w("")
		w("- 语言（Trending）：%s", e.Item.Lang)
		w("- 总 Star：%s", e.Item.Stars)
		w("- Fork：%s", e.Item.Forks)
		w("- 今日新增：%s", e.Item.Today)
		w("")
		w("#### 功能描述（基于源码）")
		w("")
		w("%s", feature)
		w("")
		w("#### 技术栈报告")
		w("")
		w("- %s", strings.Join(stack, "；"))
		w("")
		w("#### 核心功能")
		w("")
		for _, c := range core {
			w("- %s", c)
		}
		w("")
	}

	w("## 观察")
	w("")
	w("1. AI Agent / Prompt / Workflow 相关仓库仍是热度中心。")
	w("2. 工程化工具（代码理解、自动化与协作）增长明显。")
	w("3. 建议优先跟踪前 3 名仓库的 release 与 issue 趋势。")
	w("")
	w("---")
	w("")
	w("以上内容为自动化生成，后续会每天 8:00 更新。")

	post.Markdown = buf.String()
	return post, nil
}

func entryContent(e Entry) (string, []string, []string) {
	feature := e.Analysis.Feature
	if feature == "" {
		feature = e.Item.Desc
	}
	if feature == "" {
		feature = fallbackFeature
	}
	stack := e.Analysis.Stack
	if len(stack) == 0 {
		lang := e.Item.Lang
		if lang == "" {
			lang = analysis.UnknownLanguage
		}
		stack = []string{lang}
	}
	core := e.Analysis.Core
	if len(core) == 0 {
		core = []string{fallbackCore}
	}
	return feature, stack, core
}

// SplitFrontMatter separates the YAML header from the Markdown body.
func SplitFrontMatter(doc string) (header, body string) {
	if !strings.HasPrefix(doc, "---\n") {
		return "", doc
	}
	rest := doc[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return "", doc
	}
	return rest[:end+1], rest[end+len("\n---\n"):]
}
