package digest

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/trend-digest/internal/browser"
)

const pageStyle = "body{font-family:-apple-system,'PingFang SC','Noto Sans CJK SC',sans-serif;max-width:860px;margin:0 auto;padding:1.5rem;line-height:1.7;color:#1c1917;} " +
	"h1{font-size:1.6rem;} h3{margin-top:2rem;border-bottom:1px solid #e7e5e4;padding-bottom:0.3rem;} " +
	"a{color:#1d4ed8;} code{background:#f5f5f4;padding:0 0.2rem;} " +
	"html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
	"@media print{ @page{size:auto;margin:12mm;} body{padding:0;max-width:none;} }"

// HTMLRenderer turns a post into a standalone HTML page.
type HTMLRenderer struct {
	md goldmark.Markdown
}

func NewHTMLRenderer() *HTMLRenderer {
	// Raw HTML in model output and Trending descriptions is dropped.
	return &HTMLRenderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

func (r *HTMLRenderer) Render(post Post) (string, error) {
	_, body := SplitFrontMatter(post.Markdown)
	var content strings.Builder
	if err := r.md.Convert([]byte(body), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html lang='zh-CN'><head><meta charset='utf-8'>" +
		"<title>" + html.EscapeString(post.Title) + "</title>" +
		"<style>" + pageStyle + "</style></head><body><article class='post'>" +
		content.String() +
		"</article></body></html>", nil
}

// PDFRenderer prints the HTML page through headless Chromium.
type PDFRenderer struct {
	html       *HTMLRenderer
	chromePath string
	timeout    time.Duration
}

func NewPDFRenderer(h *HTMLRenderer) *PDFRenderer {
	if h == nil {
		h = NewHTMLRenderer()
	}
	return &PDFRenderer{html: h, chromePath: browser.DetectChromePath(), timeout: browser.DefaultTimeout}
}

func (r *PDFRenderer) Render(ctx context.Context, post Post) ([]byte, error) {
	htmlDoc, err := r.html.Render(post)
	if err != nil {
		return nil, err
	}
	taskCtx, cancel := browser.NewContext(ctx, r.chromePath, r.timeout)
	defer cancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`<span class="pageNumber"></span> / <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}
