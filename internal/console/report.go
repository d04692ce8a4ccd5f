package console

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/triage-console/internal/triage"
)

type ReportPDFRenderer interface {
	Render(ctx context.Context, title, markdown string) ([]byte, error)
}

// RoadmapMarkdown renders a roadmap view as a printable markdown document.
// Placeholder items are italicised so they read as absent data.
func RoadmapMarkdown(v triage.RoadmapView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Care Roadmap: %s\n\n", v.Disease)
	fmt.Fprintf(&b, "**Patient:** %s\n", v.Summary)
	for _, c := range v.Categories() {
		fmt.Fprintf(&b, "\n## %s\n\n", c.Title)
		if len(c.Items) == 0 {
			b.WriteString("_Nothing listed._\n")
			continue
		}
		for _, item := range c.Items {
			if c.Placeholder {
				fmt.Fprintf(&b, "- _%s_\n", item)
				continue
			}
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	return b.String()
}

// RoadmapHTML converts roadmap markdown to an HTML fragment.
func RoadmapHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return applyPrintLayoutHooks(content.String()), nil
}

var (
	rePlaceholderItem = regexp.MustCompile(`<li><em>` + regexp.QuoteMeta(triage.NoDataPlaceholder) + `</em></li>`)
	reCategoryHeading = regexp.MustCompile(`<h2>([^<]*)</h2>`)
)

func applyPrintLayoutHooks(contentHTML string) string {
	out := rePlaceholderItem.ReplaceAllString(contentHTML,
		`<li class="no-data"><em>`+html.EscapeString(triage.NoDataPlaceholder)+`</em></li>`)
	// Keep a category heading on the same page as its first items.
	out = reCategoryHeading.ReplaceAllString(out, `<h2 data-keep-with-next="true">$1</h2>`)
	return out
}

type ChromiumPDFRenderer struct {
	chromePath string
	timeout    time.Duration
}

func NewChromiumPDFRenderer(chromePath string) *ChromiumPDFRenderer {
	if chromePath == "" {
		chromePath = detectChromePath()
	}
	return &ChromiumPDFRenderer{chromePath: chromePath, timeout: 30 * time.Second}
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, title, markdown string) ([]byte, error) {
	htmlDoc, err := buildPrintHTML(title, markdown)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.5).
				WithMarginRight(0.5).
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

func buildPrintHTML(title, markdown string) (string, error) {
	contentHTML, err := RoadmapHTML(markdown)
	if err != nil {
		return "", err
	}
	css, err := staticFiles.ReadFile("static/style.css")
	if err != nil {
		return "", fmt.Errorf("read style.css: %w", err)
	}
	generated := time.Now().Format("January 2, 2006 at 3:04 PM MST")
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + string(css) + "\n" +
		"html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
		"body{background:#fff !important;padding:0.6rem;} .print-wrap{max-width:900px;margin:0 auto;} " +
		".print-meta{color:#495057;font-size:0.8rem;margin-bottom:1rem;} " +
		".no-data{color:#6c757d;} " +
		`h2[data-keep-with-next="true"]{break-after:avoid;page-break-after:avoid;} ` +
		"@media print{ @page{size:auto;margin:12mm;} body{padding:0;} .print-wrap{max-width:none;} }" +
		"</style></head><body><div class='print-wrap'>" +
		"<div class='print-meta'>Generated " + html.EscapeString(generated) + ". For discussion with a clinician; not a diagnosis.</div>" +
		"<div class='roadmap-html'>" + contentHTML + "</div>" +
		"</div></body></html>", nil
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if fileExists(p) {
			return p
		}
	}
	return ""
}
