package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// chromeNames are the executables chromedp looks for when no path is set.
var chromeNames = []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome"}

// ChromeRenderer prints SVG markup to PDF with headless Chrome.
type ChromeRenderer struct {
	ExecPath  string
	NoSandbox bool
	Timeout   time.Duration
	Fonts     Fonts
}

func (r *ChromeRenderer) Name() string { return "chrome" }

// Available reports whether a Chrome binary can be found.
func (r *ChromeRenderer) Available() bool {
	if r.ExecPath != "" {
		_, err := os.Stat(r.ExecPath)
		return err == nil
	}
	for _, name := range chromeNames {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// Render starts a throw-away Chrome instance, loads the SVG into a page
// sized to the drawing and prints the first page.
func (r *ChromeRenderer) Render(ctx context.Context, svg []byte) ([]byte, error) {
	size, err := Size(svg)
	if err != nil {
		return nil, newError(r.Name(), "measure", err)
	}
	html, err := pageHTML(svg, size)
	if err != nil {
		return nil, newError(r.Name(), "prepare", err)
	}

	tmpDir, err := os.MkdirTemp("", "cardgen-chrome-*")
	if err != nil {
		return nil, newError(r.Name(), "prepare", fmt.Errorf("cannot create temp profile dir: %w", err))
	}
	defer os.RemoveAll(tmpDir)

	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(tmpDir),
		// Force software rendering and avoid Vulkan/ANGLE issues in minimal container environments.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.ExecPath != "" {
		allocatorOptions = append(allocatorOptions, chromedp.ExecPath(r.ExecPath))
	}
	if r.NoSandbox {
		allocatorOptions = append(allocatorOptions, chromedp.Flag("no-sandbox", true))
	}
	if env := r.Fonts.Env(); len(env) > 0 {
		allocatorOptions = append(allocatorOptions, chromedp.Env(env...))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions...)
	defer cancelAlloc()
	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	chromeCtx, cancelTimeout := context.WithTimeout(chromeCtx, timeout)
	defer cancelTimeout()

	pdfBuf, err := printPage(chromeCtx, html, size)
	if err != nil {
		return nil, newError(r.Name(), "print", err)
	}
	return pdfBuf, nil
}

// pageHTML inlines the SVG root into an HTML page whose print size matches
// the drawing exactly.
func pageHTML(svg []byte, size PageSize) (string, error) {
	inline, err := rootElement(svg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
@page { size: %[1]gin %[2]gin; margin: 0 }
html, body { margin: 0; padding: 0 }
svg { display: block; width: %[1]gin; height: %[2]gin }
</style></head><body>%[3]s</body></html>`, size.Width, size.Height, inline), nil
}

// printPage loads html into the tab behind ctx and prints page 1 to PDF.
func printPage(ctx context.Context, html string, size PageSize) ([]byte, error) {
	var pdfBuf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithPaperWidth(size.Width).
				WithPaperHeight(size.Height).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPageRanges("1").
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuf, nil
}
