// Command extract reads listing pages from files, stdin or a live search
// and prints the extracted products as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maltedev/offer-extractor/internal/batch"
	"github.com/maltedev/offer-extractor/internal/config"
	"github.com/maltedev/offer-extractor/internal/fetch"
	"github.com/maltedev/offer-extractor/internal/models"
	"github.com/maltedev/offer-extractor/internal/scraper"
	"github.com/maltedev/offer-extractor/internal/sites"
	"github.com/maltedev/offer-extractor/pkg/logger"
)

const (
	exitOK    = 0
	exitInput = 1
	exitUsage = 2
)

// fileList collects repeated -file flags.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var files fileList
	var (
		site    = fs.String("site", "", "Site identifier (see -list)")
		query   = fs.String("query", "", "Run a live search instead of reading pages")
		country = fs.String("country", "", "Search every site of a country (with -query)")
		browser = fs.Bool("browser", false, "Render browser-flagged sites with playwright")
		workers = fs.Int("workers", 0, "Concurrent extractions (default EXTRACT_WORKERS)")
		limit   = fs.Int("limit", 0, "Keep the N cheapest offers of a -country search")
		target  = fs.String("currency", "", "Add prices converted to this currency (with -country)")
		preview = fs.String("preview", "", "Summarize one product page URL (with -file, read it instead of fetching)")
		list    = fs.Bool("list", false, "List supported sites and exit")
		pretty  = fs.Bool("pretty", false, "Indent JSON output")
	)
	fs.Var(&files, "file", "HTML file to extract (repeatable; default stdin)")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitInput
	}
	if *browser {
		cfg.Browser.Enabled = true
	}
	if *workers > 0 {
		cfg.Extract.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return exitUsage
	}

	log := logger.NewWithWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	out := &printer{w: stdout, pretty: *pretty}

	switch {
	case *list:
		registry, err := sites.LoadRegistry(log, cfg.Extract.SitesFile)
		if err != nil {
			return out.fail(err)
		}
		return out.print(registry.IDs())

	case *preview != "":
		if len(files) > 1 || *query != "" {
			fmt.Fprintln(stderr, "-preview takes at most one -file and no -query")
			fs.Usage()
			return exitUsage
		}
		return previewPage(ctx, cfg, log, out, *preview, files)

	case *query != "":
		if (*site == "") == (*country == "") || len(files) > 0 {
			fmt.Fprintln(stderr, "-query needs exactly one of -site or -country and no -file")
			fs.Usage()
			return exitUsage
		}
		opts := scraper.SearchOptions{Workers: cfg.Extract.Workers, Limit: *limit, Currency: *target}
		return search(ctx, cfg, log, out, *site, *country, *query, opts)

	default:
		if *site == "" && !allJobsNamed(files) {
			fmt.Fprintln(stderr, "-site is required")
			fs.Usage()
			return exitUsage
		}
		registry, err := sites.LoadRegistry(log, cfg.Extract.SitesFile)
		if err != nil {
			return out.fail(err)
		}
		return extract(ctx, registry, cfg.Extract.Workers, log, out, *site, files, stdin)
	}
}

// allJobsNamed reports whether every file is given as site=path.
func allJobsNamed(files []string) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !strings.Contains(f, "=") {
			return false
		}
	}
	return true
}

func extract(ctx context.Context, registry *sites.Registry, workers int, log *slog.Logger, out *printer, site string, files []string, stdin io.Reader) int {
	if len(files) == 0 {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return out.fail(fmt.Errorf("read stdin: %w", err))
		}
		return extractOne(registry, out, site, raw)
	}

	if len(files) == 1 {
		jobSite, path := splitJob(site, files[0])
		raw, err := os.ReadFile(path)
		if err != nil {
			return out.fail(err)
		}
		return extractOne(registry, out, jobSite, raw)
	}

	jobs := make([]batch.Job, 0, len(files))
	for _, f := range files {
		jobSite, path := splitJob(site, f)
		raw, err := os.ReadFile(path)
		if err != nil {
			return out.fail(err)
		}
		html, err := fetch.Decode(raw)
		if err != nil {
			return out.fail(fmt.Errorf("%s: %w", path, err))
		}
		jobs = append(jobs, batch.Job{ID: path, Site: jobSite, HTML: html})
	}

	outcomes, err := batch.NewRunner(registry, workers, log).Run(ctx, jobs)
	if err != nil {
		return out.fail(err)
	}
	return out.print(outcomes)
}

func extractOne(registry *sites.Registry, out *printer, site string, raw []byte) int {
	html, err := fetch.Decode(raw)
	if err != nil {
		return out.fail(err)
	}

	e, err := registry.Get(site)
	if err != nil {
		return out.fail(err)
	}
	return out.print(e.Extract(html))
}

// splitJob reads a file argument of the form [site=]path.
func splitJob(defaultSite, arg string) (string, string) {
	if site, path, ok := strings.Cut(arg, "="); ok && site != "" {
		return site, path
	}
	return defaultSite, arg
}

func search(ctx context.Context, cfg *config.Config, log *slog.Logger, out *printer, site, country, query string, opts scraper.SearchOptions) int {
	service, closeAll, err := scraper.Setup(ctx, cfg, log)
	if err != nil {
		return out.fail(err)
	}
	defer release(log, closeAll)

	if site != "" {
		result, err := service.Search(ctx, site, query)
		if err != nil {
			return out.fail(err)
		}
		return out.print(result)
	}

	c, ok := models.ParseCountry(country)
	if !ok {
		return out.fail(fmt.Errorf("unsupported country %q", country))
	}
	found, err := service.SearchCountry(ctx, c, query, opts)
	if err != nil {
		return out.fail(err)
	}
	return out.print(found)
}

func previewPage(ctx context.Context, cfg *config.Config, log *slog.Logger, out *printer, pageURL string, files []string) int {
	if len(files) == 1 {
		raw, err := os.ReadFile(files[0])
		if err != nil {
			return out.fail(err)
		}
		html, err := fetch.Decode(raw)
		if err != nil {
			return out.fail(err)
		}
		registry, err := sites.LoadRegistry(log, cfg.Extract.SitesFile)
		if err != nil {
			return out.fail(err)
		}
		p, err := scraper.NewService(registry, nil, nil, log).PreviewHTML(pageURL, html)
		if err != nil {
			return out.fail(err)
		}
		return out.print(p)
	}

	service, closeAll, err := scraper.Setup(ctx, cfg, log)
	if err != nil {
		return out.fail(err)
	}
	defer release(log, closeAll)

	p, err := service.Preview(ctx, pageURL)
	if err != nil {
		return out.fail(err)
	}
	return out.print(p)
}

func release(log *slog.Logger, closeAll func() error) {
	if err := closeAll(); err != nil {
		log.Warn("failed to release resources", "error", err)
	}
}

type printer struct {
	w      io.Writer
	pretty bool
}

func (p *printer) print(v any) int {
	enc := json.NewEncoder(p.w)
	if p.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return exitInput
	}
	return exitOK
}

// fail prints the error object and returns the input failure code.
func (p *printer) fail(err error) int {
	msg := err.Error()
	if errors.Is(err, os.ErrNotExist) {
		msg = "file not found: " + msg
	}
	p.print(map[string]string{"error": msg})
	return exitInput
}
