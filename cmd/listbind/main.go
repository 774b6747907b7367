package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/goliatone/go-listbind"
	"github.com/goliatone/go-listbind/internal/domain"
)

var errFilterFormat = errors.New("filter must be name=value")

var moduleBuilder = func(cfg listbind.Config) (*listbind.Module, error) {
	return listbind.New(cfg)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatalf("listbind: %v", err)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("listbind", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.StringP("config", "c", "", "Path to a JSON or JSONC configuration file")
	apiKey := fs.String("api-key", "", "Catalog API key (overrides the config file)")
	baseURL := fs.String("base-url", "", "Catalog API base URL (overrides the config file)")
	program := fs.String("program", "", "Default program for lists without data-lb-program")
	in := fs.StringP("in", "i", "-", "Input HTML document, - for stdin")
	out := fs.StringP("out", "o", "-", "Output path, - for stdout")
	filterArgs := fs.StringArrayP("filter", "f", nil, "Initial filter name=value (repeatable)")
	serve := fs.String("serve", "", "Serve hydrated pages on this address instead of hydrating once")
	pagesDir := fs.String("pages", "pages", "Directory served under /pages/{page}")
	debug := fs.Bool("debug", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *apiKey != "" {
		cfg.APIKey = *apiKey
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *program != "" {
		cfg.DefaultProgram = *program
	}
	if *debug {
		cfg.Debug = true
	}

	module, err := moduleBuilder(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}

	if *serve != "" {
		return serveHTTP(ctx, module, *serve, *pagesDir)
	}

	filters, err := parseFilters(*filterArgs)
	if err != nil {
		return err
	}
	return hydrate(ctx, module, *in, *out, filters, stdin, stdout)
}

func loadConfig(path string) (listbind.Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := listbind.DefaultConfig()
		if key := os.Getenv("LISTBIND_API_KEY"); key != "" {
			cfg.APIKey = key
		}
		return cfg, nil
	}
	cfg, err := listbind.LoadConfig(path)
	if err != nil {
		return listbind.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func hydrate(ctx context.Context, module *listbind.Module, in, out string, filters listbind.Filters, stdin io.Reader, stdout io.Writer) error {
	source := stdin
	if in != "-" {
		file, err := os.Open(in) //nolint:gosec // operator supplied path
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		source = file
	}

	var buf bytes.Buffer
	if err := module.HydrateWithFilters(ctx, source, &buf, filters); err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}

	if out == "-" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	if err := atomic.WriteFile(out, &buf); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func serveHTTP(ctx context.Context, module *listbind.Module, addr, pagesDir string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           module.Handler(os.DirFS(pagesDir)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// parseFilters turns repeated name=value flags into filters. Repeating a
// name or separating values with commas yields a list.
func parseFilters(args []string) (listbind.Filters, error) {
	filters := listbind.Filters{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", errFilterFormat, arg)
		}
		key := domain.AliasFilterName(name)
		var parts []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			continue
		}
		switch existing := filters[key].(type) {
		case string:
			filters[key] = append([]string{existing}, parts...)
		case []string:
			filters[key] = append(existing, parts...)
		default:
			if len(parts) == 1 && !strings.Contains(value, ",") {
				filters[key] = parts[0]
			} else {
				filters[key] = parts
			}
		}
	}
	return filters, nil
}
