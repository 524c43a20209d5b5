package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/ambiyansyah-risyal/lapis"
	"github.com/ambiyansyah-risyal/lapis/jsonvalue"
)

// CLI defines the command-line interface
type CLI struct {
	Fetch   FetchCmd   `cmd:"" help:"Call a URL through the full middleware pipeline."`
	Query   QueryCmd   `cmd:"" help:"Evaluate a lookup expression against a JSON file."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Globals are bound into every command.
type Globals struct {
	Stdout io.Writer
	Stderr io.Writer
	Ctx    context.Context
}

// FetchCmd runs one or more calls and prints every delivered value.
type FetchCmd struct {
	URL          string        `arg:"" help:"Absolute URL to call."`
	Method       string        `short:"X" default:"GET" help:"HTTP method."`
	Header       []string      `short:"H" help:"Request header as 'Key: Value'."`
	Data         string        `short:"d" help:"Raw request body."`
	Config       string        `short:"c" type:"path" help:"YAML configuration file."`
	EnvFile      []string      `name:"env-file" type:"path" help:".env files to load before reading LAPIS_* variables."`
	Repeat       int           `default:"1" help:"Number of sequential calls; later calls hit the cache."`
	NoCache      bool          `name:"no-cache" help:"Skip the cache middleware."`
	SuccessCode  *int          `name:"success-code" help:"Override the business success code for this call."`
	StatusPath   *string       `name:"status-path" help:"Override the status key path."`
	MessagePath  *string       `name:"message-path" help:"Override the message key path."`
	ModelPath    *string       `name:"model-path" help:"Override the model key path."`
	LoadingDelay time.Duration `name:"loading-delay" help:"Delay before the loading indicator shows."`
	Verbose      bool          `short:"v" help:"Log requests and responses."`
	Metrics      bool          `help:"Print Prometheus metrics after the calls."`
}

// QueryCmd prints the node selected by an expression.
type QueryCmd struct {
	File     string `arg:"" type:"existingfile" help:"JSON file."`
	Expr     string `arg:"" help:"Lookup expression such as 'data.items|result', or JSONPath with --jsonpath."`
	JSONPath bool   `name:"jsonpath" help:"Interpret the expression as JSONPath."`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cli CLI
	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Name("lapis"),
		kong.Description("Client-side request pipeline with envelope decoding and stale-while-revalidate caching"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exitCode = code }),
	)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	if err := kctx.Run(&Globals{Stdout: stdout, Stderr: stderr, Ctx: ctx}); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	return 0
}

// Run implements the fetch command.
func (f *FetchCmd) Run(g *Globals) error {
	var (
		cfg *lapis.Config
		err error
	)
	if f.Config != "" || len(f.EnvFile) > 0 {
		cfg, err = lapis.LoadConfig(f.Config, f.EnvFile...)
		if err != nil {
			return err
		}
	} else {
		cfg = lapis.DefaultConfig()
	}
	if !f.Verbose {
		cfg.Log.Backend = lapis.LogBackendNop
	}
	if f.LoadingDelay > 0 {
		cfg.LoadingDelay = f.LoadingDelay
	}
	if f.Metrics {
		cfg.Metrics = true
	}
	cfg.Log.Output = g.Stderr

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	opts = append(opts, lapis.WithPresenter(newConsolePresenter(g.Stderr)))
	client := lapis.New(opts...)
	if !client.IsValid() {
		return client.ValidationError()
	}

	header := make(http.Header)
	for _, h := range f.Header {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("invalid header %q, expected 'Key: Value'", h)
		}
		header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	ep := lapis.Endpoint{BaseURL: f.URL, Method: f.Method, Header: header}
	if f.Data != "" {
		ep.RawBody = []byte(f.Data)
	}

	repeat := f.Repeat
	if repeat < 1 {
		repeat = 1
	}
	for i := 0; i < repeat; i++ {
		if err := f.call(g, client, ep); err != nil {
			return err
		}
	}

	if f.Metrics {
		return printMetrics(g.Stdout, client.Metrics())
	}
	return nil
}

func (f *FetchCmd) call(g *Globals, client *lapis.Client, ep lapis.Endpoint) error {
	ms := []lapis.Middleware{client.MetricsMiddleware()}
	if !f.NoCache {
		ms = append(ms, client.Cache())
	}
	if remap, ok := f.remap(client.Factor()); ok {
		ms = append(ms, client.Remap(remap))
	}
	ms = append(ms, client.Loading(lapis.Target{Kind: lapis.TargetPage, Name: "fetch"}), client.Log())

	stream := client.Call(g.Ctx, ep, ms...)

	var failure error
	for d := range lapis.ObjResults[jsonvalue.Value](stream) {
		if d.Err != nil {
			failure = d.Err
			continue
		}
		source := "live"
		if d.Response.Cached() {
			source = "cached"
		}
		fmt.Fprintf(g.Stdout, "[%s] status=%d success=%t code=%d message=%q\n",
			source, d.Response.StatusCode(), d.Result.Success, d.Result.Code, d.Result.Message)
		fmt.Fprintln(g.Stdout, d.Model.String())
	}
	return failure
}

func (f *FetchCmd) remap(base lapis.DestructuringFactor) (lapis.DestructuringFactor, bool) {
	changed := false
	if f.SuccessCode != nil {
		base.SuccessCode, changed = *f.SuccessCode, true
	}
	if f.StatusPath != nil {
		base.StatusCodeKeyPath, changed = *f.StatusPath, true
	}
	if f.MessagePath != nil {
		base.MessageKeyPath, changed = *f.MessagePath, true
	}
	if f.ModelPath != nil {
		base.ModelKeyPath, changed = *f.ModelPath, true
	}
	return base, changed
}

// Run implements the query command.
func (q *QueryCmd) Run(g *Globals) error {
	data, err := os.ReadFile(q.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", q.File, err)
	}
	root := jsonvalue.Parse(data)

	result := root.Lookup(q.Expr)
	if q.JSONPath {
		result, err = root.Query(q.Expr)
		if err != nil {
			return err
		}
	}

	if result.IsNull() {
		fmt.Fprintln(g.Stdout, "null")
		return nil
	}
	fmt.Fprintln(g.Stdout, result.String())
	return nil
}

// Run implements the version command.
func (VersionCmd) Run(g *Globals) error {
	fmt.Fprintln(g.Stdout, lapis.GetVersion())
	return nil
}

// consolePresenter renders loading feedback as colored status lines.
type consolePresenter struct {
	out io.Writer
}

func newConsolePresenter(out io.Writer) lapis.Presenter {
	return &consolePresenter{out: out}
}

func (p *consolePresenter) Present(target lapis.Target, event lapis.UIEvent) {
	name := target.Name
	if name == "" {
		name = target.Kind.String()
	}
	switch event.Kind {
	case lapis.EventShow:
		fmt.Fprintf(p.out, "%s %s\n", color.New(color.FgWhite, color.Faint).Sprint(" ... "), name)
	case lapis.EventHide:
	case lapis.EventSuccess:
		lbl := color.New(color.FgWhite).Add(color.BgGreen).Sprint(" OK  ")
		fmt.Fprintf(p.out, "%s %s %s\n", lbl, name, event.Message)
	case lapis.EventFailure:
		lbl := color.New(color.FgWhite).Add(color.BgRed).Sprint(" ERR ")
		msg := event.Message
		if event.Err != nil {
			msg = event.Err.Error()
		}
		fmt.Fprintf(p.out, "%s %s %s\n", lbl, name, msg)
	}
}
