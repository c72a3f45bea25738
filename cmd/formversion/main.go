// Command formversion runs the form versioning engine over YAML fixtures.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	formversion "github.com/goliatone/go-formversion"
	"github.com/goliatone/go-formversion/config"
	"github.com/goliatone/go-formversion/dispatcher"
	"github.com/goliatone/go-formversion/service"
	"github.com/goliatone/go-formversion/validation"
)

type CLI struct {
	Config    string `help:"Path to a configuration file." type:"existingfile"`
	LogLevel  string `help:"Override the configured log level." name:"log-level"`
	LogFormat string `help:"Override the configured log format (console or json)." name:"log-format"`

	Normalise NormaliseCmd `cmd:"" help:"Renumber the pages and questions of a merged template."`
	Migrate   MigrateCmd   `cmd:"" help:"Move an application onto the template in effect for its EHC."`
	Validate  ValidateCmd  `cmd:"" help:"Check an answer against the constraints of a question."`
}

type runContext struct {
	ctx    context.Context
	cli    *CLI
	stdout io.Writer
	stderr io.Writer
}

func (rc *runContext) config() (config.Config, error) {
	cfg := config.Defaults()
	if rc.cli.Config != "" {
		loaded, err := config.Load(rc.cli.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if rc.cli.LogLevel != "" {
		cfg.Logging.Level = rc.cli.LogLevel
	}
	if rc.cli.LogFormat != "" {
		cfg.Logging.Format = rc.cli.LogFormat
	}
	// the CLI never caches
	cfg.Cache.Backend = config.BackendNone
	return cfg, nil
}

func (rc *runContext) engine(resolver formversion.TemplateResolver) (*service.Engine, error) {
	cfg, err := rc.config()
	if err != nil {
		return nil, err
	}
	return service.FromConfig(cfg, resolver, nil, rc.stderr)
}

// bus subscribes engine on a fresh dispatcher.
func (rc *runContext) bus(engine *service.Engine) *dispatcher.Dispatcher {
	d := dispatcher.New(dispatcher.WithLogger(formversion.NewFmtLogger(rc.stderr)))
	engine.Subscribe(d)
	return d
}

func (rc *runContext) print(v any) error {
	enc := yaml.NewEncoder(rc.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

type NormaliseCmd struct {
	Pages string `arg:"" type:"existingfile" help:"YAML file with a list of merged pages."`
}

func (c *NormaliseCmd) Run(rc *runContext) error {
	var pages []formversion.MergedFormPage
	if err := decodeFile(c.Pages, &pages); err != nil {
		return err
	}
	engine, err := rc.engine(&fixtureResolver{})
	if err != nil {
		return err
	}
	defer engine.Close(rc.ctx)
	return rc.print(engine.NormalisePages(pages))
}

type MigrateCmd struct {
	Templates   string `required:"" type:"existingfile" help:"YAML file describing the templates of the EHC."`
	Application string `arg:"" type:"existingfile" help:"YAML file with the stored application."`
}

func (c *MigrateCmd) Run(rc *runContext) error {
	var fixture templateFixture
	if err := decodeFile(c.Templates, &fixture); err != nil {
		return err
	}
	var app formversion.Application
	if err := decodeFile(c.Application, &app); err != nil {
		return err
	}

	engine, err := rc.engine(&fixtureResolver{fixture: fixture})
	if err != nil {
		return err
	}
	defer engine.Close(rc.ctx)

	result, err := dispatcher.Query[service.MigrateApplication, service.MigrationResult](
		rc.ctx, rc.bus(engine), service.MigrateApplication{Application: app},
	)
	if err != nil {
		return err
	}
	if !result.Migrated {
		_, err := fmt.Fprintln(rc.stdout, "no migration necessary")
		return err
	}
	return rc.print(result.Application)
}

type ValidateCmd struct {
	Question  string `required:"" type:"existingfile" help:"YAML file with the question and its constraints."`
	Answer    string `required:"" help:"Answer to check."`
	Submitted string `help:"Submission date (YYYY-MM-DD); defaults to today."`
}

func (c *ValidateCmd) Run(rc *runContext) error {
	var q formversion.MergedFormQuestion
	if err := decodeFile(c.Question, &q); err != nil {
		return err
	}
	var appCtx formversion.ApplicationContext
	if c.Submitted != "" {
		at, err := time.Parse(time.DateOnly, c.Submitted)
		if err != nil {
			return fmt.Errorf("invalid --submitted: %w", err)
		}
		appCtx.SubmittedAt = &at
	}

	engine, err := rc.engine(&fixtureResolver{})
	if err != nil {
		return err
	}
	defer engine.Close(rc.ctx)

	violations, err := dispatcher.Query[service.ValidateAnswer, []validation.Violation](
		rc.ctx, rc.bus(engine), service.ValidateAnswer{Context: appCtx, Answer: c.Answer, Question: q},
	)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		_, err := fmt.Fprintln(rc.stdout, "valid")
		return err
	}
	return rc.print(violations)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("formversion"),
		kong.Description("Form versioning and answer continuity tools."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(&runContext{ctx: ctx, cli: &cli, stdout: stdout, stderr: stderr})
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "formversion: %v\n", err)
		os.Exit(1)
	}
}
