package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/capability/builtins/bulletin"
	"github.com/rhuss/servicedesk/pkg/capability/builtins/grievance"
	"github.com/rhuss/servicedesk/pkg/capability/builtins/openings"
	"github.com/rhuss/servicedesk/pkg/capability/builtins/websearch"
	"github.com/rhuss/servicedesk/pkg/capability/mcp"
	"github.com/rhuss/servicedesk/pkg/config"
	"github.com/rhuss/servicedesk/pkg/engine"
	"github.com/rhuss/servicedesk/pkg/oracle"
	"github.com/rhuss/servicedesk/pkg/oracle/gemini"
	"github.com/rhuss/servicedesk/pkg/oracle/openaicompat"
	"github.com/rhuss/servicedesk/pkg/storage"
	"github.com/rhuss/servicedesk/pkg/storage/jsonfile"
	"github.com/rhuss/servicedesk/pkg/storage/memory"
	"github.com/rhuss/servicedesk/pkg/storage/postgres"
	"github.com/rhuss/servicedesk/pkg/storage/sqlite"
)

// Record set file names under records.dir. The grievance log path comes
// from config.Config.GrievancePath.
const (
	jobsFile   = "job_vacancy.json"
	policyFile = "company_policy.json"
	newsFile   = "company_news.json"
)

// app holds the wired components and their cleanup.
type app struct {
	oracle   oracle.Oracle
	registry *capability.Registry
	engine   *engine.Engine
	closers  []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// build wires oracle, capabilities and engine from cfg. On error every
// component opened so far is closed.
func build(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.oracle, err = buildOracle(ctx, cfg.Oracle)
	if err != nil {
		return nil, err
	}

	a.registry, err = a.buildRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.registry.Close)

	a.engine, err = engine.New(a.oracle, a.registry, engine.Config{
		MaxIterations:     cfg.Engine.MaxIterations,
		ParallelDispatch:  cfg.Engine.ParallelDispatch,
		CapabilityTimeout: cfg.Engine.CapabilityTimeout,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func buildOracle(ctx context.Context, cfg config.OracleConfig) (oracle.Oracle, error) {
	var o oracle.Oracle
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		g, err := gemini.New(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
		})
		if err != nil {
			return nil, fmt.Errorf("creating gemini oracle: %w", err)
		}
		o = g
	case "openai", "":
		temp := cfg.Temperature
		o = openaicompat.NewClient(openaicompat.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: &temp,
			Timeout:     cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}

	slog.Info("oracle configured", "provider", o.Name(), "model", cfg.Model)
	return oracle.WithRetry(o, oracle.RetryPolicy{MaxRetries: cfg.MaxRetries}), nil
}

func (a *app) buildRegistry(ctx context.Context, cfg *config.Config) (*capability.Registry, error) {
	reg := capability.NewRegistry()

	records := func(name string) (storage.RecordSet, error) {
		rs := jsonfile.NewRecordSet(filepath.Join(cfg.Records.Dir, name))
		a.closers = append(a.closers, rs.Close)
		if cfg.Records.Watch {
			if err := rs.Watch(ctx); err != nil {
				return nil, fmt.Errorf("watching %s: %w", name, err)
			}
		}
		return rs, nil
	}

	jobs, err := records(jobsFile)
	if err != nil {
		return nil, err
	}
	policies, err := records(policyFile)
	if err != nil {
		return nil, err
	}
	news, err := records(newsFile)
	if err != nil {
		return nil, err
	}

	glog, err := a.buildGrievanceLog(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := registerAll(reg,
		openings.New(jobs),
		bulletin.NewPolicy(policies),
		bulletin.NewNews(news),
		grievance.New(glog),
	); err != nil {
		return nil, err
	}

	if cfg.Search.Backend != "none" {
		ws, err := websearch.New(websearch.Config{
			Backend:       cfg.Search.Backend,
			URL:           cfg.Search.URL,
			APIKey:        cfg.Search.APIKey,
			MaxResults:    cfg.Search.MaxResults,
			RatePerSecond: cfg.Search.RatePerSecond,
			Burst:         cfg.Search.Burst,
			Timeout:       cfg.Search.Timeout,
		})
		if err != nil {
			return nil, err
		}
		if err := reg.Register(ws); err != nil {
			return nil, err
		}
	}

	for _, sc := range cfg.MCP.Servers {
		if err := a.connectMCP(ctx, reg, sc); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

func registerAll(reg *capability.Registry, caps ...capability.Capability) error {
	for _, c := range caps {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) buildGrievanceLog(ctx context.Context, cfg *config.Config) (storage.GrievanceLog, error) {
	switch cfg.Grievances.Backend {
	case "memory":
		return memory.NewGrievanceLog(), nil
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.GrievancePath())
		if err != nil {
			return nil, fmt.Errorf("opening sqlite grievance log: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case "postgres":
		s, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Grievances.Postgres.DSN,
			MaxConns:       cfg.Grievances.Postgres.MaxConns,
			MigrateOnStart: cfg.Grievances.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting postgres grievance log: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		l, err := jsonfile.NewGrievanceLog(cfg.GrievancePath())
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}

// connectMCP registers the tools of one MCP server. Tools whose names
// clash with an existing capability are skipped.
func (a *app) connectMCP(ctx context.Context, reg *capability.Registry, sc config.MCPServerConfig) error {
	client := mcp.NewClient(mcp.ServerConfig{
		Name:      sc.Name,
		Transport: sc.Transport,
		URL:       sc.URL,
		Headers:   sc.Headers,
		Auth: mcp.AuthConfig{
			Type:         sc.Auth.Type,
			TokenURL:     sc.Auth.TokenURL,
			ClientID:     sc.Auth.ClientID,
			ClientSecret: sc.Auth.ClientSecret,
			Scopes:       sc.Auth.Scopes,
		},
	}, version)

	if err := client.Connect(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, client.Close)

	caps, err := client.Capabilities(ctx)
	if err != nil {
		return err
	}
	for _, c := range caps {
		if err := reg.Register(c); err != nil {
			if errors.Is(err, capability.ErrDuplicate) {
				slog.Warn("skipping MCP tool", "server", sc.Name, "tool", c.Declaration().Name, "error", err)
				continue
			}
			return err
		}
	}
	return nil
}
