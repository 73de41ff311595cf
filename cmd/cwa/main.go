// Command cwa runs the project-knowledge coordination core: a JSON-RPC
// tool/resource server over stdio or Streamable HTTP, an HTTP+WebSocket
// kanban dashboard, and the codegen artifact pipeline, all sharing one set
// of process-wide backing stores constructed once here and threaded through
// explicitly (no ambient singletons).
//
// Configuration is read from a TOML file (if any) layered under
// environment variables; see internal/config for precedence and defaults.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwaproj/cwa/internal/codegen"
	"github.com/cwaproj/cwa/internal/config"
	"github.com/cwaproj/cwa/internal/content"
	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/graph"
	"github.com/cwaproj/cwa/internal/kanban"
	"github.com/cwaproj/cwa/internal/mcp"
	"github.com/cwaproj/cwa/internal/memory"
	"github.com/cwaproj/cwa/internal/scheduler"
	"github.com/cwaproj/cwa/internal/services"
	"github.com/cwaproj/cwa/internal/store"
	"github.com/cwaproj/cwa/internal/tools/codegentools"
	"github.com/cwaproj/cwa/internal/tools/decisions"
	"github.com/cwaproj/cwa/internal/tools/domainmodel"
	"github.com/cwaproj/cwa/internal/tools/graphtools"
	"github.com/cwaproj/cwa/internal/tools/memorytools"
	"github.com/cwaproj/cwa/internal/tools/project"
	"github.com/cwaproj/cwa/internal/tools/specs"
	"github.com/cwaproj/cwa/internal/tools/tasks"
	"github.com/cwaproj/cwa/internal/vector"
	"github.com/cwaproj/cwa/internal/webapi"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cwa: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a top-level failure to the process exit codes:
// 1 unrecoverable error, 2 misuse (bad arguments), 3 precondition failed
// (a required backing store unreachable at startup).
func exitCodeFor(err error) int {
	switch cwaerr.CodeOf(err) {
	case cwaerr.InvalidArguments:
		return 2
	case cwaerr.Unavailable:
		return 3
	default:
		return 1
	}
}

func run() error {
	configPath := flag.String("config", "", "path to cwa.toml (overrides CWA_CONFIG and search order)")
	destDir := flag.String("dir", ".", "project root the codegen pipeline applies artifacts into")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cwaerr.Wrap(cwaerr.InvalidArguments, "loading config", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	version := cfg.Server.Version
	if Version != "dev" {
		version = Version
	}
	logger.Info("starting cwa", "version", version, "project", cfg.Project.ID, "transport", cfg.Transport.Mode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch flag.Arg(0) {
	case "codegen":
		return runCodegen(ctx, cfg, logger, *destDir, hasFlag(flag.Args(), "--dry-run"))
	case "info":
		return runInfo(ctx, cfg, logger)
	}

	return runServer(ctx, cfg, logger, *destDir, version)
}

// runServer wires every backing store, the service layer, both protocol
// surfaces, and the background scheduler, then blocks until ctx is
// cancelled.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, destDir, version string) error {
	primary, err := store.New(cfg.Primary.URL, cfg.Project.ID)
	if err != nil {
		return cwaerr.Wrap(cwaerr.Unavailable, "connecting to primary store", err)
	}
	defer primary.Close()

	board := kanban.NewBoard(primary, domain.DefaultKanbanConfig())

	vectors, err := vector.Open(cfg.Vector.Path, cfg.Vector.Dimensions)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer vectors.Close()

	var embedder vector.EmbeddingClient
	if cfg.Embedding.URL != "" {
		embedder = vector.NewHTTPEmbeddingClient(cfg.Embedding.URL, 30*time.Second)
	}

	mem := memory.NewService(primary, vectors, embedder)

	var projector *graph.Projector
	if cfg.Graph.URL != "" {
		gctx, gcancel := context.WithTimeout(ctx, 10*time.Second)
		neo, err := graph.NewNeo4j(gctx, cfg.Graph.URL, cfg.Graph.Username, cfg.Graph.Password, cfg.Project.ID, 4)
		gcancel()
		if err != nil {
			logger.Warn("graph store unavailable, running without projection", "error", err)
		} else {
			projector = graph.NewProjector(primary, neo, cfg.Project.ID)
		}
	}

	svc := services.New(primary, board, mem, projector)

	sched := scheduler.NewScheduler(logger)
	sched.AddJob(memory.NewDecayJob(mem, projector, cfg.Memory.DecayFactor, cfg.Memory.CompactThreshold),
		time.Duration(cfg.Memory.DecayIntervalMin)*time.Minute)
	sched.AddJob(memory.NewBackfillJob(mem), time.Minute)
	if projector != nil {
		sched.AddJob(graphSyncJob{projector}, 5*time.Minute)
	}
	sched.Start(ctx)
	defer sched.Stop()

	// Feed the primary store's pub/sub into the graph projector and the
	// dashboard broadcaster; both are idempotent subscribers so at-least-
	// once delivery from Subscribe is safe.
	events, err := primary.Subscribe(ctx)
	if err != nil {
		logger.Warn("event subscription unavailable", "error", err)
	}

	var web *webapi.Server
	if cfg.Web.Enabled {
		webCfg := webapi.DefaultConfig()
		webCfg.Addr = cfg.Web.Addr
		web = webapi.New(svc, webCfg, logger)
		go func() {
			if err := web.Start(ctx); err != nil {
				logger.Error("dashboard facade stopped", "error", err)
			}
		}()
	}

	if events != nil {
		go func() {
			for evt := range events {
				if projector != nil {
					projector.OnEvent(ctx, evt)
				}
				if web != nil {
					web.Broadcaster().BroadcastEvent(evt)
				}
			}
		}()
	}

	gen := codegen.New(svc, cfg.Project.ID, cfg.Server.Name, "cwa")

	registry := mcp.NewRegistry()
	project.Register(registry, svc, cfg.Project.ID)
	specs.Register(registry, svc)
	tasks.Register(registry, svc)
	domainmodel.Register(registry, svc)
	decisions.Register(registry, svc)
	memorytools.Register(registry, mem)
	if projector != nil {
		graphtools.Register(registry, svc)
	}
	codegentools.Register(registry, gen, destDir)

	registry.RegisterPrompt(&content.NewSpecPrompt{})
	registry.RegisterPrompt(&content.MoveTaskPrompt{})
	registry.RegisterResource(&content.EntityModelResource{})
	registry.RegisterResource(&content.GuardrailsResource{})
	registry.RegisterResource(&content.ToolReferenceResource{})
	content.RegisterProjectResources(registry, svc, cfg.Project.ID)
	content.RegisterConstitutionResource(registry, gen.RenderConstitution)

	server := mcp.NewServer(registry, mcp.ServerInfo{Name: cfg.Server.Name, Version: version}, logger)

	if cfg.Transport.Mode == "http" {
		httpServer := mcp.NewHTTPServer(server, cfg.Transport.CORSOrigins, logger)
		addr := cfg.Transport.Host + ":" + cfg.Transport.Port
		logger.Info("mcp http transport listening", "addr", addr)
		return runHTTPTransport(ctx, addr, httpServer.Handler())
	}

	return server.Run(ctx)
}

// runHTTPTransport serves the MCP Streamable-HTTP endpoint until ctx is
// cancelled, then shuts down gracefully, mirroring webapi.Server.Start's
// listen/shutdown shape.
func runHTTPTransport(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// runCodegen runs the artifact pipeline once against already-running
// backing stores and exits, for `cwa codegen [--dry-run]` invocations from
// scripts or CI rather than the long-running server.
func runCodegen(ctx context.Context, cfg *config.Config, logger *slog.Logger, destDir string, dryRun bool) error {
	primary, err := store.New(cfg.Primary.URL, cfg.Project.ID)
	if err != nil {
		return cwaerr.Wrap(cwaerr.Unavailable, "connecting to primary store", err)
	}
	defer primary.Close()

	board := kanban.NewBoard(primary, domain.DefaultKanbanConfig())
	mem := memory.NewService(primary, nil, nil)
	svc := services.New(primary, board, mem, nil)
	gen := codegen.New(svc, cfg.Project.ID, cfg.Server.Name, "cwa")

	if dryRun {
		grouped, err := gen.DryRun(ctx)
		if err != nil {
			return err
		}
		for kind, paths := range grouped {
			for _, p := range paths {
				fmt.Printf("%s\t%s\n", kind, p)
			}
		}
		return nil
	}

	result, err := gen.Apply(ctx, destDir)
	if result != nil {
		kindOf := make(map[string]string, len(result.Artifacts))
		for _, a := range result.Artifacts {
			kindOf[a.Path] = a.Kind
		}
		for _, p := range result.Written {
			logger.Info("wrote artifact", "path", p, "kind", kindOf[p])
		}
		for _, p := range result.Failed {
			logger.Error("failed to write artifact", "path", p, "kind", kindOf[p])
		}
	}
	return err
}

// runInfo prints the resolved project info and exits, for a quick
// `cwa info` sanity check against a running primary store.
func runInfo(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	primary, err := store.New(cfg.Primary.URL, cfg.Project.ID)
	if err != nil {
		return cwaerr.Wrap(cwaerr.Unavailable, "connecting to primary store", err)
	}
	defer primary.Close()

	board := kanban.NewBoard(primary, domain.DefaultKanbanConfig())
	mem := memory.NewService(primary, nil, nil)
	svc := services.New(primary, board, mem, nil)

	p, err := svc.GetProjectInfo(ctx, cfg.Project.ID)
	if err != nil {
		return err
	}
	logger.Info("project", "id", p.ID, "name", p.Name, "tech_stack", p.TechStack)
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// graphSyncJob wraps Projector.SyncIncremental as a scheduler.Job, draining
// the dirty set left by failed incremental upserts on a fixed cadence.
type graphSyncJob struct{ p *graph.Projector }

func (graphSyncJob) Name() string { return "graph_dirty_retry" }
func (j graphSyncJob) Run(ctx context.Context) error {
	return j.p.SyncIncremental(ctx)
}

// hasFlag reports whether args contains the literal flag name, used to
// recognize --dry-run after the "codegen" subcommand.
func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}
