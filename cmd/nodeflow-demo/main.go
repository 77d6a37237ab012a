// Command nodeflow-demo wires the library surface together and runs one
// workflow end to end, the way a host application would: load config,
// build a registry of node types, construct the executor with a cache
// store, circuit breakers, metrics, and tracing, then execute a workflow
// built with flowbuilder.
//
// Usage:
//
//	nodeflow-demo run                    # run the bundled sample workflow
//	nodeflow-demo run --config path.yaml # override configuration
//	nodeflow-demo version                # print version info
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nodeflow-run/nodeflow/cache"
	"github.com/nodeflow-run/nodeflow/config"
	"github.com/nodeflow-run/nodeflow/engine"
	"github.com/nodeflow-run/nodeflow/flowbuilder"
	"github.com/nodeflow-run/nodeflow/flowctx"
	"github.com/nodeflow-run/nodeflow/historystore"
	"github.com/nodeflow-run/nodeflow/metrics"
	"github.com/nodeflow-run/nodeflow/node"
	"github.com/nodeflow-run/nodeflow/registry"
	"github.com/nodeflow-run/nodeflow/schema"
	"github.com/nodeflow-run/nodeflow/telemetry"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runDemo(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runDemo(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting nodeflow-demo",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	providers, err := telemetry.Init(cfg.ToTelemetryConfig(), logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer providers.Shutdown(context.Background())

	collector := metrics.NewCollector(cfg.Metrics.Namespace, logger)

	store := buildCacheStore(cfg.Cache, logger)

	reg := registry.New(logger)
	if err := reg.RegisterAll(sampleDefinitions()); err != nil {
		logger.Fatal("failed to register node types", zap.Error(err))
	}

	executor := engine.NewExecutor(reg, store, engine.NewCircuitBreakerRegistry(engine.DefaultCircuitBreakerConfig(), nil, logger), logger)
	executor.Metrics = collector
	executor.Tracer = telemetry.NewNodeTracer("nodeflow-demo")

	wf, err := sampleWorkflow()
	if err != nil {
		logger.Fatal("failed to build sample workflow", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := executor.Execute(ctx, wf, map[string]any{}, cfg.ToEngineConfig())
	if err != nil {
		logger.Fatal("workflow execution failed", zap.Error(err))
	}

	logger.Info("workflow completed",
		zap.String("execution_id", result.ExecutionID),
		zap.Any("statuses", result.Statuses),
	)
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	down := fs.Bool("down", false, "roll back the last migration instead of applying pending ones")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	migrator, err := historystore.NewMigrator(cfg.History.Driver, cfg.History.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open migrator: %v\n", err)
		os.Exit(1)
	}
	defer migrator.Close()

	ctx := context.Background()
	if *down {
		err = migrator.Down(ctx)
	} else {
		err = migrator.Up(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read migration version: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("migration complete: version=%d dirty=%v\n", version, dirty)
}

func buildCacheStore(cfg config.CacheConfig, logger *zap.Logger) cache.Store {
	switch cfg.Backend {
	case "redis", "mongo":
		logger.Warn("networked cache backend requested but not reachable in this demo, falling back to memory", zap.String("backend", cfg.Backend))
		fallthrough
	default:
		return cache.NewMemoryStore()
	}
}

func sampleDefinitions() []*node.Definition {
	double, _ := node.New(node.Definition{
		Type:         "double",
		Name:         "Double",
		Description:  "Doubles a numeric value",
		Category:     node.CategoryTransform,
		InputSchema:  schema.Any(),
		OutputSchema: schema.Any(),
		Executor: func(ctx context.Context, input any, nodeCtx *flowctx.NodeContext) (*node.Result, error) {
			cfg, ok := input.(map[string]any)
			if !ok {
				return &node.Result{Success: false, Error: "double: expected object input"}, nil
			}
			value, ok := cfg["value"].(float64)
			if !ok {
				return &node.Result{Success: false, Error: "double: value must be a number"}, nil
			}
			return &node.Result{Success: true, Output: map[string]any{"value": value * 2}}, nil
		},
	})
	return []*node.Definition{double}
}

func sampleWorkflow() (engine.Workflow, error) {
	b := flowbuilder.New("demo-workflow", "double pipeline", nil)
	b.AddNode("a", "double").WithConfig("value", 5.0).To("b")
	b.AddNode("b", "double").WithConfig("value", "{{a.value}}")
	return b.Build()
}

func printVersion() {
	fmt.Printf("nodeflow-demo %s\n", Version)
	fmt.Printf("  build time: %s\n", BuildTime)
	fmt.Printf("  git commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`nodeflow-demo - reference host for the nodeflow workflow engine

Usage:
  nodeflow-demo <command> [options]

Commands:
  run        Run the bundled sample workflow
  migrate    Apply or roll back the history store schema
  version    Show version information
  help       Show this help message

Options for 'run':
  --config <path>   Path to configuration file (YAML)

Options for 'migrate':
  --config <path>   Path to configuration file (YAML)
  --down            Roll back the last migration instead of applying pending ones`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddCaller())
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
