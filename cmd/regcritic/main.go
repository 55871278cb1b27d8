package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/regcritic/internal/api"
	"github.com/dshills/regcritic/internal/config"
	"github.com/dshills/regcritic/internal/escalate"
	"github.com/dshills/regcritic/internal/llm"
	"github.com/dshills/regcritic/internal/pipeline"
	"github.com/dshills/regcritic/internal/policy"
	"github.com/dshills/regcritic/internal/query"
	"github.com/dshills/regcritic/internal/redact"
	"github.com/dshills/regcritic/internal/render"
	"github.com/dshills/regcritic/internal/schema"
	"github.com/dshills/regcritic/internal/session"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// defaultModel is used when REGCRITIC_MODEL and the config file are both silent.
const defaultModel = "gemini:gemini-2.0-flash"

// appName keys session rows in the history store.
const appName = "regcritic"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// scanFlags holds the parsed flags for the scan command.
type scanFlags struct {
	format          string
	out             string
	policyFiles     []string
	configPath      string
	failOn          string
	temperature     float64
	maxTokens       int
	sessionDB       string
	userID          string
	showRedactions  bool
	offline         bool
	verbose         bool
	debug           bool
}

// serveFlags holds the parsed flags for the serve command.
type serveFlags struct {
	addr        string
	configPath  string
	temperature float64
	maxTokens   int
	verbose     bool
}

func main() {
	root := &cobra.Command{
		Use:   "regcritic",
		Short: "Scan text for HIPAA and FDA Part 11 compliance risks",
		Long:  "RegCritic runs HIPAA and FDA compliance specialists over a query and merges their findings into a single deterministic verdict.",
	}

	var sf scanFlags
	scanCmd := &cobra.Command{
		Use:   "scan <query-file>",
		Short: "Analyze a query and produce a compliance verdict",
		Long:  "Scan reads a free-text query from a file (or stdin with \"-\") and reports OK, WARNING, or VIOLATION.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(args[0], sf)
		},
	}

	f := scanCmd.Flags()
	f.StringVar(&sf.format, "format", "block", "Output format: block, json, or md")
	f.StringVar(&sf.out, "out", "", "Write output to file instead of stdout")
	f.StringArrayVar(&sf.policyFiles, "policy", nil, "Policy document paths (may be repeated)")
	f.StringVar(&sf.configPath, "config", "", "Config file path (default .regcritic.yaml if present)")
	f.StringVar(&sf.failOn, "fail-on", "", "Exit 2 if status >= this level (WARNING or VIOLATION)")
	f.Float64Var(&sf.temperature, "temperature", 0.2, "LLM temperature")
	f.IntVar(&sf.maxTokens, "max-tokens", 4096, "Maximum response tokens per specialist")
	f.StringVar(&sf.sessionDB, "session-db", "", "Persist interaction history to this sqlite file")
	f.StringVar(&sf.userID, "user", "default", "User id recorded in the session store")
	f.BoolVar(&sf.showRedactions, "show-redactions", false, "Print a patch of credential redactions to stderr")
	f.BoolVar(&sf.offline, "offline", false, "Exit 3 if REGCRITIC_MODEL env var is not set; use to enforce explicit model config in CI")
	f.BoolVar(&sf.verbose, "verbose", false, "Print processing steps to stderr")
	f.BoolVar(&sf.debug, "debug", false, "Dump the synthesized report boundary to stderr")

	var vf serveFlags
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan pipeline as an HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(vf)
		},
	}
	sfl := serveCmd.Flags()
	sfl.StringVar(&vf.addr, "addr", ":8080", "Listen address")
	sfl.StringVar(&vf.configPath, "config", "", "Config file path (default .regcritic.yaml if present)")
	sfl.Float64Var(&vf.temperature, "temperature", 0.2, "LLM temperature")
	sfl.IntVar(&vf.maxTokens, "max-tokens", 4096, "Maximum response tokens per specialist")
	sfl.BoolVar(&vf.verbose, "verbose", false, "Print processing steps to stderr")

	var historyDB string
	historyCmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Print the interaction history for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(historyDB, args[0])
		},
	}
	historyCmd.Flags().StringVar(&historyDB, "session-db", "", "Sqlite session file (required)")

	root.AddCommand(scanCmd, serveCmd, historyCmd)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

func runScan(queryPath string, flags scanFlags) error {
	// --- Step 1: Validate flags ---
	if err := validateScanFlags(flags); err != nil {
		return codeError(3, "invalid flags: %s", err)
	}

	// --- Step 2: Load config file ---
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return codeError(3, "loading config: %s", err)
	}

	// --- Step 3: Resolve model; offline check uses raw env var ---
	modelStr, err := resolveModel(cfg, flags.offline)
	if err != nil {
		return err
	}

	// --- Step 4: Load query (hashed before redaction) ---
	logVerbose(flags.verbose, "Loading query: %s", queryPath)
	q, err := query.Load(queryPath, os.Stdin)
	if err != nil {
		return codeError(3, "loading query: %s", err)
	}

	if flags.showRedactions {
		if patch := redact.Diff(q.Raw); patch != "" {
			fmt.Fprintf(os.Stderr, "=== credential redactions ===\n%s=== end redactions ===\n", patch)
		}
	}

	// --- Step 5: Load policy documents (redacted on load) ---
	logVerbose(flags.verbose, "Loading %d policy document(s)", len(flags.policyFiles))
	docs, err := policy.Load(flags.policyFiles)
	if err != nil {
		return codeError(3, "loading policy documents: %s", err)
	}

	// --- Step 6: Create LLM provider ---
	provider, err := llm.NewProvider(modelStr)
	if err != nil {
		return codeError(4, "creating LLM provider: %s", err)
	}

	// --- Step 7: Open session store, record the query ---
	ctx := context.Background()
	sessionDB := flags.sessionDB
	if sessionDB == "" {
		sessionDB = cfg.SessionDB
	}
	var store *session.Store
	var sessionID string
	if sessionDB != "" {
		store, err = session.Open(sessionDB)
		if err != nil {
			return codeError(3, "opening session store: %s", err)
		}
		defer store.Close() //nolint:errcheck
		sessionID, err = store.Create(ctx, appName, flags.userID)
		if err != nil {
			return codeError(3, "creating session: %s", err)
		}
		logVerbose(flags.verbose, "Session: %s", sessionID)
		if err := store.AppendUserQuery(ctx, sessionID, q.Redacted); err != nil {
			fmt.Fprintf(os.Stderr, "WARN: recording query failed: %s\n", err)
		}
	}

	// --- Step 8: Run the pipeline ---
	temperature := flags.temperature
	maxTokens := flags.maxTokens
	if cfg.Temperature != 0 && !flagChanged(flags.temperature, 0.2) {
		temperature = cfg.Temperature
	}
	if cfg.MaxTokens != 0 && maxTokens == 4096 {
		maxTokens = cfg.MaxTokens
	}

	p := &pipeline.Pipeline{
		Provider:    provider,
		Resolver:    escalate.NewResolver(cfg.ExtraTriggers...),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if flags.verbose {
		p.Logf = func(format string, args ...any) {
			logVerbose(true, format, args...)
		}
	}

	logVerbose(flags.verbose, "Calling LLM: %s", modelStr)
	result, err := p.Run(ctx, q.Redacted, docs)
	if err != nil {
		return codeError(5, "%s", err)
	}

	if flags.debug {
		fmt.Fprintf(os.Stderr, "=== DEBUG: synthesized report ===\n%s\n=== END DEBUG ===\n", result.SynthesizedBlock)
	}

	// --- Step 9: Assemble the report ---
	report := &schema.Report{
		Tool:    "regcritic",
		Version: version,
		Input: schema.Input{
			Source:      q.Source,
			QueryHash:   q.Hash,
			PolicyFiles: flags.policyFiles,
		},
		Verdict:     result.Verdict,
		Synthesized: result.Synthesized,
		Meta: schema.Meta{
			Model:       modelStr,
			Temperature: temperature,
			SessionID:   sessionID,
		},
	}

	// --- Step 10: Render output ---
	logVerbose(flags.verbose, "Rendering output (format: %s)", flags.format)
	renderer, err := render.NewRenderer(flags.format)
	if err != nil {
		return codeError(3, "invalid format: %s", err)
	}
	outputBytes, err := renderer.Render(report)
	if err != nil {
		return codeError(3, "rendering output: %s", err)
	}

	// --- Step 11: Write output ---
	if flags.out != "" {
		if err := os.WriteFile(flags.out, outputBytes, 0o644); err != nil {
			return codeError(3, "writing output file: %s", err)
		}
	} else {
		if _, err := os.Stdout.Write(outputBytes); err != nil {
			return codeError(3, "writing output: %s", err)
		}
		// Ensure output ends with a newline for terminal friendliness.
		if len(outputBytes) > 0 && outputBytes[len(outputBytes)-1] != '\n' {
			fmt.Fprintln(os.Stdout)
		}
	}

	// --- Step 12: Record the verdict in the session history ---
	if store != nil {
		if block, err := render.VerdictBlock(result.Verdict); err == nil {
			if err := store.AppendAgentResponse(ctx, sessionID, "coordinator", string(block)); err != nil {
				fmt.Fprintf(os.Stderr, "WARN: recording response failed: %s\n", err)
			}
		}
	}

	// --- Step 13: Evaluate --fail-on ---
	if flags.failOn != "" {
		threshold := schema.Status(flags.failOn)
		if schema.StatusOrdinal(result.Verdict.Status) >= schema.StatusOrdinal(threshold) {
			return codeError(2, "status %s meets or exceeds --fail-on threshold %s", result.Verdict.Status, threshold)
		}
	}

	return nil
}

func runServe(flags serveFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return codeError(3, "loading config: %s", err)
	}

	modelStr, err := resolveModel(cfg, false)
	if err != nil {
		return err
	}

	provider, err := llm.NewProvider(modelStr)
	if err != nil {
		return codeError(4, "creating LLM provider: %s", err)
	}

	p := &pipeline.Pipeline{
		Provider:    provider,
		Resolver:    escalate.NewResolver(cfg.ExtraTriggers...),
		Temperature: flags.temperature,
		MaxTokens:   flags.maxTokens,
	}
	if flags.verbose {
		p.Logf = func(format string, args ...any) {
			logVerbose(true, format, args...)
		}
	}

	srv := &http.Server{
		Addr:              flags.addr,
		Handler:           api.NewRouter(p),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logVerbose(true, "Listening on %s (model: %s)", flags.addr, modelStr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return codeError(5, "server: %s", err)
	}
	return nil
}

func runHistory(dbPath, sessionID string) error {
	if dbPath == "" {
		return codeError(3, "--session-db is required")
	}
	store, err := session.Open(dbPath)
	if err != nil {
		return codeError(3, "opening session store: %s", err)
	}
	defer store.Close() //nolint:errcheck

	entries, err := store.History(context.Background(), sessionID)
	if err != nil {
		return codeError(3, "reading history: %s", err)
	}
	for _, e := range entries {
		payload := e.Query
		if e.Action == "agent_response" {
			payload = e.Response
		}
		fmt.Printf("[%s] %s: %s\n", e.Timestamp, e.Action, payload)
	}
	return nil
}

// resolveModel picks the model string: env var, then config file, then the
// built-in default. --offline requires the env var.
func resolveModel(cfg *config.Config, offline bool) (string, error) {
	rawModel := os.Getenv("REGCRITIC_MODEL")
	if offline && rawModel == "" {
		return "", codeError(3, "REGCRITIC_MODEL environment variable not set (required with --offline)")
	}
	if rawModel != "" {
		return rawModel, nil
	}
	if cfg.Model != "" {
		return cfg.Model, nil
	}
	fmt.Fprintf(os.Stderr, "WARN: REGCRITIC_MODEL not set, using default %s\n", defaultModel)
	return defaultModel, nil
}

// flagChanged reports whether a float flag differs from its default.
func flagChanged(v, def float64) bool {
	return v != def
}

// validateScanFlags returns an error if any flag value is invalid.
func validateScanFlags(flags scanFlags) error {
	switch flags.format {
	case "block", "json", "md":
	default:
		return fmt.Errorf("--format must be block, json, or md, got %q", flags.format)
	}

	if flags.failOn != "" {
		switch schema.Status(flags.failOn) {
		case schema.StatusWarning, schema.StatusViolation:
		default:
			return fmt.Errorf("--fail-on must be WARNING or VIOLATION, got %q", flags.failOn)
		}
	}

	if flags.temperature < 0 || flags.temperature > 2 {
		return fmt.Errorf("--temperature must be between 0.0 and 2.0, got %g", flags.temperature)
	}

	if flags.maxTokens <= 0 {
		return fmt.Errorf("--max-tokens must be > 0, got %d", flags.maxTokens)
	}

	return nil
}

// logVerbose writes a message to stderr when verbose mode is enabled.
func logVerbose(verbose bool, format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "INFO: "+format+"\n", args...)
	}
}
