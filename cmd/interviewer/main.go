package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avoronov/interviewer/internal/completion"
	"github.com/avoronov/interviewer/internal/evaluate"
	"github.com/avoronov/interviewer/internal/handler"
	"github.com/avoronov/interviewer/internal/model"
	"github.com/avoronov/interviewer/internal/persona"
	"github.com/avoronov/interviewer/internal/question"
	"github.com/avoronov/interviewer/internal/report"
	"github.com/avoronov/interviewer/internal/search"
	"github.com/avoronov/interviewer/internal/session"
	"github.com/avoronov/interviewer/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "interviewer",
		Short: "AI technical interview simulator",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), personasCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `interviewer --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP interview server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "interviewer.db", "SQLite database path")
	f.StringSliceP("questions", "q", []string{"questions/backend_en.json"}, "Paths to question JSON files (repeatable)")
	f.String("personas", "personas", "Directory with persona YAML files")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Int("preload", 100, "Questions preloaded per category pool")
	f.Int("refill-threshold", 20, "Pool size that triggers a background refill")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import question files into the bank",
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "interviewer.db", "SQLite database path")
	f.StringSliceP("questions", "q", nil, "Paths to question JSON files (repeatable)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("questions")

	return cmd
}

func personasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the available interviewer personas",
		RunE:  runPersonas,
	}
	cmd.Flags().String("personas", "personas", "Directory with persona YAML files")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INTERVIEWER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("interviewer")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/interviewer")
	v.AddConfigPath("/etc/interviewer")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := loadQuestions(db, v.GetStringSlice("questions")); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	personas, err := persona.Load(v.GetString("personas"))
	if err != nil {
		return fmt.Errorf("load personas: %w", err)
	}

	llm := completion.NewOpenAI(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := llm.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	bank := search.NewSQLiteBank(db.DB())
	repo := question.NewRepository(bank, question.Config{
		PreloadCount:    v.GetInt("preload"),
		RefillThreshold: v.GetInt("refill-threshold"),
	})

	retry := completion.DefaultRetryPolicy()
	evaluator := evaluate.NewEngine(llm, retry)
	reporter := report.NewGenerator(llm, retry)
	engine := session.NewEngine(repo, evaluator, reporter, personas, db, bank)

	h := handler.New(engine, personas)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"personas", strings.Join(personas.Names(), ","),
	)
	return http.ListenAndServe(addr, r)
}

func runImport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := loadQuestions(db, v.GetStringSlice("questions")); err != nil {
		return err
	}

	count, err := db.QuestionCount(context.Background())
	if err != nil {
		return err
	}
	slog.Info("question bank ready", "total", count)
	return nil
}

func runPersonas(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	personas, err := persona.Load(v.GetString("personas"))
	if err != nil {
		return fmt.Errorf("load personas: %w", err)
	}
	for _, p := range personas.All() {
		fmt.Printf("%s\t%s\n", p.Name, p.Description)
	}
	return nil
}

// questionImport is the JSON shape of one question in an import file. The id
// is optional; a stable one is derived from the text when absent.
type questionImport struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	Category        string   `json:"category"`
	Difficulty      string   `json:"difficulty"`
	Keywords        []string `json:"keywords"`
	ReferenceAnswer string   `json:"reference_answer"`
}

func loadQuestions(db *store.Store, paths []string) error {
	ctx := context.Background()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.ImportedFileHash(ctx, path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("questions file unchanged, skipping", "path", path)
			continue
		}

		var questions []questionImport
		if err := json.Unmarshal(data, &questions); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, qi := range questions {
			if qi.Text == "" {
				return fmt.Errorf("question without text in %s", path)
			}
			id := qi.ID
			if id == "" {
				id = sha256sum([]byte(qi.Text))[:16]
			}
			if err := db.InsertQuestion(ctx, model.QuestionRecord{
				ID:              id,
				Text:            qi.Text,
				Category:        qi.Category,
				Difficulty:      qi.Difficulty,
				Keywords:        qi.Keywords,
				ReferenceAnswer: qi.ReferenceAnswer,
			}); err != nil {
				return fmt.Errorf("insert question from %s: %w", path, err)
			}
		}

		if err := db.SetImportedFileHash(ctx, path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported questions", "path", path, "count", len(questions))
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
