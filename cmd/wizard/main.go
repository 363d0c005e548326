// Command wizard runs one import in the terminal and writes the result to
// a SQLite database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/logging"
	"github.com/JonMunkholm/sheetimport/internal/schema"
	"github.com/JonMunkholm/sheetimport/internal/sheet"
	"github.com/JonMunkholm/sheetimport/internal/store"
	"github.com/JonMunkholm/sheetimport/internal/tui"
)

func main() {
	var (
		schemaKey    = pflag.StringP("schema", "s", "", "schema to import into (required)")
		schemaFile   = pflag.String("schemas", "", "TOML schema file (default: built-in schemas)")
		translations = pflag.String("translations", "", "TOML file overriding user-facing strings")
		file         = pflag.StringP("file", "f", "", "CSV or XLSX file to upload on start")
		dest         = pflag.StringP("dest", "d", "import.db", "SQLite database to write to")
		createTables = pflag.Bool("create-tables", true, "create missing destination tables")
		updateModes  = pflag.Bool("update-modes", false, "offer update and appendUpdate modes")
		maxRecords   = pflag.Int("max-records", 10000, "maximum data rows per upload (0 = unlimited)")
		maxFileSize  = pflag.Int64("max-file-size", sheet.DefaultMaxFileSize, "maximum file size in bytes")
		logFile      = pflag.String("log-file", "wizard.log", "log file (the terminal is taken by the UI)")
		logLevel     = pflag.String("log-level", "info", "log level: debug, info, warn, error")
		list         = pflag.BoolP("list", "l", false, "list the available schemas and exit")
	)
	pflag.Parse()

	if err := run(options{
		schemaKey:    *schemaKey,
		schemaFile:   *schemaFile,
		translations: *translations,
		file:         *file,
		dest:         *dest,
		createTables: *createTables,
		updateModes:  *updateModes,
		maxRecords:   *maxRecords,
		maxFileSize:  *maxFileSize,
		logFile:      *logFile,
		logLevel:     *logLevel,
		list:         *list,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type options struct {
	schemaKey    string
	schemaFile   string
	translations string
	file         string
	dest         string
	createTables bool
	updateModes  bool
	maxRecords   int
	maxFileSize  int64
	logFile      string
	logLevel     string
	list         bool
}

func run(opts options) error {
	schemas := schema.Builtin()
	if opts.schemaFile != "" {
		loaded, err := schema.Load(opts.schemaFile)
		if err != nil {
			return err
		}
		schemas = loaded
	}

	if opts.list {
		for _, s := range schemas {
			fmt.Printf("%-20s %s (%d fields)\n", s.Key, s.Label, len(s.Fields))
		}
		return nil
	}
	if opts.schemaKey == "" {
		return fmt.Errorf("--schema is required (use --list to see the choices)")
	}

	text := core.DefaultTranslations()
	if opts.translations != "" {
		t, err := schema.LoadTranslations(opts.translations)
		if err != nil {
			return err
		}
		text = t
	}

	logger := logging.Discard()
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger = logging.New(f, opts.logLevel, "text")
	}
	slog.SetDefault(logger)

	ctx := context.Background()

	sink, err := store.OpenSQLite(opts.dest, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	reg := core.NewRegistry()
	if err := schema.Register(reg, schemas); err != nil {
		return err
	}
	if opts.createTables {
		s, _, ok := reg.Get(opts.schemaKey)
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrUnknownSchema, opts.schemaKey)
		}
		if err := sink.EnsureTable(ctx, s); err != nil {
			return err
		}
	}

	svc := core.NewService(reg, sink, core.ServiceOptions{
		Translations:    text,
		UpdateModes:     opts.updateModes,
		MaxRecords:      opts.maxRecords,
		AutoMapDistance: core.DefaultAutoMapDistance,
		Logger:          logger,
	})
	sess, err := svc.Start(opts.schemaKey)
	if err != nil {
		return err
	}
	defer svc.Remove(sess.ID)

	m := tui.New(ctx, tui.Options{
		Wizard: sess.Wizard,
		Reader: sheet.NewReader(opts.maxFileSize),
		File:   opts.file,
		Logger: logger,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run wizard: %w", err)
	}

	if sess.Wizard.Closed() && sess.Wizard.Selector().State() == core.SelectorClosed {
		fmt.Printf("Imported into %s (%s).\n", opts.dest, opts.schemaKey)
	}
	return nil
}
