package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/classdesk/pkg/client"
	"github.com/vanderheijden86/classdesk/pkg/config"
	"github.com/vanderheijden86/classdesk/pkg/export"
	"github.com/vanderheijden86/classdesk/pkg/ui"
	"github.com/vanderheijden86/classdesk/pkg/version"
)

type cliFlags struct {
	help       bool
	version    bool
	configPath string
	server     string
	token      string
	view       string
	robotTree  bool
	exportFile string
	setup      bool
	debug      bool
}

func parseFlags(args []string, out io.Writer) (cliFlags, *flag.FlagSet, error) {
	var f cliFlags
	fs := flag.NewFlagSet("classdesk", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.BoolVar(&f.help, "help", false, "Show help")
	fs.BoolVar(&f.version, "version", false, "Show version")
	fs.StringVar(&f.configPath, "config", "", "Path to config file (default: search $CLASSDESK_CONFIG, $XDG_CONFIG_HOME, ~/.config)")
	fs.StringVar(&f.server, "server", "", "Backend URL including the API prefix (e.g. http://localhost:8080/api)")
	fs.StringVar(&f.token, "token", "", "Bearer token for the backend")
	fs.StringVar(&f.view, "view", "", "Initial view: tree or list")
	fs.BoolVar(&f.robotTree, "robot-tree", false, "Output every class with its sections as JSON")
	fs.StringVar(&f.exportFile, "export-md", "", "Export classes and sections to a Markdown file (e.g., report.md)")
	fs.BoolVar(&f.setup, "setup", false, "Interactively write the config file")
	fs.BoolVar(&f.debug, "debug", false, "Write debug logs to classdesk-debug.log")
	err := fs.Parse(args)
	return f, fs, err
}

// apply layers flag overrides over the loaded config. --server carries the
// API prefix, so it replaces both.
func (f cliFlags) apply(cfg *config.Config) {
	if f.server != "" {
		cfg.Server.URL = strings.TrimRight(f.server, "/")
		cfg.Server.APIPrefix = ""
	}
	if f.token != "" {
		cfg.Server.Token = f.token
	}
	if f.view != "" {
		cfg.UI.DefaultView = f.view
	}
}

func newClient(cfg config.Config) (*client.HTTPClient, error) {
	return client.New(client.Options{
		BaseURL: cfg.BaseURL(),
		Token:   cfg.Server.Token,
		Timeout: cfg.Server.Timeout,
	})
}

// collect builds a snapshot bounded by a deadline proportional to the
// number of requests it may need.
func collect(res client.Resources, cfg config.Config) (*export.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*cfg.Server.Timeout)
	defer cancel()
	return export.Collect(ctx, res, cfg.Export.Concurrency)
}

func main() {
	f, fs, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if f.help {
		fmt.Println("Usage: classdesk [options]")
		fmt.Println("\nA terminal manager for school classes and their sections.")
		fs.PrintDefaults()
		os.Exit(0)
	}

	if f.version {
		fmt.Printf("classdesk %s\n", version.Version)
		os.Exit(0)
	}

	if f.setup {
		if err := runSetup(f.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, cfgPath, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	f.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	res, err := newClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if f.robotTree {
		snap, err := collect(res, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error collecting classes: %v\n", err)
			os.Exit(1)
		}
		if err := export.WriteJSON(os.Stdout, snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if f.exportFile != "" {
		fmt.Printf("Exporting to %s...\n", f.exportFile)
		snap, err := collect(res, cfg)
		if err != nil {
			fmt.Printf("Error collecting classes: %v\n", err)
			os.Exit(1)
		}
		if err := export.SaveMarkdownToFile(snap, f.exportFile); err != nil {
			fmt.Printf("Error exporting: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Done!")
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: the interactive view needs a terminal; use --robot-tree or --export-md instead")
		os.Exit(1)
	}

	view, err := ui.ParseViewKind(cfg.UI.DefaultView)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogging(f.debug, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	if cfgPath != "" {
		log.Printf("config loaded from %s", cfgPath)
	}

	m := ui.NewModel(res, ui.Options{
		View:          view,
		ExpandOnStart: cfg.UI.ExpandOnStart,
		ServerLabel:   serverLabel(cfg),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if err := runProgram(p.Run, closeLog); err != nil {
		fmt.Printf("Error running classdesk: %v\n", err)
		os.Exit(1)
	}
}

// runProgram runs the TUI and closes the log before returning, so the caller
// may exit right after.
func runProgram(run func() (tea.Model, error), closeLog func()) error {
	defer closeLog()
	if _, err := run(); err != nil {
		log.Printf("program exited: %v", err)
		return err
	}
	return nil
}

// setupLogging keeps log output off the terminal while the TUI owns it.
func setupLogging(debug bool, file string) (func(), error) {
	if file == "" && debug {
		file = "classdesk-debug.log"
	}
	if file == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	lf, err := tea.LogToFile(file, "classdesk")
	if err != nil {
		return nil, err
	}
	return func() { lf.Close() }, nil
}

// serverLabel is the host shown in the footer.
func serverLabel(cfg config.Config) string {
	label := strings.TrimPrefix(strings.TrimPrefix(cfg.Server.URL, "https://"), "http://")
	return strings.TrimRight(label, "/")
}

// runSetup asks for the connection settings and writes them to path, or to
// the default location when path is empty.
func runSetup(path string) error {
	if path == "" {
		path = config.DefaultPath()
	}
	cfg := config.DefaultConfig()
	if existing, _, err := config.Load(path); err == nil {
		cfg = existing
	}

	timeout := cfg.Server.Timeout.String()
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Scheme and host of the administration backend").
				Value(&cfg.Server.URL).
				Validate(func(s string) error {
					probe := cfg
					probe.Server.URL = s
					return probe.Validate()
				}),
			huh.NewInput().
				Title("API prefix").
				Value(&cfg.Server.APIPrefix),
			huh.NewInput().
				Title("Token").
				Description("Leave empty if the backend needs no authentication").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Server.Token),
			huh.NewInput().
				Title("Request timeout").
				Value(&timeout).
				Validate(func(s string) error {
					d, err := time.ParseDuration(s)
					if err != nil || d <= 0 {
						return fmt.Errorf("enter a positive duration such as 10s")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Start in").
				Options(
					huh.NewOption("Class tree", "tree"),
					huh.NewOption("Section list", "list"),
				).
				Value(&cfg.UI.DefaultView),
			huh.NewConfirm().
				Title("Expand every class on start?").
				Value(&cfg.UI.ExpandOnStart),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return fmt.Errorf("setup: %w", err)
	}

	d, err := time.ParseDuration(timeout)
	if err != nil {
		return fmt.Errorf("setup: timeout: %w", err)
	}
	cfg.Server.Timeout = d
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
