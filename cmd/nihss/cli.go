package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/nihss/internal/config"
	"github.com/hpungsan/nihss/internal/errors"
	"github.com/hpungsan/nihss/internal/form"
	"github.com/hpungsan/nihss/internal/history"
	"github.com/hpungsan/nihss/internal/scale"
	"github.com/hpungsan/nihss/internal/web"
)

// appEnv holds what the commands operate on.
type appEnv struct {
	store *history.Store
	cfg   *config.Config
	log   zerolog.Logger
	now   func() time.Time
}

func (e *appEnv) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "nihss",
		Usage:   "NIH Stroke Scale scoring and assessment history",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			itemsCmd(),
			scoreCmd(),
			saveCmd(env),
			listCmd(env),
			showCmd(env),
			deleteCmd(env),
			clearCmd(env),
			exportCmd(env),
			importCmd(env),
			deviceIDCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// itemsCmd creates the items command.
func itemsCmd() *cli.Command {
	return &cli.Command{
		Name:  "items",
		Usage: "List the scale items and their score options",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ids", Usage: "Print item ids only, one per line"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("ids") {
				for _, id := range scale.ItemIDs() {
					fmt.Fprintln(c.App.Writer, id)
				}
				return nil
			}
			return outputJSON(c.App.Writer, map[string]any{
				"items":     scale.Items(),
				"bands":     scale.Bands(),
				"max_total": scale.MaxTotal(),
			})
		},
	}
}

// scoreCmd creates the score command.
func scoreCmd() *cli.Command {
	return &cli.Command{
		Name:      "score",
		Usage:     "Compute total and severity for item=score pairs without saving",
		ArgsUsage: "[item=score ...]",
		Action: func(c *cli.Context) error {
			sel, err := parseScoreArgs(c.Args().Slice())
			if err != nil {
				return outputError(err)
			}

			total := scale.CalculateTotal(sel)
			severity := scale.ClassifySeverity(total)
			missing := scale.Missing(sel)
			if missing == nil {
				missing = []string{}
			}
			return outputJSON(c.App.Writer, map[string]any{
				"total":          total,
				"severity":       severity,
				"severity_label": severity.Label(),
				"answered":       sel.Len(),
				"missing":        missing,
				"complete":       len(missing) == 0,
			})
		},
	}
}

// saveCmd creates the save command.
func saveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save an assessment from item=score pairs",
		ArgsUsage: "[item=score ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "notes", Aliases: []string{"n"}, Usage: "Free-text notes"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Save even if require_complete is set and items are missing"},
		},
		Action: func(c *cli.Context) error {
			sel, err := parseScoreArgs(c.Args().Slice())
			if err != nil {
				return outputError(err)
			}
			sess := form.FromSelections(sel, c.String("notes")).WithClock(env.clock)
			sess.RequireComplete = env.cfg.RequireComplete && !c.Bool("force")

			a, err := sess.Save(env.store)
			if err != nil {
				return outputError(err)
			}
			env.log.Debug().Str("id", a.ID).Msg("saved from cli")

			return outputJSON(c.App.Writer, a)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List saved assessments, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "severity", Aliases: []string{"s"}, Usage: "Filter by band: minor|mild|moderate|severe"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum results (0 = all)"},
		},
		Action: func(c *cli.Context) error {
			var filter scale.Severity
			if s := c.String("severity"); s != "" {
				sev, err := scale.ParseSeverity(s)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				filter = sev
			}
			limit := c.Int("limit")
			if limit < 0 {
				return outputError(errors.NewInvalidRequest("limit must be >= 0"))
			}

			res := env.store.List()
			records := make([]scale.Assessment, 0, len(res.Assessments))
			for _, a := range res.Assessments {
				if filter != "" && a.Severity != filter {
					continue
				}
				records = append(records, a)
				if limit > 0 && len(records) == limit {
					break
				}
			}

			return outputJSON(c.App.Writer, map[string]any{
				"assessments": records,
				"summary":     history.Summarize(res.Assessments),
				"recovered":   res.Recovered,
			})
		},
	}
}

// showCmd creates the show command.
func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one assessment with a per-item breakdown",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			a, ok := env.store.Get(id)
			if !ok {
				return outputError(errors.NewNotFound(id))
			}
			return outputJSON(c.App.Writer, map[string]any{
				"assessment":     a,
				"severity_label": a.Severity.Label(),
				"breakdown":      scale.Breakdown(a.Items),
			})
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an assessment by id",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			_, existed := env.store.Get(id)
			if err := env.store.Delete(id); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(c.App.Writer, map[string]any{"id": id, "deleted": existed})
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete all saved assessments (the device id is kept)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm deletion"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("refusing to clear history without --yes"))
			}
			count := len(env.store.List().Assessments)
			if err := env.store.ClearAll(); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(c.App.Writer, map[string]any{"cleared": count})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export history as a JSON array",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output .json file (default: ~/.nihss/exports/nihss-<time>.json)"},
			&cli.BoolFlag{Name: "stdout", Usage: "Write the JSON to stdout instead of a file"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("stdout") {
				out, err := env.store.ExportAll()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				_, err = fmt.Fprintln(c.App.Writer, out)
				return err
			}

			output, err := env.store.ExportFile(env.cfg, c.String("path"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Merge assessments from an export file",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			output, err := env.store.ImportFile(env.cfg, path)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// deviceIDCmd creates the device-id command.
func deviceIDCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "device-id",
		Usage: "Print this installation's device identifier",
		Action: func(c *cli.Context) error {
			id, err := env.store.DeviceID()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			_, err = fmt.Fprintln(c.App.Writer, id)
			return err
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (overrides web_bind)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (overrides web_port)"},
		},
		Action: func(c *cli.Context) error {
			cfg := *env.cfg
			if c.IsSet("bind") {
				cfg.WebBind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.WebPort = c.Int("port")
			}
			if cfg.WebPort <= 0 || cfg.WebPort > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid port %d", cfg.WebPort)))
			}

			srv, err := web.NewServer(env.store, &cfg, Version, env.log)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, env.log)
		},
	}
}

// Helper functions

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sErr *errors.ScaleError
	if stderrors.As(err, &sErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseScoreArgs parses "item=score" arguments. A repeated item keeps the
// last value.
func parseScoreArgs(args []string) (scale.Selections, error) {
	var sel scale.Selections
	for _, arg := range args {
		id, raw, ok := strings.Cut(arg, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return scale.Selections{}, errors.NewInvalidRequest(fmt.Sprintf("expected item=score, got %q", arg))
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return scale.Selections{}, errors.NewInvalidRequest(fmt.Sprintf("score for %q must be an integer", id))
		}
		if err := sel.Set(id, v); err != nil {
			return scale.Selections{}, err
		}
	}
	return sel, nil
}
