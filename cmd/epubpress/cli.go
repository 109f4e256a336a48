package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/epubpress/internal/config"
	"github.com/hpungsan/epubpress/internal/errors"
	"github.com/hpungsan/epubpress/internal/ops"
	"github.com/hpungsan/epubpress/internal/session"
	"github.com/hpungsan/epubpress/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, sess *session.Session) *cli.App {
	app := &cli.App{
		Name:    "epubpress",
		Usage:   "E-book archive cache and library",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(db, cfg, sess),
			extractCmd(cfg, sess),
			lookupCmd(cfg, sess),
			addCmd(db, cfg),
			listCmd(db),
			filesCmd(db),
			notesCmd(db),
			deleteCmd(db),
			exportCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, sess *session.Session) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI and archive reader",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Listen address (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default from config)"},
			&cli.StringFlag{Name: "upstream", Usage: "Proxy unresolved archive requests to this URL"},
			&cli.StringFlag{Name: "static-dir", Usage: "Serve unresolved archive requests from this directory"},
		},
		Action: func(c *cli.Context) error {
			serveCfg := *cfg
			if v := c.String("upstream"); v != "" {
				serveCfg.UpstreamURL = v
			}
			if v := c.String("static-dir"); v != "" {
				serveCfg.StaticDir = v
			}

			bind := serveCfg.Bind
			if v := c.String("bind"); v != "" {
				bind = v
			}
			port := serveCfg.Port
			if c.IsSet("port") {
				port = c.Int("port")
			}

			srv, err := web.NewServer(db, &serveCfg, sess, Version, bind, port)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			return web.Run(srv)
		},
	}
}

// extractCmd creates the extract command.
func extractCmd(cfg *config.Config, sess *session.Session) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract an archive and print the processing status message",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("archive path is required"))
			}

			reply, err := ops.ProcessFile(c.Context, cfg, sess, ops.ProcessFileInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(reply); err != nil {
				return err
			}
			if !reply.OK() {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// lookupCmd creates the lookup command.
func lookupCmd(cfg *config.Config, sess *session.Session) *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "Extract an archive and print one entry",
		ArgsUsage: "<path> <entry>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print entry metadata and content as JSON"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("archive path and entry are required"))
			}

			reply, err := ops.ProcessFile(c.Context, cfg, sess, ops.ProcessFileInput{Path: c.Args().Get(0)})
			if err != nil {
				return outputError(err)
			}
			if !reply.OK() {
				return cli.Exit(reply.Error, 1)
			}

			entry, err := ops.ArchiveLookup(sess.Resolver(), sess.Store(), ops.ArchiveLookupInput{Path: c.Args().Get(1)})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("json") {
				return outputJSON(entry)
			}
			if entry.Data != nil {
				_, err = os.Stdout.Write(entry.Data)
				return err
			}
			_, err = io.WriteString(os.Stdout, entry.Text)
			return err
		},
	}
}

// addCmd creates the add command.
func addCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add an archive to the library",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Display title (defaults to the file name)"},
			&cli.StringFlag{Name: "notes", Usage: "Markdown notes"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("archive path is required"))
			}

			input := ops.AddBookInput{Path: c.Args().First()}
			if title := c.String("title"); title != "" {
				input.Title = &title
			}
			if notes := c.String("notes"); notes != "" {
				input.Notes = &notes
			}

			output, err := ops.AddBook(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List library books, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListBooks(c.Context, db, ops.ListBooksInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// filesCmd creates the files command.
func filesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "files",
		Usage:     "List the files stored for a book",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.BookFiles(c.Context, db, ops.BookFilesInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// notesCmd creates the notes command.
func notesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "notes",
		Usage:     "Replace a book's notes (reads markdown from stdin)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("notes must be piped via stdin"))
			}
			notes, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			output, err := ops.UpdateNotes(c.Context, db, ops.UpdateNotesInput{
				ID:    c.Args().First(),
				Notes: &notes,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a book and its stored files",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.DeleteBook(c.Context, db, ops.DeleteBookInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a book's stored archive to disk",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.epubpress/library/<title>-<timestamp>.epub)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ExportBook(c.Context, db, cfg, ops.ExportBookInput{
				ID:   c.Args().First(),
				Path: c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if pErr, ok := err.(*errors.PressError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", pErr.Code, pErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
