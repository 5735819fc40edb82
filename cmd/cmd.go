// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles first-run setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, initialize the database and installation identity",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// chatCommand launches the interactive chat.
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "chat",
		Aliases: []string{"tui"},
		Usage:   "Open the interactive chat and course browser",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "poll",
				Usage: "Override the update poll interval",
			},
		},
		Action: r.Chat,
	}
}

// sendCommand sends a single message to the assistant.
func sendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Send one message to the assistant",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "message",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Accept a course confirmation without asking",
			},
			&cli.BoolFlag{
				Name:  "no",
				Usage: "Decline a course confirmation without asking",
			},
		},
		Action: r.Send,
	}
}

// checkCommand asks the backend for pushed updates once.
func checkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Check once for new messages and finished courses",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "study",
				Usage: "Start studying the first chapter of a received course",
			},
		},
		Action: r.Check,
	}
}

// coursesCommand handles local course operations.
func coursesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "courses",
		Aliases: []string{"c"},
		Usage:   "Browse, study and manage courses",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List courses with their progress",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CoursesList,
			},
			{
				Name:      "show",
				Usage:     "Show a course outline",
				Arguments: stringArgs("course"),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: txt, markdown, json, csv",
						Value:   "txt",
					},
				},
				Action: r.CoursesShow,
			},
			{
				Name:      "study",
				Usage:     "Fetch the study content for a chapter (numbered as in 'courses show')",
				Arguments: stringArgs("course", "chapter"),
				Action:    r.CoursesStudy,
			},
			{
				Name:      "complete",
				Usage:     "Mark a chapter in progress as completed",
				Arguments: stringArgs("course", "chapter"),
				Action:    r.CoursesComplete,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a course locally and on the backend",
				Arguments: stringArgs("course"),
				Action:    r.CoursesDelete,
			},
			{
				Name:   "sync",
				Usage:  "Replace local courses with the backend course list",
				Action: r.CoursesSync,
			},
			{
				Name:  "export",
				Usage: "Export courses to files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: courses_export_<epoch>)",
					},
					&cli.StringSliceFlag{
						Name:  "id",
						Usage: "Course id to export (repeatable, default: all)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent export workers",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Courses started per second (0 for unlimited)",
					},
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Sync with the backend before exporting",
					},
				},
				Action: r.CoursesExport,
			},
		},
	}
}

// historyCommand prints archived chat transcripts.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show archived chat transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "session",
				Aliases: []string{"s"},
				Usage:   "Session id (default: most recent)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Show at most this many of the latest messages (0 for all)",
			},
			&cli.BoolFlag{
				Name:  "sessions",
				Usage: "List archived sessions instead of messages",
			},
			&cli.BoolFlag{
				Name:  "markdown",
				Usage: "Render as markdown",
			},
		},
		Action: r.History,
	}
}

// apiCommand handles direct backend calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the assistant backend",
		Commands: []*cli.Command{
			{
				Name:   "endpoints",
				Usage:  "List the backend endpoints",
				Action: r.APIEndpoints,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body, prints the JSON response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "endpoint",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON object to send; userID is filled in when missing",
						Value:   "{}",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// devServerCommand runs the local development backend.
func devServerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "devserver",
		Usage: "Run a local backend that answers every endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default from config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default from config)",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "Latency added to every response (default from config)",
			},
		},
		Action: r.DevServer,
	}
}

func stringArgs(names ...string) []cli.Argument {
	args := make([]cli.Argument, 0, len(names))
	for _, name := range names {
		args = append(args, &cli.StringArg{Name: name})
	}
	return args
}
