package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/primer/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	defaultDaemonAddr = "http://127.0.0.1:7432"
	pidFile           = "primerd.pid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "config":
		err = cmdConfig()
	case "validate":
		err = cmdValidate(args)
	case "lessons":
		err = cmdLessons()
	case "show":
		err = cmdShow(args)
	case "score":
		err = cmdScore(args)
	case "schema":
		err = cmdSchema()
	case "submit":
		err = cmdSubmit(args)
	case "progress":
		err = cmdProgress(args)
	case "watch":
		err = cmdWatch()
	case "mcp":
		err = cmdMCP(args)
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("primer %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Primer - Tutorial lessons with validated content and scoring

Usage:
  primer <command> [arguments]

Setup Commands:
  init                          Create ~/.primer and a default config
  config                        Show current configuration

Daemon Commands:
  start                         Start the primer daemon
  stop                          Stop the primer daemon
  status                        Show daemon status
  logs                          View daemon logs

Content Commands:
  validate [path]               Validate every lesson in a content tree
  lessons                       List lessons in authored order
  show <lesson>                 Print a lesson record as YAML
  score <lesson> <file>         Score a responses file against a lesson
  schema                        Print the lesson JSON Schema

Learner Commands (require the daemon):
  submit <learner> <lesson> <file>  Record a scored attempt
  progress <learner>            Show best score per lesson
  watch                         Follow scored attempts from RabbitMQ

Integration Commands:
  mcp [--http <addr>]           Start MCP server on stdio, or on HTTP

Other:
  help                          Show this help message
  version                       Show version information

Examples:
  primer validate ./content                      # Check authored lessons
  primer score 1-basics/1-getting-started a.yaml # Score locally
  primer start                                   # Start daemon
  primer progress ada                            # Show ada's progress`)
}

// daemonAddr returns the base URL of the daemon from the local config
func daemonAddr() string {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return defaultDaemonAddr
	}
	return "http://" + cfg.Addr()
}

// renderProgressBar creates a visual progress bar
func renderProgressBar(value float64, width int) string {
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}
