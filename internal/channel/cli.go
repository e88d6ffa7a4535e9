// Package channel holds the terminal front end for the dispatcher.
package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"domainbot/internal/dispatch"
)

// Handler runs one request. *dispatch.Dispatcher implements it.
type Handler interface {
	Handle(ctx context.Context, in dispatch.Input) (*dispatch.Outcome, error)
}

// CLI is an interactive prompt loop over a Handler.
type CLI struct {
	handler Handler
	logger  *slog.Logger
	in      io.Reader
	out     io.Writer
	asJSON  bool
	domain  string // pinned domain, "" routes every prompt
}

// CLIConfig wires a CLI. In and Out default to stdin and stdout.
type CLIConfig struct {
	Handler Handler
	Logger  *slog.Logger
	In      io.Reader
	Out     io.Writer
	JSON    bool
	Domain  string
}

// NewCLI builds a REPL from cfg.
func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CLI{
		handler: cfg.Handler,
		logger:  cfg.Logger,
		in:      cfg.In,
		out:     cfg.Out,
		asJSON:  cfg.JSON,
		domain:  cfg.Domain,
	}
}

// Start runs the REPL until EOF, /quit, or ctx is cancelled.
//
// Commands: /domain NAME pins a domain, /domain clears it, /quit exits.
func (c *CLI) Start(ctx context.Context) error {
	fmt.Fprintln(c.out, "domainbot. Type a request and press Enter. /domain NAME pins a domain, /quit exits.")
	c.prompt()

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit" || line == "/exit" || line == "/q":
			c.logger.Info("user requested quit")
			return nil
		case line == "/domain" || strings.HasPrefix(line, "/domain "):
			c.domain = strings.TrimSpace(strings.TrimPrefix(line, "/domain"))
			if c.domain == "" {
				fmt.Fprintln(c.out, "routing by keywords")
			} else {
				fmt.Fprintf(c.out, "pinned to %s\n", c.domain)
			}
		default:
			c.handle(ctx, line)
		}
		c.prompt()
	}
}

func (c *CLI) handle(ctx context.Context, line string) {
	out, err := c.handler.Handle(ctx, dispatch.Input{Prompt: line, Domain: c.domain})
	if err != nil {
		c.logger.Error("dispatch failed", "err", err)
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	if err := Render(c.out, out, c.asJSON); err != nil {
		c.logger.Error("render failed", "err", err)
	}
}

func (c *CLI) prompt() {
	fmt.Fprint(c.out, "You> ")
}
