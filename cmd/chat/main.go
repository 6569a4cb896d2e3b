// Command chat is a terminal version of the embeddable chat widget. It verifies
// its origin with the relay once, then streams every answer into stdout.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/gambadio/Luca-Chat/internal/transcript"
)

func main() {
	server := pflag.StringP("server", "s", "http://localhost:8080", "relay base URL")
	origin := pflag.StringP("origin", "o", "http://localhost:8080", "origin to present to the relay")
	timeout := pflag.Duration("timeout", 3*time.Minute, "maximum duration of one chat turn")
	debug := pflag.Bool("debug", false, "log protocol details to stderr")
	pflag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller := transcript.NewController(transcript.Options{BaseURL: *server, Origin: *origin})
	renderer := transcript.NewTerminalRenderer(os.Stdout)

	if err := controller.VerifyDomain(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "could not verify %s with %s: %v\n", *origin, *server, err)
		os.Exit(1)
	}

	fmt.Println("Type a message. /restart starts over, /quit exits.")
	controller.Welcome(renderer)

	input := bufio.NewScanner(os.Stdin)
	for input.Scan() {
		line := strings.TrimSpace(input.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/restart":
			controller.Restart(renderer)
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, *timeout)
		_, err := controller.Submit(turnCtx, line, renderer)
		cancel()
		if err != nil && !errors.Is(err, transcript.ErrTurnFailed) {
			slog.Error("Chat turn failed", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
