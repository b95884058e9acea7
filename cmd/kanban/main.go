// Command kanban is the kitchen board: a terminal view of active orders kept
// live over the staff websocket.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"menu-service/internal/changefeed"
	"menu-service/internal/kanban"
	"menu-service/internal/realtime"
	"menu-service/pkg/logger"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	api            string
	token          string
	timeout        time.Duration
	resyncInterval time.Duration
	debug          bool
}

func rootCmd() *cobra.Command {
	var opt options

	cmd := &cobra.Command{
		Use:          "kanban",
		Short:        "Kitchen order board",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opt.api, "api", envOr("KANBAN_API", "http://localhost:8080"), "Service base URL")
	cmd.PersistentFlags().StringVar(&opt.token, "token", os.Getenv("KANBAN_TOKEN"), "Staff bearer token")
	cmd.PersistentFlags().DurationVar(&opt.timeout, "timeout", 35*time.Second, "Request timeout")
	cmd.PersistentFlags().BoolVar(&opt.debug, "debug", false, "Development logging")

	board := &cobra.Command{
		Use:   "board",
		Short: "Show the live board; r refreshes, a <id> advances an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd.Context(), opt)
		},
	}
	board.Flags().DurationVar(&opt.resyncInterval, "resync", 60*time.Second, "Full resync interval")

	advance := &cobra.Command{
		Use:   "advance <order-id>",
		Short: "Move one order to its next status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdvance(cmd.Context(), opt, args[0])
		},
	}

	cmd.AddCommand(board, advance)
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setup(opt options) (*zap.Logger, error) {
	if opt.token == "" {
		return nil, errors.New("--token or KANBAN_TOKEN is required")
	}
	if err := logger.Init(opt.debug); err != nil {
		return nil, err
	}
	return logger.L(), nil
}

func runAdvance(ctx context.Context, opt options, ref string) error {
	log, err := setup(opt)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := kanban.NewClient(opt.api, opt.token, opt.timeout)
	rec := realtime.NewReconciler(realtime.DefaultReconcilerConfig())
	b := kanban.NewBoard(client, rec, func(n realtime.Notice) {
		fmt.Printf("%s: %s\n", n.Kind, n.Message)
	}, log)

	if err := b.Resync(ctx); err != nil {
		return err
	}
	id, err := b.Resolve(ref)
	if err != nil {
		return err
	}
	if err := b.Advance(ctx, id); err != nil {
		return err
	}
	o, _ := rec.Get(id)
	fmt.Printf("%s is now %s\n", id, o.Status)
	return nil
}

type screen struct {
	mu      sync.Mutex
	notices []string
	dirty   chan struct{}
}

func (s *screen) note(msg string) {
	s.mu.Lock()
	s.notices = append(s.notices, time.Now().Format("15:04:05")+" "+msg)
	if len(s.notices) > 5 {
		s.notices = s.notices[len(s.notices)-5:]
	}
	s.mu.Unlock()
	s.touch()
}

func (s *screen) touch() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *screen) draw(b *kanban.Board) {
	fmt.Print("\033[H\033[2J")
	_ = b.Render(os.Stdout, time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notices {
		fmt.Println(n)
	}
	fmt.Print("> ")
}

func runBoard(ctx context.Context, opt options) error {
	log, err := setup(opt)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scr := &screen{dirty: make(chan struct{}, 1)}
	client := kanban.NewClient(opt.api, opt.token, opt.timeout)
	rec := realtime.NewReconciler(realtime.DefaultReconcilerConfig())
	b := kanban.NewBoard(client, rec, func(n realtime.Notice) {
		scr.note(fmt.Sprintf("%s %s", n.Kind, n.Message))
	}, log)

	resync := func() {
		if err := b.Resync(ctx); err != nil && ctx.Err() == nil {
			scr.note("resync failed: " + err.Error())
			return
		}
		scr.touch()
	}

	feed := kanban.NewFeed(client.FeedURL(), func(ev changefeed.Event) {
		b.HandleEvent(ev)
		scr.touch()
	}, log)

	connCfg := realtime.DefaultConnectionConfig()
	connCfg.OnReady = func() { go resync() }
	connCfg.OnState = func(s realtime.State, attempts int) {
		b.ConnectionChanged(s, attempts)
		scr.touch()
	}
	conn := realtime.NewConnectionManager(feed, connCfg, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return conn.Run(gctx) })

	g.Go(func() error {
		t := time.NewTicker(opt.resyncInterval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				resync()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-scr.dirty:
				scr.draw(b)
			}
		}
	})

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
		close(lines)
	}()

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					conn.Close()
					stop()
					return nil
				}
				if quit := handleCommand(gctx, b, conn, scr, line, resync); quit {
					conn.Close()
					stop()
					return nil
				}
			}
		}
	})

	return g.Wait()
}

// handleCommand reports whether the user asked to quit.
func handleCommand(ctx context.Context, b *kanban.Board, conn *realtime.ConnectionManager, scr *screen, line string, resync func()) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		scr.touch()
		return false
	}
	switch fields[0] {
	case "r":
		conn.Refresh()
		go resync()
	case "a":
		if len(fields) != 2 {
			scr.note("usage: a <order-id>")
			return false
		}
		id, err := b.Resolve(fields[1])
		if err != nil {
			scr.note(err.Error())
			return false
		}
		go func() {
			if err := b.Advance(ctx, id); err != nil && !errors.Is(err, kanban.ErrBusy) {
				scr.note(fmt.Sprintf("%s: %v", id.String()[:8], err))
			}
			scr.touch()
		}()
		scr.touch()
	case "q":
		return true
	default:
		scr.note("commands: r, a <id>, q")
	}
	return false
}
