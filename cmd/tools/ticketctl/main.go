package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/zhouzirui/z-support/backend/internal/config"
	"github.com/zhouzirui/z-support/backend/internal/service/support"
	ticketstore "github.com/zhouzirui/z-support/backend/internal/store/ticket"
)

const usage = `ticketctl 客服工单管理工具

Usage:
  ticketctl list [--status open|closed|all] [--limit N]
  ticketctl show <ticket-id>
  ticketctl reply <ticket-id> <text...>
  ticketctl close <ticket-id>
  ticketctl normalize

存储位置由 TICKET_STORE_* 环境变量决定，与 API 服务一致。
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" || os.Args[1] == "help" {
		fmt.Fprint(os.Stderr, usage)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	ctx := context.Background()
	store, closer, err := cfg.Store.OpenStore(ctx)
	if err != nil {
		log.Fatalf("打开工单存储失败: %v", err)
	}
	defer closer.Close()

	if err := run(ctx, store, os.Args[1:], os.Stdout); err != nil {
		closer.Close()
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

// run dispatches a subcommand against store and writes its output to out.
func run(ctx context.Context, store *ticketstore.Store, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("missing subcommand")
	}
	svc := support.NewService(store)
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "list":
		return runList(ctx, svc, rest, out)
	case "show":
		if len(rest) != 1 {
			return errors.New("usage: show <ticket-id>")
		}
		view, err := svc.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		printTicket(out, view)
		return nil
	case "reply":
		if len(rest) < 2 {
			return errors.New("usage: reply <ticket-id> <text...>")
		}
		view, err := svc.Reply(ctx, rest[0], strings.Join(rest[1:], " "))
		if err != nil {
			return err
		}
		printTicket(out, view)
		return nil
	case "close":
		if len(rest) != 1 {
			return errors.New("usage: close <ticket-id>")
		}
		view, err := svc.CloseTicket(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s closed\n", view.ID)
		return nil
	case "normalize":
		return runNormalize(ctx, store, out)
	default:
		return fmt.Errorf("unknown subcommand %q", cmd)
	}
}

func runList(ctx context.Context, svc *support.Service, args []string, out io.Writer) error {
	flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	rawStatus := flagSet.StringP("status", "s", "open", "工单状态: open, closed 或 all")
	limit := flagSet.IntP("limit", "n", 0, "最多显示的工单数量 (0 表示不限)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	status, ok := support.ParseStatus(*rawStatus)
	if !ok {
		return fmt.Errorf("invalid --status %q", *rawStatus)
	}
	if *limit < 0 {
		return fmt.Errorf("invalid --limit %d", *limit)
	}

	views, err := svc.List(ctx, support.ListFilter{Status: status, Limit: *limit})
	if err != nil {
		return err
	}
	if len(views) == 0 {
		fmt.Fprintln(out, "no tickets")
		return nil
	}
	for _, v := range views {
		state := "open"
		if v.Closed {
			state = "closed"
		}
		fmt.Fprintf(out, "%-24s %-6s %3d msgs  last=%s\n", v.ID, state, len(v.Messages), v.Ticket().LastActivity())
	}
	return nil
}

// runNormalize loads the document once so legacy shapes are migrated and written back.
func runNormalize(ctx context.Context, store *ticketstore.Store, out io.Writer) error {
	raw, err := store.LoadRaw(ctx)
	var corrupt *ticketstore.CorruptError
	switch {
	case errors.As(err, &corrupt):
		fmt.Fprintf(out, "document is corrupt: %v\n", corrupt)
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "document shape: %s\n", shapeName(raw))
	}

	tickets, err := store.Load(ctx)
	if err != nil {
		return err
	}
	open := 0
	for _, t := range tickets {
		if !t.Closed {
			open++
		}
	}
	fmt.Fprintf(out, "%d tickets (%d open) saved in canonical form\n", len(tickets), open)
	return nil
}

func shapeName(doc ticketstore.RawDocument) string {
	switch doc.(type) {
	case ticketstore.EmptyDocument:
		return "empty"
	case ticketstore.FlatList:
		return "flat message list"
	case ticketstore.ScalarDocument:
		return "scalar"
	case ticketstore.IDMap:
		return "ticket map"
	}
	return "unknown"
}

func printTicket(out io.Writer, view support.TicketView) {
	state := "open"
	if view.Closed {
		state = "closed"
	}
	fmt.Fprintf(out, "%s [%s] created %s\n", view.ID, state, view.CreatedAt)
	for _, m := range view.Messages {
		fmt.Fprintf(out, "  %s %-5s %s\n", m.Time, m.Role, m.Text)
	}
}
