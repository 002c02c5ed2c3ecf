// Command itemsctl is a command-line client for the items API.
//
//	itemsctl [--addr URL] list
//	itemsctl [--addr URL] get ID
//	itemsctl [--addr URL] create --name NAME [--description TEXT]
//	itemsctl [--addr URL] update ID [--name NAME] [--description TEXT]
//	itemsctl [--addr URL] delete ID
//	itemsctl [--addr URL] tui
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/vyrodovalexey/items-api/internal/client"
	"github.com/vyrodovalexey/items-api/internal/model"
	"github.com/vyrodovalexey/items-api/internal/tui"
)

// EnvAddr overrides the default server address.
const EnvAddr = "ITEMS_ADDR"

const defaultAddr = "http://localhost:8080"

// errUsage marks errors caused by bad invocation.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fail(os.Stderr, err.Error())
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	addr := defaultAddr
	if env := os.Getenv(EnvAddr); env != "" {
		addr = env
	}

	global := pflag.NewFlagSet("itemsctl", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	global.StringVar(&addr, "addr", addr, "items API base URL (env "+EnvAddr+")")
	global.Usage = func() {
		fmt.Fprintln(stderr, "Usage: itemsctl [--addr URL] <list|get|create|update|delete|tui> [args]")
		global.PrintDefaults()
	}

	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return fmt.Errorf("%w: missing command", errUsage)
	}

	c, err := client.New(addr)
	if err != nil {
		return err
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "list":
		return runList(ctx, c, cmdArgs, stdout)
	case "get":
		return runGet(ctx, c, cmdArgs, stdout)
	case "create":
		return runCreate(ctx, c, cmdArgs, stdout, stderr)
	case "update":
		return runUpdate(ctx, c, cmdArgs, stdout, stderr)
	case "delete":
		return runDelete(ctx, c, cmdArgs, stdout)
	case "tui":
		return tui.Run(ctx, c)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func runList(ctx context.Context, c *client.Client, args []string, stdout io.Writer) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: list takes no arguments", errUsage)
	}
	items, err := c.List(ctx)
	if err != nil {
		return err
	}
	printItems(stdout, items)
	return nil
}

func runGet(ctx context.Context, c *client.Client, args []string, stdout io.Writer) error {
	id, err := singleID("get", args)
	if err != nil {
		return err
	}
	item, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	printItem(stdout, *item)
	return nil
}

func runCreate(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	var name, description string
	fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&name, "name", "", "item name (required)")
	fs.StringVar(&description, "description", "", "item description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: create takes no positional arguments", errUsage)
	}

	item, err := c.Create(ctx, name, description)
	if err != nil {
		return err
	}
	ok(stdout, "created "+item.ID)
	printItem(stdout, *item)
	return nil
}

func runUpdate(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	var name, description string
	fs := pflag.NewFlagSet("update", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&name, "name", "", "new item name")
	fs.StringVar(&description, "description", "", "new item description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := singleID("update", fs.Args())
	if err != nil {
		return err
	}

	// Only flags given on the command line are sent.
	var patch model.ItemPatch
	if fs.Changed("name") {
		patch.Name = &name
	}
	if fs.Changed("description") {
		patch.Description = &description
	}

	item, err := c.Update(ctx, id, patch)
	if err != nil {
		return err
	}
	ok(stdout, "updated "+item.ID)
	printItem(stdout, *item)
	return nil
}

func runDelete(ctx context.Context, c *client.Client, args []string, stdout io.Writer) error {
	id, err := singleID("delete", args)
	if err != nil {
		return err
	}
	item, err := c.Delete(ctx, id)
	if err != nil {
		return err
	}
	ok(stdout, "deleted "+item.ID)
	return nil
}

func singleID(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s takes exactly one ID", errUsage, cmd)
	}
	return args[0], nil
}
