package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/ruteri/noc-monitor-publisher/cmd/flags"
	"github.com/ruteri/noc-monitor-publisher/cryptoutils"
	"github.com/ruteri/noc-monitor-publisher/interfaces"
	"github.com/ruteri/noc-monitor-publisher/monitorclient"
	"github.com/ruteri/noc-monitor-publisher/remote"
	"github.com/urfave/cli/v2"
)

var flagHost = &cli.StringFlag{
	Name:  "host",
	Value: "localhost",
	Usage: "monitor server host",
}
var flagPort = &cli.IntFlag{
	Name:  "port",
	Value: 8443,
	Usage: "monitor server port",
}
var flagUsername = &cli.StringFlag{
	Name:    "username",
	EnvVars: []string{"NOC_MONITOR_USERNAME"},
	Usage:   "login user",
}
var flagPassword = &cli.StringFlag{
	Name:    "password",
	EnvVars: []string{"NOC_MONITOR_PASSWORD"},
	Usage:   "login password",
}
var flagLocale = &cli.StringFlag{
	Name:  "locale",
	Value: "en",
	Usage: "locale passed on login",
}
var flagTimeout = &cli.DurationFlag{
	Name:  "timeout",
	Value: 30 * time.Second,
	Usage: "timeout of a single remote call",
}
var flagPath = &cli.StringFlag{
	Name:     "path",
	Required: true,
	Usage:    "slash separated labels from the root to the node, e.g. 'network/core/ping gateway'",
}

func main() {
	clientFlags := []cli.Flag{
		flagHost,
		flagPort,
		flagUsername,
		flagPassword,
		flagLocale,
		flagTimeout,
		flags.LogJsonFlag,
		flags.LogDebugFlag,
		flags.LogUidFlag,
		flags.LogServiceFlagFn("monitor-client"),
	}
	clientFlags = append(clientFlags, flags.TLSFlags...)

	app := &cli.App{
		Name:  "monitor-client",
		Usage: "Inspect a published monitor tree",
		Flags: clientFlags,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list names bound in the server's registry",
				Action: listNames,
			},
			{
				Name:   "tree",
				Usage:  "print every node with its alert state",
				Action: printTree,
			},
			{
				Name:   "show",
				Usage:  "print the results of one node",
				Flags:  []cli.Flag{flagPath},
				Action: showNode,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) (*remote.Client, error) {
	logger := flags.SetupLogger(cCtx)

	identity, err := flags.LoadTLSIdentity(cCtx, "localhost")
	if err != nil {
		logger.Error("Failed to load TLS material", "err", err)
		return nil, err
	}
	csf, err := cryptoutils.NewClientSocketFactory(identity, "")
	if err != nil {
		logger.Error("Failed to create client socket factory", "err", err)
		return nil, err
	}
	return remote.NewClient(csf, &remote.ClientConfig{
		Timeout: cCtx.Duration(flagTimeout.Name),
		Log:     logger,
	})
}

func login(cCtx *cli.Context, client *remote.Client) (*monitorclient.Node, error) {
	monitor, err := monitorclient.Dial(cCtx.Context, client, cCtx.String(flagHost.Name), cCtx.Int(flagPort.Name))
	if err != nil {
		return nil, err
	}
	return monitor.Login(cCtx.Context, cCtx.String(flagLocale.Name), cCtx.String(flagUsername.Name), cCtx.String(flagPassword.Name))
}

func listNames(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	names, err := client.List(cCtx.Context, cCtx.String(flagHost.Name), cCtx.Int(flagPort.Name))
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func printTree(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	root, err := login(cCtx, client)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Path", "Kind", "Alert", "Message"})
	table.SetAutoWrapText(false)
	err = monitorclient.Walk(cCtx.Context, root, func(info *monitorclient.NodeInfo) error {
		table.Append([]string{
			strings.Join(info.Path, "/"),
			info.Kind.String(),
			info.AlertLevel.String(),
			info.AlertMessage,
		})
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

var errNodeFound = errors.New("node found")

func findNode(ctx context.Context, root *monitorclient.Node, path string) (*monitorclient.Node, error) {
	var found *monitorclient.Node
	err := monitorclient.Walk(ctx, root, func(info *monitorclient.NodeInfo) error {
		if strings.Join(info.Path, "/") == path {
			found = info.Node
			return errNodeFound
		}
		return nil
	})
	if found != nil {
		return found, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no node at %q", path)
}

func showNode(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	root, err := login(cCtx, client)
	if err != nil {
		return err
	}
	node, err := findNode(cCtx.Context, root, cCtx.String(flagPath.Name))
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)

	switch node.Kind() {
	case interfaces.KindSingleResult:
		result, err := node.SingleResult(cCtx.Context)
		if err != nil {
			return err
		}
		table.SetHeader([]string{"Time", "Latency", "Alert", "Report", "Error"})
		if result != nil {
			table.Append([]string{formatTime(result.Time), result.Latency.String(), result.AlertLevel.String(), result.Report, result.Error})
		}
	case interfaces.KindTableResult:
		result, err := node.TableResult(cCtx.Context)
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Println("no result yet")
			return nil
		}
		fmt.Printf("%s (latency %s)\n", formatTime(result.Time), result.Latency)
		table.SetHeader(append(append([]string{}, result.ColumnHeaders...), "Alert"))
		for i, row := range result.Rows {
			level := interfaces.AlertLevelUnknown
			if i < len(result.AlertLevels) {
				level = result.AlertLevels[i]
			}
			table.Append(append(append([]string{}, row...), level.String()))
		}
	case interfaces.KindTableMultiResult:
		headers, err := node.ColumnHeaders(cCtx.Context)
		if err != nil {
			return err
		}
		rows, err := node.Results(cCtx.Context)
		if err != nil {
			return err
		}
		table.SetHeader(append([]string{"#", "Time", "Latency", "Alert"}, headers...))
		for i, row := range rows {
			table.Append(append([]string{strconv.Itoa(i), formatTime(row.Time), row.Latency.String(), row.AlertLevel.String()}, row.Values...))
		}
	default:
		return fmt.Errorf("node %q of kind %s carries no results", cCtx.String(flagPath.Name), node.Kind())
	}
	table.Render()
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
