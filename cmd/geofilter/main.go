package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ruslano69/geofilter/pkg/backends/native"
	backendsql "github.com/ruslano69/geofilter/pkg/backends/sql"
	"github.com/ruslano69/geofilter/pkg/core/ast"
	"github.com/ruslano69/geofilter/pkg/core/optimize"
	"github.com/ruslano69/geofilter/pkg/frontends/cql"
	"github.com/ruslano69/geofilter/pkg/frontends/cqljson"
	"github.com/ruslano69/geofilter/pkg/frontends/fes"
)

var (
	langFlag = &cli.StringFlag{
		Name:    "lang",
		Aliases: []string{"l"},
		Usage:   "Filter language: cql, cql2-json or fes",
		Value:   "cql",
	}
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to YAML config with attribute and function mappings",
	}
)

func main() {
	cmd := &cli.Command{
		Name:  "geofilter",
		Usage: "Parse, optimize and translate OGC filter expressions",
		Flags: []cli.Flag{langFlag, configFlag},
		Commands: []*cli.Command{
			newParseCommand(),
			newOptimizeCommand(),
			newSQLCommand(),
			newEvalCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readFilter берёт текст фильтра из аргументов либо из stdin
func readFilter(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() > 0 {
		return strings.Join(cmd.Args().Slice(), " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no filter given: pass it as an argument or on stdin")
	}
	return string(data), nil
}

func parseFilter(lang, input string) (ast.Node, error) {
	switch lang {
	case "cql", "ecql":
		return cql.Parse(input)
	case "cql2-json", "cql2":
		return cqljson.Parse([]byte(input))
	case "fes", "xml":
		return fes.Parse([]byte(input))
	}
	return nil, fmt.Errorf("unknown filter language %q", lang)
}

func filterFromCommand(cmd *cli.Command) (ast.Node, error) {
	input, err := readFilter(cmd)
	if err != nil {
		return nil, err
	}
	return parseFilter(cmd.String(langFlag.Name), input)
}

func newParseCommand() *cli.Command {
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Emit the filter as CQL2-JSON instead of the tree form",
	}
	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse a filter and print its tree form",
		ArgsUsage: "<filter>",
		Flags:     []cli.Flag{jsonFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			root, err := filterFromCommand(cmd)
			if err != nil {
				return err
			}
			return printNode(root, cmd.Bool(jsonFlag.Name))
		},
	}
}

func newOptimizeCommand() *cli.Command {
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Emit the optimized filter as CQL2-JSON",
	}
	return &cli.Command{
		Name:      "optimize",
		Usage:     "Fold the constant parts of a filter",
		ArgsUsage: "<filter>",
		Flags:     []cli.Flag{jsonFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			root, err := filterFromCommand(cmd)
			if err != nil {
				return err
			}
			optimized, err := optimize.Optimize(root, nil)
			if err != nil {
				return err
			}
			return printNode(optimized, cmd.Bool(jsonFlag.Name))
		},
	}
}

func newSQLCommand() *cli.Command {
	dialectFlag := &cli.StringFlag{
		Name:    "dialect",
		Aliases: []string{"d"},
		Usage:   "SQL dialect: postgres, sqlite, mysql or mssql",
		Value:   "postgres",
	}
	return &cli.Command{
		Name:      "sql",
		Usage:     "Render a filter as a SQL WHERE condition",
		ArgsUsage: "<filter>",
		Flags:     []cli.Flag{dialectFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			root, err := filterFromCommand(cmd)
			if err != nil {
				return err
			}
			dialect, err := backendsql.DialectByName(cmd.String(dialectFlag.Name))
			if err != nil {
				return err
			}
			cfg, err := LoadConfig(cmd.String(configFlag.Name))
			if err != nil {
				return err
			}
			where, err := backendsql.ToWhere(root, dialect, backendsql.Options{
				AttributeMap: cfg.Attributes,
				FunctionMap:  cfg.Functions,
			})
			if err != nil {
				return err
			}
			fmt.Println(where)
			return nil
		},
	}
}

func newEvalCommand() *cli.Command {
	dataFlag := &cli.StringFlag{
		Name:  "data",
		Usage: "Path to a file with one JSON record per line (default: stdin)",
	}
	return &cli.Command{
		Name:      "eval",
		Usage:     "Evaluate a filter against JSON records, printing the matches",
		ArgsUsage: "<filter>",
		Flags:     []cli.Flag{dataFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("eval requires the filter as an argument")
			}
			root, err := parseFilter(cmd.String(langFlag.Name), strings.Join(cmd.Args().Slice(), " "))
			if err != nil {
				return err
			}
			cfg, err := LoadConfig(cmd.String(configFlag.Name))
			if err != nil {
				return err
			}
			predicate, err := native.Compile(root, native.Options{Attributes: cfg.Attributes})
			if err != nil {
				return err
			}

			var in io.Reader = os.Stdin
			if path := cmd.String(dataFlag.Name); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return evalRecords(predicate, in, os.Stdout)
		},
	}
}

// evalRecords фильтрует записи JSON, разделённые переводами строк
func evalRecords(predicate native.Predicate, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return fmt.Errorf("record %d: %w", line, err)
		}
		ok, err := predicate(record)
		if err != nil {
			return fmt.Errorf("record %d: %w", line, err)
		}
		if ok {
			fmt.Fprintln(out, text)
		}
	}
	return scanner.Err()
}

func printNode(node ast.Node, asJSON bool) error {
	if asJSON {
		data, err := cqljson.Encode(node)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(node.String())
	return nil
}
