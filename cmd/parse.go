package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"adfilter/adblock"
	"adfilter/cache"

	"github.com/spf13/cobra"
)

var parseJSON bool

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "解析过滤列表并输出统计（FILE 为 - 时读取标准输入）",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		for _, name := range args {
			rs, key, err := parseFile(name, cmd.InOrStdin())
			if err != nil {
				return err
			}

			if parseJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rs); err != nil {
					return err
				}
				continue
			}

			m := rs.Metadata
			fmt.Fprintf(out, "%s\n", m.Source)
			if m.Title != "" {
				fmt.Fprintf(out, "  title:      %s\n", m.Title)
			}
			fmt.Fprintf(out, "  lines:      %d\n", m.LineCount)
			fmt.Fprintf(out, "  rules:      %d (%d block, %d exception)\n", m.RuleCount, len(rs.BlockRules), len(rs.ExceptionRules))
			fmt.Fprintf(out, "  skipped:    %d\n", m.LineCount-m.RuleCount)
			fmt.Fprintf(out, "  cache key:  %s\n", key)
			if m.Truncated {
				fmt.Fprintf(out, "  truncated after %d lines\n", adblock.MaxListLines)
			}
		}
		return nil
	},
}

func parseFile(name string, stdin io.Reader) (*adblock.RuleSet, string, error) {
	r := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, adblock.MaxListBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", name, err)
	}
	if len(data) > adblock.MaxListBytes {
		return nil, "", fmt.Errorf("%s exceeds %d bytes", name, adblock.MaxListBytes)
	}

	text := string(data)
	return adblock.ParseFilterListFrom(name, text), cache.GenerateCacheKey(text), nil
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "以 JSON 输出完整的规则集")
}
