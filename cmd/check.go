package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"adfilter/adblock"

	"github.com/spf13/cobra"
)

var (
	checkDomain     string
	checkThirdParty string
	checkLists      []string
)

var checkCmd = &cobra.Command{
	Use:   "check URL...",
	Short: "检查 URL 是否被拦截",
	Long: `检查 URL 是否被拦截。

默认使用配置中各规则源已缓存的副本；指定 --list 时只使用给定的过滤列表文件。`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mctx := adblock.MatchContext{CurrentDomain: checkDomain}
		switch checkThirdParty {
		case "":
		case "true", "yes", "1":
			v := true
			mctx.IsThirdParty = &v
		case "false", "no", "0":
			v := false
			mctx.IsThirdParty = &v
		default:
			return fmt.Errorf("invalid --third-party value: %s", checkThirdParty)
		}

		check, err := newChecker(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, u := range args {
			if err := enc.Encode(check(u, mctx)); err != nil {
				return err
			}
		}
		return nil
	},
}

// newChecker 根据 --list 决定使用临时规则集还是配置中的规则源
func newChecker(ctx context.Context) (func(string, adblock.MatchContext) adblock.TestResult, error) {
	if len(checkLists) > 0 {
		sets := make([]*adblock.RuleSet, 0, len(checkLists))
		for _, name := range checkLists {
			rs, _, err := parseFile(name, os.Stdin)
			if err != nil {
				return nil, err
			}
			sets = append(sets, rs)
		}

		engine := adblock.NewNativeEngine()
		if err := engine.Load(adblock.MergeRuleSets("cli", sets...)); err != nil {
			return nil, err
		}
		return func(u string, mctx adblock.MatchContext) adblock.TestResult {
			return adblock.NewTestResult(u, engine.Check(u, mctx))
		}, nil
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.AdBlock.Enable = true
	cfg.AdBlock.WatchFiles = false

	mgr, err := adblock.NewManager(&cfg.AdBlock, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := mgr.LoadRulesFromCache(ctx); err != nil {
		return nil, err
	}
	return mgr.CheckURL, nil
}

func init() {
	checkCmd.Flags().StringVarP(&checkDomain, "domain", "d", "", "当前页面域名")
	checkCmd.Flags().StringVar(&checkThirdParty, "third-party", "", "请求是否为第三方 (true/false)，默认未知")
	checkCmd.Flags().StringSliceVarP(&checkLists, "list", "l", nil, "过滤列表文件，可重复")
}
