package main

import (
	"os"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/check"
	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/conf"
	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/extract"
	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/generate"
	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/inspect"
)

var rootCmd = &cobra.Command{
	Use:           "abpgen",
	Short:         "abpgen: Generate ABP Framework CRUD modules.",
	Long:          `abpgen: Generate ABP Framework CRUD modules from a versioned template corpus.`,
	Version:       release,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	conf.ToolVersion = release

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default ./"+conf.ConfigName+".yaml)")
	pf.String("templates", "", "template corpus directory overriding the embedded one")
	pf.String("log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(generate.CmdGenerate)
	rootCmd.AddCommand(inspect.CmdList)
	rootCmd.AddCommand(inspect.CmdPlaceholders)
	rootCmd.AddCommand(check.CmdValidate)
	rootCmd.AddCommand(extract.CmdExtract)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.NewHelper(log.NewStdLogger(os.Stderr)).Fatal(err)
	}
}
