package main

import (
	"log"

	"github.com/spf13/cobra"

	"atrader/internal"
)

var (
	configFile string
	env        string
	mode       string
)

var rootCmd = &cobra.Command{
	Use:   "atrader",
	Short: "atrader - A股自动交易决策系统",
	Long:  ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		return internal.Run(internal.RunOptions{
			ConfigFile: configFile,
			Env:        env,
			Mode:       mode,
		})
	},
}

func init() {
	// 全局配置文件标志
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "运行环境 SIMULATION/PRODUCTION，覆盖配置文件")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", internal.ModeLive, "运行模式 live/backtest")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
