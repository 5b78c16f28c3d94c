// Package cli - командная строка material-service: HTTP-сервер и разовые
// операции над каталогом.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"material-service/internal/app"
	"material-service/internal/config"
)

var (
	// Version задаётся при сборке.
	Version = "0.1.0"

	catalogPath string
	logLevel    string

	cfg    config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "material-service",
	Short: "Busca de materiais semelhantes e duplicados no catálogo",
	Long: `material-service carrega o catálogo de materiais (csv, xlsx, xls ou sqlite),
procura duplicados e responde consultas por similaridade léxica ou semântica.

Sem subcomando inicia o servidor HTTP.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if catalogPath != "" {
			cfg.CatalogPath = catalogPath
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger = config.SetupLogger(cfg)
		return nil
	},
	RunE: runServe,
}

// newApp собирает сервис по текущей конфигурации.
func newApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return a, nil
}

// Execute запускает корневую команду.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&catalogPath, "catalogo", "c", "", "arquivo do catálogo (sobrepõe CATALOG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "", "nível de log (sobrepõe LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(duplicatesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(embeddingsCmd)
}
