package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"material-service/internal/matching/model"
	"material-service/internal/utils"
)

var (
	searchUnit     string
	searchFamily   string
	searchTop      int
	searchMin      float64
	searchStrategy string
)

var searchCmd = &cobra.Command{
	Use:   "buscar <descricao>",
	Short: "Procura materiais parecidos com a descrição",
	Long: `Procura no catálogo os materiais mais parecidos com a descrição dada.

Exemplos:
  material-service buscar "parafuso sextavado m8" --um PC --familia 303
  material-service buscar "cabo flexivel 2,5mm" --estrategia semantic --top 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchUnit, "um", "", "unidade de medida")
	searchCmd.Flags().StringVar(&searchFamily, "familia", "", "código da família")
	searchCmd.Flags().IntVarP(&searchTop, "top", "n", 0, "quantos resultados (padrão TOP_N)")
	searchCmd.Flags().Float64Var(&searchMin, "min", 0, "pontuação mínima (padrão MIN_SCORE)")
	searchCmd.Flags().StringVar(&searchStrategy, "estrategia", "", "lexical ou semantic (padrão SEARCH_STRATEGY)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := model.Query{
		Description: strings.TrimSpace(args[0]),
		Unit:        strings.ToUpper(strings.TrimSpace(searchUnit)),
		Family:      utils.CanonicalID(searchFamily),
	}
	if q.Description == "" {
		return fmt.Errorf("empty description")
	}

	opt := cfg.SearchOptions()
	if cmd.Flags().Changed("top") {
		opt.TopN = searchTop
	}
	if cmd.Flags().Changed("min") {
		opt.MinScore = searchMin
	}
	strategy := cfg.Strategy
	if searchStrategy != "" {
		strategy = model.Strategy(strings.ToLower(searchStrategy))
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	results, err := a.Engine.SearchWith(cmd.Context(), q, strategy, opt)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "Nenhum material encontrado.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(model.ResultColumns, "\t"))
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n", r.Code, r.Description, r.Unit, r.Family, r.Score)
	}
	return tw.Flush()
}
