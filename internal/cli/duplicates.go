package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"material-service/internal/fileio"
	"material-service/internal/matching/model"
)

var (
	dupThreshold  float64
	dupUnitBonus  float64
	dupWindow     int
	dupMetric     string
	dupEmptyUnits bool
	dupOutput     string
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicados",
	Short: "Procura materiais duplicados no catálogo",
	Long: `Procura pares de materiais com descrições quase iguais.

Sem --saida imprime o relatório em CSV (separador ';') na saída padrão.

Exemplos:
  material-service duplicados --limiar 0.97 --saida duplicados.xlsx
  material-service duplicados -c materiais.xlsx --janela 15 --metrica damerau`,
	Args: cobra.NoArgs,
	RunE: runDuplicates,
}

func init() {
	def := model.DefaultDuplicateOptions()
	duplicatesCmd.Flags().Float64Var(&dupThreshold, "limiar", def.Threshold, "pontuação mínima do par")
	duplicatesCmd.Flags().Float64Var(&dupUnitBonus, "bonus-um", def.UnitBonus, "bônus quando a UM coincide")
	duplicatesCmd.Flags().IntVar(&dupWindow, "janela", def.Window, "janela de vizinhança")
	duplicatesCmd.Flags().StringVar(&dupMetric, "metrica", string(def.Metric), "jarowinkler ou damerau")
	duplicatesCmd.Flags().BoolVar(&dupEmptyUnits, "um-vazia-igual", false, "UM vazias contam como iguais")
	duplicatesCmd.Flags().StringVarP(&dupOutput, "saida", "o", "", "arquivo de saída (.xlsx ou .csv)")
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	opt := cfg.Duplicates
	flags := cmd.Flags()
	if flags.Changed("limiar") {
		opt.Threshold = dupThreshold
	}
	if flags.Changed("bonus-um") {
		opt.UnitBonus = dupUnitBonus
	}
	if flags.Changed("janela") {
		opt.Window = dupWindow
	}
	if flags.Changed("um-vazia-igual") {
		opt.EmptyUnitMatches = dupEmptyUnits
	}
	if flags.Changed("metrica") {
		switch m := model.Metric(strings.ToLower(dupMetric)); m {
		case model.MetricJaroWinkler, model.MetricDamerau:
			opt.Metric = m
		default:
			return fmt.Errorf("unknown metric %q", dupMetric)
		}
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	rep, err := a.Engine.Duplicates(cmd.Context(), opt)
	if err != nil {
		return fmt.Errorf("duplicates: %w", err)
	}

	if dupOutput == "" {
		return fileio.WriteDuplicatesCSV(cmd.OutOrStdout(), rep)
	}
	f, err := os.Create(dupOutput)
	if err != nil {
		return err
	}
	if err := fileio.WriteDuplicates(f, dupOutput, rep); err != nil {
		_ = f.Close()
		_ = os.Remove(dupOutput)
		return fmt.Errorf("write %s: %w", dupOutput, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d pares gravados em %s\n", len(rep.Rows), dupOutput)
	return nil
}
