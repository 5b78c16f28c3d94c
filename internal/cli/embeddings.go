package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"material-service/internal/matching/model"
)

var embeddingsOutput string

var embeddingsCmd = &cobra.Command{
	Use:   "embeddings",
	Short: "Gera a matriz de embeddings do catálogo (.npy)",
	Long: `Calcula o embedding de cada descrição do catálogo com o modelo EMBEDDING_MODEL
(via ollama) e grava a matriz float32 na ordem das linhas do catálogo.

Exemplo:
  material-service embeddings -c materiais.csv --saida embeddings.npy`,
	Args: cobra.NoArgs,
	RunE: runEmbeddings,
}

func init() {
	embeddingsCmd.Flags().StringVarP(&embeddingsOutput, "saida", "o", "", "arquivo .npy (padrão EMBEDDINGS_PATH)")
}

func runEmbeddings(cmd *cobra.Command, args []string) error {
	out := embeddingsOutput
	if out == "" {
		out = cfg.EmbeddingsPath
	}
	if out == "" {
		return fmt.Errorf("no output file: set --saida or EMBEDDINGS_PATH")
	}

	// старая матрица может не совпадать с каталогом
	cfg.Strategy = model.StrategyLexical
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	rows, err := a.GenerateEmbeddings(cmd.Context(), out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d embeddings gravados em %s\n", rows, out)
	return nil
}
