package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"material-service/internal/extract"
	"material-service/internal/fileio"
	"material-service/internal/matching/model"
	"material-service/internal/matching/service"
	"material-service/internal/middleware"
	"material-service/internal/retrain"
)

// ScoreMinDefault - порог /buscar, если score_min не передан.
const ScoreMinDefault = 100

// Сообщения ответов.
const (
	msgAlive            = "API de Materiais funcionando!"
	msgCatalogEmpty     = "Base de dados não carregada corretamente."
	msgEntitiesMissing  = "Não foi possível encontrar todas as entidades no texto original."
	msgFeedbackSave     = "Erro ao salvar o feedback."
	msgRetrainStarted   = "Feedback recebido. Processo de re-treinamento iniciado."
	msgRetrainRunning   = "Feedback recebido. Um processo de re-treinamento já está em andamento."
	msgRetrainQueued    = "Feedback recebido. Re-treinamento agendado para depois do processo em andamento."
	msgChatInternal     = "Ocorreu um erro interno ao processar sua solicitação."
	msgDescriptionEmpty = "O campo descricao é obrigatório."
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Deps - всё, что нужно обработчикам.
type Deps struct {
	Engine    *service.Engine
	Extractor *extract.Manager
	Feedback  *retrain.FeedbackStore
	Retrain   *retrain.Coordinator
	Reload    func() *service.Snapshot
	Logger    zerolog.Logger
}

// Status - GET /.
func Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, zerolog.Nop(), http.StatusOK, statusMessage{Status: "ok", Message: msgAlive})
	}
}

type searchRequest struct {
	Description string     `json:"descricao"`
	Unit        string     `json:"um"`
	Family      flexString `json:"familia"`
}

type searchResponse struct {
	Input    model.Query         `json:"entrada"`
	Strategy model.Strategy      `json:"estrategia"`
	Columns  []string            `json:"colunas"`
	Results  []model.QueryResult `json:"resultados"`
}

// Search - POST /buscar. Параметры поиска в query: top_n, score_min,
// estrategia (lexical|semantic).
func Search(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := middleware.RequestLogger(d.Logger, r)

		var req searchRequest
		if err := decodeJSON(r, &req, false); err != nil {
			writeDetail(w, log, http.StatusBadRequest, "JSON inválido: "+err.Error())
			return
		}
		q := model.Query{
			Description: strings.TrimSpace(req.Description),
			Unit:        strings.ToUpper(strings.TrimSpace(req.Unit)),
			Family:      string(req.Family),
		}
		if q.Description == "" {
			writeDetail(w, log, http.StatusBadRequest, msgDescriptionEmpty)
			return
		}

		cfg := d.Engine.Config()
		strategy := cfg.Strategy
		if s := r.URL.Query().Get("estrategia"); s != "" {
			strategy = model.Strategy(strings.ToLower(s))
		}
		defMin := cfg.Search.MinScore
		if strategy == model.StrategyLexical {
			defMin = ScoreMinDefault
		}
		opt := model.SearchOptions{
			TopN:     atoi(r.URL.Query().Get("top_n"), cfg.Search.TopN),
			MinScore: toFloat(r.URL.Query().Get("score_min"), defMin),
		}

		if len(d.Engine.Snapshot().Records) == 0 {
			writeDetail(w, log, http.StatusServiceUnavailable, msgCatalogEmpty)
			return
		}
		res, err := d.Engine.SearchWith(r.Context(), q, strategy, opt)
		if err != nil {
			writeSearchError(w, log, err)
			return
		}

		writeJSON(w, log, http.StatusOK, searchResponse{
			Input:    q,
			Strategy: strategy,
			Columns:  model.ResultColumns,
			Results:  res,
		})
		log.Info().
			Str("strategy", string(strategy)).
			Int("results", len(res)).
			Dur("elapsed", time.Since(start)).
			Msg("search done")
	}
}

func writeSearchError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownStrategy):
		writeDetail(w, log, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSemanticUnavailable), errors.Is(err, service.ErrEmbeddingsMisaligned):
		writeDetail(w, log, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeDetail(w, log, http.StatusServiceUnavailable, "serviço ocupado, tente novamente")
	default:
		log.Error().Err(err).Msg("search failed")
		writeDetail(w, log, http.StatusInternalServerError, "Erro interno: "+err.Error())
	}
}

type chatRequest struct {
	Message string `json:"mensagem"`
}

type chatResponse struct {
	Status      string              `json:"status"`
	Input       string              `json:"entrada_chat"`
	Entities    extract.Fields      `json:"entidades_extraidas"`
	Suggestions []model.QueryResult `json:"sugestoes"`
}

// Chat - POST /chat: свободный текст → поля → поиск.
func Chat(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.RequestLogger(d.Logger, r)

		var req chatRequest
		if err := decodeJSON(r, &req, false); err != nil {
			writeDetail(w, log, http.StatusBadRequest, "JSON inválido: "+err.Error())
			return
		}

		fields := d.Extractor.Extract(req.Message)
		q, err := fields.Query()
		if err != nil {
			writeJSON(w, log, http.StatusOK, statusMessage{Status: "erro", Message: extract.MsgDescriptionNotFound})
			return
		}

		res, err := d.Engine.Search(r.Context(), q)
		if err != nil {
			if errors.Is(err, service.ErrSemanticUnavailable) || errors.Is(err, service.ErrEmbeddingsMisaligned) {
				writeDetail(w, log, http.StatusServiceUnavailable, err.Error())
				return
			}
			log.Error().Err(err).Str("mensagem", req.Message).Msg("chat search failed")
			writeDetail(w, log, http.StatusInternalServerError, msgChatInternal)
			return
		}

		writeJSON(w, log, http.StatusOK, chatResponse{
			Status:      "sucesso",
			Input:       req.Message,
			Entities:    fields,
			Suggestions: res,
		})
	}
}

type feedbackRequest struct {
	Text     string               `json:"texto_original"`
	Entities []retrain.Correction `json:"entidades_corretas"`
}

type feedbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"mensagem"`
	Retrain string `json:"treinamento"`
	ID      string `json:"id"`
}

// Feedback - POST /feedback-ner. Пример сохраняется до попытки запустить
// обучение; ответ не ждёт его окончания.
func Feedback(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.RequestLogger(d.Logger, r)

		var req feedbackRequest
		if err := decodeJSON(r, &req, false); err != nil {
			writeDetail(w, log, http.StatusBadRequest, "JSON inválido: "+err.Error())
			return
		}

		fb, err := retrain.BuildFeedback(req.Text, req.Entities)
		if err != nil {
			log.Warn().Err(err).Msg("feedback rejected")
			writeDetail(w, log, http.StatusBadRequest, msgEntitiesMissing)
			return
		}
		if err := d.Feedback.Append(fb); err != nil {
			log.Error().Err(err).Msg("feedback save failed")
			writeDetail(w, log, http.StatusInternalServerError, msgFeedbackSave)
			return
		}

		started := d.Retrain.TryStart()
		msg := msgRetrainStarted
		switch started {
		case retrain.AlreadyRunning:
			msg = msgRetrainRunning
		case retrain.Queued:
			msg = msgRetrainQueued
		}
		log.Info().Str("feedback_id", fb.ID).Stringer("retrain", started).Msg("feedback saved")
		writeJSON(w, log, http.StatusOK, feedbackResponse{
			Status:  "sucesso",
			Message: msg,
			Retrain: started.String(),
			ID:      fb.ID,
		})
	}
}

type duplicatesRequest struct {
	Threshold        *float64 `json:"limiar"`
	UnitBonus        *float64 `json:"bonus_um"`
	Window           *int     `json:"janela"`
	EmptyUnitMatches *bool    `json:"um_vazia_igual"`
	Metric           string   `json:"metrica"`
}

func (req duplicatesRequest) options(def model.DuplicateOptions) (model.DuplicateOptions, error) {
	opt := def
	if req.Threshold != nil {
		opt.Threshold = *req.Threshold
	}
	if req.UnitBonus != nil {
		opt.UnitBonus = *req.UnitBonus
	}
	if req.Window != nil {
		opt.Window = *req.Window
	}
	if req.EmptyUnitMatches != nil {
		opt.EmptyUnitMatches = *req.EmptyUnitMatches
	}
	if req.Metric != "" {
		switch m := model.Metric(strings.ToLower(req.Metric)); m {
		case model.MetricJaroWinkler, model.MetricDamerau:
			opt.Metric = m
		default:
			return opt, fmt.Errorf("métrica desconhecida: %q", req.Metric)
		}
	}
	return opt, nil
}

// Duplicates - POST /duplicados. По умолчанию JSON-отчёт; ?formato=xlsx|csv
// отдаёт файл.
func Duplicates(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.RequestLogger(d.Logger, r)

		var req duplicatesRequest
		if err := decodeJSON(r, &req, true); err != nil {
			writeDetail(w, log, http.StatusBadRequest, "JSON inválido: "+err.Error())
			return
		}
		opt, err := req.options(d.Engine.Config().Duplicates)
		if err != nil {
			writeDetail(w, log, http.StatusBadRequest, err.Error())
			return
		}
		format := strings.ToLower(r.URL.Query().Get("formato"))
		if format != "" && format != "json" && format != "xlsx" && format != "csv" {
			writeDetail(w, log, http.StatusBadRequest, "formato desconhecido: "+format)
			return
		}

		rep, err := d.Engine.Duplicates(r.Context(), opt)
		if err != nil {
			writeSearchError(w, log, err)
			return
		}

		if format == "" || format == "json" {
			writeJSON(w, log, http.StatusOK, rep)
			return
		}

		filename := "duplicados." + format
		var buf bytes.Buffer
		if err := fileio.WriteDuplicates(&buf, filename, rep); err != nil {
			log.Error().Err(err).Msg("export duplicates")
			writeDetail(w, log, http.StatusInternalServerError, "Erro ao gerar o arquivo.")
			return
		}
		ct := xlsxContentType
		if format == "csv" {
			ct = "text/csv; charset=utf-8"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			log.Error().Err(err).Msg("write report")
		}
	}
}

type reloadResponse struct {
	Status   string    `json:"status"`
	Source   string    `json:"origem"`
	Records  int       `json:"registros"`
	Semantic bool      `json:"semantica"`
	Warning  string    `json:"aviso,omitempty"`
	LoadedAt time.Time `json:"carregado_em"`
}

// Reload - POST /catalogo/recarregar: перечитать каталог и подменить срез.
func Reload(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.RequestLogger(d.Logger, r)
		snap := d.Reload()
		resp := reloadResponse{
			Status:   "ok",
			Source:   snap.Source,
			Records:  len(snap.Records),
			Semantic: snap.Semantic != nil,
			LoadedAt: snap.LoadedAt,
		}
		if snap.SemanticErr != nil {
			resp.Warning = snap.SemanticErr.Error()
		}
		status := http.StatusOK
		if len(snap.Records) == 0 {
			resp.Status = "erro"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, log, status, resp)
	}
}
