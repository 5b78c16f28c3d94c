package serverhttp

import (
	"github.com/go-chi/chi/v5"

	"material-service/internal/config"
	matHnd "material-service/internal/matching/handler"
	"material-service/internal/middleware"
	"material-service/server/http/handlers"
)

func NewRouter(cfg config.Config, d matHnd.Deps) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(d.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	// health-check и статус открыты
	r.Get("/health", handlers.Health)
	r.Get("/", matHnd.Status())

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIKey))

		r.Post("/buscar", matHnd.Search(d))
		r.Post("/chat", matHnd.Chat(d))
		r.Post("/feedback-ner", matHnd.Feedback(d))
		r.Post("/duplicados", matHnd.Duplicates(d))
		r.Post("/catalogo/recarregar", matHnd.Reload(d))
	})

	return r
}
