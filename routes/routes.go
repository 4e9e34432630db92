package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"productsapi/app"
	"productsapi/auth"
	"productsapi/config"
	"productsapi/handlers"
)

const requestTimeout = 60 * time.Second

// CORS middleware
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// accessLog writes one line per request.
func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}` + "\n"))
}

// NewRouter mounts every endpoint on a chi router.
func NewRouter(a *app.Application) http.Handler {
	cfg := a.Config
	log := a.Log

	productHandler := &handlers.ProductHandler{Repo: a.Products, Log: log, ScopedDelete: cfg.ScopedDelete}
	saleHandler := &handlers.SaleHandler{Repo: a.Sales, Log: log}
	authHandler := &handlers.AuthHandler{Repo: a.Users, Tokens: a.Tokens, Log: log}
	uploadHandler := &handlers.UploadHandler{Store: a.Storage, MaxBytes: cfg.Upload.MaxBytes, Log: log}
	receiptHandler := &handlers.ReceiptHandler{
		Repo:          a.Receipts,
		Log:           log,
		CurrencyMajor: cfg.CurrencyMajor,
		CurrencyMinor: cfg.CurrencyMinor,
	}

	requireToken := auth.RequireToken(a.Tokens, log)
	requireKey := auth.RequireAPIKey(cfg.Auth.APIKey)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log))
	r.Use(handlers.RecoverWrapper(log))
	r.Use(withCORS)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if cfg.Upload.Backend == config.UploadLocal {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Upload.Dir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/health", handlers.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(requireToken).Get("/me", authHandler.Me)
		})

		r.Route("/products", func(r chi.Router) {
			r.With(requireKey).Get("/search/{query}", productHandler.Search)
			r.With(requireKey).Put("/{id}/stock", productHandler.UpdateStock)

			r.With(requireToken).Get("/", productHandler.GetAll)
			r.With(requireToken).Post("/", productHandler.Create)
			r.With(requireToken).Get("/{id}", productHandler.GetByID)
			r.With(requireToken).Put("/{id}", productHandler.Update)
			if cfg.ScopedDelete {
				r.With(requireToken).Delete("/{id}", productHandler.Delete)
			} else {
				r.With(requireKey).Delete("/{id}", productHandler.Delete)
			}
		})

		r.Route("/sales", func(r chi.Router) {
			r.Use(requireKey)
			r.Get("/", saleHandler.GetAll)
			r.Post("/", saleHandler.Create)
			r.Get("/summary", saleHandler.Summary)
			r.Get("/{id}", saleHandler.GetByID)
			r.Get("/{id}/receipt", receiptHandler.SaleReceipt)
		})

		r.With(requireKey).Post("/upload", uploadHandler.Upload)

		if cfg.EnableDiagnostics {
			diagnostics := &handlers.DiagnosticsHandler{Log: log}
			r.With(requireKey).Post("/test-connection", diagnostics.TestConnection)
		}
	})

	return r
}
