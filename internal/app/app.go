package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/nsqio/go-nsq"

	"studyrag/backend/features/chat"
	"studyrag/backend/features/course"
	"studyrag/backend/features/stats"
	"studyrag/backend/internal/adapter/gemini"
	"studyrag/backend/internal/adapter/pdfimage"
	"studyrag/backend/internal/adapter/redisbus"
	"studyrag/backend/internal/adapter/tesseract"
	wstore "studyrag/backend/internal/adapter/weaviate"
	"studyrag/backend/internal/config"
	"studyrag/backend/internal/document"
	"studyrag/backend/internal/middleware"
	"studyrag/backend/internal/ocr"
	"studyrag/backend/internal/pipeline"
	"studyrag/backend/internal/retrieval"
	"studyrag/backend/internal/worker"
)

// Generation parameters per prompt role. The answer model gets creative
// headroom; the query refiner is kept near-deterministic.
const (
	chatTemperature    float32 = 0.7
	chatMaxTokens      int32   = 3000
	refinerTemperature float32 = 0.3
)

type App struct {
	Handler       http.Handler
	CourseService *course.Service
	EmbedConsumer *worker.EmbedConsumer

	port int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	genaiClient *genai.Client,
	vecStore *wstore.Store,
	bus *redisbus.Bus,
	producer *nsq.Producer,
) (*App, error) {

	// Feature: Course
	courseRepo := course.NewPostgresRepo(db)
	courseService := course.NewService(courseRepo, producer, vecStore, bus)
	courseHandler := course.NewHandler(courseService, bus)

	// Feature: Retrieval
	queryLogger, err := retrieval.NewFileQueryLogger("data/logs/query.log")
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	embedder := gemini.NewEmbedder(genaiClient, cfg.EmbeddingModel)
	refiner := gemini.NewChatModel(genaiClient, cfg.ChatModel, refinerTemperature, 0)
	retrievalService := retrieval.NewService(embedder, vecStore, refiner, queryLogger)

	// Feature: Chat
	chatRepo := chat.NewPostgresRepo(db)
	chatModel := gemini.NewChatModel(genaiClient, cfg.ChatModel, chatTemperature, chatMaxTokens)
	chatService := chat.NewService(chatRepo, retrievalService, chatModel, courseService)
	chatHandler := chat.NewHandler(chatService)

	// Feature: Stats
	statsHandler := stats.NewHandler(courseRepo, chatRepo)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /courses", middleware.CorrelationID(enableCORS(courseHandler.Create)))
	mux.Handle("GET /courses", middleware.CorrelationID(enableCORS(courseHandler.List)))
	mux.Handle("GET /courses/{id}", middleware.CorrelationID(enableCORS(courseHandler.Get)))
	mux.Handle("DELETE /courses/{id}", middleware.CorrelationID(enableCORS(courseHandler.Delete)))
	mux.Handle("POST /courses/{id}/documents", middleware.CorrelationID(enableCORS(courseHandler.RegisterDocuments)))
	mux.Handle("GET /courses/{id}/documents", middleware.CorrelationID(enableCORS(courseHandler.ListDocuments)))
	mux.Handle("POST /courses/{id}/documents/{docID}/retry", middleware.CorrelationID(enableCORS(courseHandler.RetryDocument)))
	mux.Handle("GET /courses/{id}/embedding-events", middleware.CorrelationID(enableCORS(courseHandler.EmbeddingEvents)))

	mux.Handle("GET /chat/{courseID}/messages", middleware.CorrelationID(enableCORS(chatHandler.Messages)))
	mux.Handle("POST /chat/{courseID}/messages", middleware.CorrelationID(enableCORS(chatHandler.Send)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Worker (Embedding Consumer) Setup
	loader := document.NewLoader(nil)
	ocrEngine := ocr.NewEngine(pdfimage.NewExtractor(), tesseract.NewRecognizer(cfg.TesseractLang))
	processor := pipeline.NewProcessor(loader, ocrEngine, embedder, vecStore, bus)
	embedConsumer := worker.NewEmbedConsumer(processor, courseRepo, bus, cfg.JobMaxAttempts)

	return &App{
		Handler:       mux,
		CourseService: courseService,
		EmbedConsumer: embedConsumer,
		port:          cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
