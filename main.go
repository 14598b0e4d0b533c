package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"os"
	"os/signal"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/zarkopopovski/mood-chat/config"
	"github.com/zarkopopovski/mood-chat/controllers"
	"github.com/zarkopopovski/mood-chat/db"
	"github.com/zarkopopovski/mood-chat/llm"
	"github.com/zarkopopovski/mood-chat/middleware"
)

type Handlers struct {
	UserController *controllers.UserController
	MoodController *controllers.MoodController
	ChatController *controllers.ChatController
}

type FileSystem struct {
	fs http.FileSystem
}

func (fs FileSystem) Open(path string) (http.File, error) {
	f, err := fs.fs.Open(path)
	if err != nil {
		return nil, err
	}

	s, err := f.Stat()
	if s.IsDir() {
		index := strings.TrimSuffix(path, "/") + "/index.html"
		if _, err := fs.fs.Open(index); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env config file found, using system environment")
	}

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalln(err)
	}
	defer logger.Sync()

	dbHandler, err := db.NewDBConnection(cfg.DBPath, cfg.MigrationsURL)
	if err != nil {
		logger.Fatal("failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", cfg.DBPath))
	}

	llmClient := llm.NewClient(cfg.OllamaURL, cfg.OllamaAPIKey, cfg.OllamaModel)
	llmService := llm.NewService(llmClient, logger, cfg.ChatTimeout, cfg.ClassifyTimeout)

	validate := validator.New()

	handlers := &Handlers{
		UserController: &controllers.UserController{
			DBManager: dbHandler,
			Logger:    logger,
			Validate:  validate,
		},
		MoodController: &controllers.MoodController{
			DBManager:  dbHandler,
			LLMService: llmService,
			Logger:     logger,
			Validate:   validate,
		},
		ChatController: &controllers.ChatController{
			DBManager:  dbHandler,
			LLMService: llmService,
			Logger:     logger,
			Validate:   validate,
		},
	}

	httpRouter := http.NewServeMux()

	//USERS
	httpRouter.HandleFunc("POST /signup", handlers.UserController.Signup)
	httpRouter.HandleFunc("POST /login", handlers.UserController.Login)
	httpRouter.HandleFunc("GET /check-user/{username}", handlers.UserController.CheckUser)

	//MOOD
	httpRouter.HandleFunc("POST /detect-mood", handlers.MoodController.DetectMood)
	httpRouter.HandleFunc("GET /mood-history/{username}", handlers.MoodController.MoodHistory)

	//CHAT
	httpRouter.HandleFunc("POST /chat/start", handlers.ChatController.StartChatSession)
	httpRouter.HandleFunc("POST /chat/message", handlers.ChatController.SendMessage)
	httpRouter.HandleFunc("POST /chat/end/{sessionID}", handlers.ChatController.EndChatSession)
	httpRouter.HandleFunc("GET /chat/history/{sessionID}", handlers.ChatController.ChatHistory)
	httpRouter.HandleFunc("GET /chat/sessions/{username}", handlers.ChatController.ListSessions)

	fileServer := http.FileServer(FileSystem{http.Dir(cfg.WebDir)})
	httpRouter.Handle("/", fileServer)

	handler := cors.AllowAll().Handler(middleware.Logging(logger)(httpRouter))

	logger.Info("Start Listening", zap.String("port", cfg.Port))

	thisServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ChatTimeout + 30*time.Second,
	}

	go func() {
		if err := thisServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	thisSignalChan := <-sigChan

	logger.Info("Graceful Shutdown", zap.String("signal", thisSignalChan.String()))

	timeOutContext, canFunct := context.WithTimeout(context.Background(), 5*time.Second)
	defer canFunct()

	thisServer.Shutdown(timeOutContext)
}
