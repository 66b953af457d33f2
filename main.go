package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/chat-relay/config"
	"github.com/example/chat-relay/modules/broadcast"
	"github.com/example/chat-relay/modules/files"
	"github.com/example/chat-relay/modules/gateway"
	"github.com/example/chat-relay/modules/media"
	"github.com/example/chat-relay/modules/registry"
)

func main() {
	log.Println("=== Chat Relay - Fiber + EventBus Pubsub ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()

	// Create modules
	registryModule := registry.NewModule(cfg.MaxRoomHistory, logger.WithModule("registry"))
	broadcastModule := broadcast.NewModule()
	mediaModule := media.NewModule(cfg.GiphyAPIKey, cfg.GiphyBaseURL)
	filesModule := files.NewModule(cfg.NATSURL, cfg.UploadBucket)
	gatewayModule := gateway.NewModule(
		gateway.Config{
			Addr:           ":" + cfg.Port,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			MaxUploadSize:  cfg.MaxUploadSize,
		},
		registryModule.Engine(),
		broadcastModule.GetHub(),
		logger.WithModule("gateway"),
	)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	app.Register(registryModule)  // Room registry + broadcast engine (event emitter)
	app.Register(broadcastModule) // WebSocket hub + event consumer
	app.Register(mediaModule)     // Gif search service
	app.Register(filesModule)     // Upload storage service
	app.Register(gatewayModule)   // HTTP/WebSocket API

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: internal pubsub (MessageSent, UserList, RoomCreated)")
	log.Printf("  - Upload storage: NATS JetStream Object Store (%s, bucket %s)", cfg.NATSURL, cfg.UploadBucket)
	log.Println("")
	log.Printf("HTTP Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health                     - Health check")
	log.Println("  POST   /upload                     - Upload a file into a room")
	log.Println("  GET    /uploads/:name              - Serve a stored upload")
	log.Println("  GET    /search-gifs?q=             - Search gifs")
	log.Println("  GET    /api/v1/rooms/:code         - Room info")
	log.Println("  GET    /api/v1/rooms/:code/history - Message history")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", cfg.Port)
	log.Println("  Message types: create_server, join_server, chat_message")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
