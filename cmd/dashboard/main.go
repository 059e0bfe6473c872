package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/inferencemax/dashboard/pkg/api"
	"github.com/inferencemax/dashboard/pkg/notifications"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	devMode := flag.Bool("dev", false, "Run in development mode")
	port := flag.Int("port", 0, "Server port (default: 8080)")
	cacheDir := flag.String("cache-dir", "", "Benchmark cache directory (default: ./.cache)")
	workflowsFile := flag.String("workflows", "", "YAML workflow catalog (default: built-in)")
	slackTest := flag.Bool("slack-test", false, "Send a test Slack alert and exit")
	flag.Parse()

	cfg := api.LoadConfigFromEnv()

	if *devMode {
		cfg.DevMode = true
	}
	if *port > 0 {
		cfg.Port = *port
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}
	if *workflowsFile != "" {
		cfg.WorkflowsFile = *workflowsFile
	}

	if *slackTest {
		if cfg.SlackWebhookURL == "" {
			log.Fatal("SLACK_WEBHOOK_URL is not set")
		}
		if err := notifications.NewSlackNotifier(cfg.SlackWebhookURL, cfg.SlackChannel).Test(); err != nil {
			log.Fatalf("Slack test failed: %v", err)
		}
		log.Println("Slack test notification sent")
		return
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down...")
		if err := server.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
