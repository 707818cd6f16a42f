/**
 * @description
 * This is the main entry point for the account intake service. It is
 * responsible for initializing all components of the service: configuration,
 * the Salesforce client, the RabbitMQ producer, the pipeline service and the
 * HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/joho/godotenv: Loads a local .env file during development.
 * - internal/api, internal/app, internal/config: Internal packages for the service.
 * - pkg/salesforce: Client for the Salesforce REST API.
 * - pkg/rabbitmq: Producer for the event exchange.
 */

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/salesbridge/account-service/internal/api"
	"github.com/salesbridge/account-service/internal/app"
	"github.com/salesbridge/account-service/internal/config"
	"github.com/salesbridge/account-service/pkg/rabbitmq"
	"github.com/salesbridge/account-service/pkg/salesforce"
)

func main() {
	// Load .env if present; in deployed environments configuration comes
	// from real environment variables.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found, relying on environment\"")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	log.Printf("level=info component=bootstrap msg=\"starting account-service\" port=%s", cfg.ServerPort)

	// The event channel is the system of record for creation attempts, so a
	// producer is required for the service to be useful at all.
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.EventsExchange)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"rabbitmq producer unavailable\" err=%v", err)
	}
	defer producer.Close()
	log.Printf("level=info component=bootstrap msg=\"rabbitmq producer connected\" exchange=%s", cfg.EventsExchange)

	sfClient := salesforce.NewClient(cfg.SalesforceInstanceURL, cfg.SalesforceAccessToken)

	service := app.NewService(sfClient, producer, cfg.EventsRoutingKey)
	handler := api.NewHandler(service)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=bootstrap msg=\"server failed\" err=%v", err)
		}
	}()
	log.Printf("level=info component=bootstrap msg=\"server listening\" addr=%s", server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("level=info component=bootstrap msg=\"shutting down\"")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=bootstrap msg=\"graceful shutdown failed\" err=%v", err)
	}
	log.Println("Server gracefully stopped")
}
