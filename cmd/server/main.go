package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/tourmates/backend/internal/auth"
	"github.com/tourmates/backend/internal/db"
	"github.com/tourmates/backend/internal/handlers"
	"github.com/tourmates/backend/internal/notify"
	"github.com/tourmates/backend/internal/trip"
	"github.com/tourmates/backend/internal/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded configuration from .env")
	}
	log.SetFormatter(&log.JSONFormatter{})

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.Info("Connected to MongoDB")

	database := db.Database(client)
	trips := &db.MongoTripCollection{Collection: database.Collection("trips")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}
	notifications := &db.MongoNotificationCollection{Collection: database.Collection("notifications")}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}

	hub := ws.NewHub()
	go hub.Run()

	broker, err := notify.ConnectBroker()
	if err != nil {
		// The sink runs without the MQTT leg; notifications still persist.
		log.WithError(err).Warn("Failed to connect to MQTT broker")
	} else if broker != nil {
		log.Info("Connected to MQTT broker")
	}
	sink := notify.NewSink(notifications, broker, hub)

	engine := trip.NewEngine(trips, users, sink, nil, nil)

	router := handlers.NewRouter(
		authService,
		handlers.NewAuthHandler(authService, users),
		handlers.NewTripHandler(engine, trips, users),
		handlers.NewNotificationHandler(notifications),
		hub,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	// No global read/write timeouts: they would tear down long-lived
	// websocket connections.
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Shutdown error")
	}
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Error("MongoDB disconnect error")
	}
}
