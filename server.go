package main

import (
	"coachlink/api/routes"
	"coachlink/config"
	"coachlink/db"
	"coachlink/services"
	"context"
	"flag"
	"fmt"
	"log"

	"coachlink/api/handlers"
	"coachlink/api/middleware"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	log.Println("Starting server...")

	err = db.ConnectDB()
	if err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}

	ctx := context.Background()

	if err := services.InitRedis(); err != nil {
		log.Printf("Warning: Redis initialization failed: %v", err)
	}

	if err := services.InitRabbitMQ(); err != nil {
		log.Printf("Warning: RabbitMQ initialization failed: %v", err)
	}

	repairQueue := handlers.InitRequestHandlers(ctx)
	if services.RedisClient != nil {
		repairQueue.StartWorkers(ctx)
	}

	if services.Bus != nil {
		remote := services.NewGormRemote(services.Bus)
		if _, err := services.StartRequestEventNotifier(ctx, remote, services.Bus); err != nil {
			log.Printf("Warning: failed to start request event notifier: %v", err)
		}
	}

	router := gin.Default()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware("coachlink"))

	routes.PublicApi(router)

	addr := ":8080"
	if config.AppConfig.Backend.Port != 0 {
		addr = fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	}
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
