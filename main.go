package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"sectorsguard/src/bootstrap"
	"sectorsguard/src/database"
	"sectorsguard/src/server"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger(config database.Config) {
	level, err := logger.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	if strings.EqualFold(config.LogFormat, "json") {
		logger.SetFormatter(&logger.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	_ = godotenv.Load()
	SetupLogger(database.GetConfig())
	defer handlePanic()

	app, err := bootstrap.FromEnv()
	if err != nil {
		logger.WithError(err).Fatal("Failed to start validation engine")
	}

	server.StartServer(server.GetConfig().Port, server.NewRouter(app.Routes()))
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
