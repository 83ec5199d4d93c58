package main

import (
	"flag"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

func main() {
	flag.Parse()

	// Missing .env is fine, deployments set real environment.
	_ = godotenv.Load()

	server, err := Setup()
	if err != nil {
		log.Fatalf("main start failed %v", err)
		return
	}

	server.Run()
}
