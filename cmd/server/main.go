package main

import (
	"log"

	"cardroom/internal/config"
)

func main() {
	cfg := config.Load()
	srv := NewServer(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("SERVER: exited: %v", err)
	}
}
