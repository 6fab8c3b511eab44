package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fzft/go-mock-ros/config"
	"github.com/fzft/go-mock-ros/log"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "mockros.yaml", "path to the node config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad config %s: %v\n", *cfgPath, err)
		os.Exit(1)
	}

	log.InitLogger(cfg.Log.Level)
	log.Logger.Info("starting echo node",
		zap.String("addr", cfg.Node.Addr),
		zap.String("version", NodeVersion()))

	s := NewServer(cfg)
	if err := s.Run(); err != nil {
		log.Logger.Error("node exited with error", zap.Error(err))
		os.Exit(1)
	}
}
