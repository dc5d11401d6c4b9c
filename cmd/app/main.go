package main

import (
	"github.com/gatherhub/polls/core/internal/app"
	"github.com/gatherhub/polls/core/internal/config"
)

func main() {
	app.Go(config.Load())
}
