package main

import (
	"github.com/pitkley/watchpost"
	"github.com/pitkley/watchpost/_example/checks/queue"
	"github.com/pitkley/watchpost/_example/checks/website"
	"github.com/pitkley/watchpost/_example/environments"
)

func main() {
	watchpost.RegisterEnvironments(environments.Prod, environments.Staging)
	watchpost.RegisterDefaultStrategy(watchpost.DetectImpossibleCombination())

	website.Register()
	queue.Register()

	watchpost.Execute()
}
