package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/saolsen/gameplay/internal/agent"
)

// AgentsCmd lists the agents hosted by an agent service.
type AgentsCmd struct {
	URL     string        `arg:"" default:"http://localhost:8080/agent" env:"GAMEPLAY_AGENT_URL" help:"Agent service URL"`
	Timeout time.Duration `default:"10s" help:"Request timeout"`
}

func (c *AgentsCmd) Run(g *Globals) error {
	logger := g.Logger(log.WarnLevel)
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	names, err := agent.NewClient(c.URL, logger).List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Printf("%s#%s\n", c.URL, name)
	}
	return nil
}
