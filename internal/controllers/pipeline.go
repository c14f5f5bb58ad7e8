package controllers

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Result is the structured outcome of one pipeline run.
type Result struct {
	Refresh *RefreshResult
	Render  *RenderResult
}

// Pipeline composes the refresh and render passes in-process, in order.
// Everything below it contains its own failures, so the only error out of a
// run is an unrecoverable setup problem such as an uncreatable notes folder.
type Pipeline struct {
	refresh *RefreshController
	render  *RenderController
	logger  *logrus.Logger
}

// NewPipeline creates a new pipeline
func NewPipeline(refresh *RefreshController, render *RenderController, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		refresh: refresh,
		render:  render,
		logger:  logger,
	}
}

// Run refreshes the catalog cache, then renders notes.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	refreshResult := p.refresh.RefreshAll(ctx)

	renderResult, err := p.render.RenderAll()
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"refreshed": refreshResult.Refreshed,
		"resolved":  refreshResult.Resolved,
		"written":   renderResult.Written,
		"unchanged": renderResult.Unchanged,
	}).Info("Pipeline completed")

	return &Result{Refresh: refreshResult, Render: renderResult}, nil
}
