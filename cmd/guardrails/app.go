package main

import (
	"github.com/doylet/guardrails-ai-sub001/internal/adapters/logging"
	"github.com/doylet/guardrails-ai-sub001/internal/orchestrator"
)

// newOrchestrator wires one Orchestrator per invocation from the
// persistent root flags, the way app.New(out) is built fresh per command
// in the teacher CLI.
func newOrchestrator() *orchestrator.Orchestrator {
	o := orchestrator.New(sourceRoot, targetRoot, engineVersion, logging.NewConsole())
	o.Force = force
	return o
}

// newRequest builds the Resolver request shared by every command, wiring
// the interactive conflict prompt in when --interactive is set.
func newRequest() orchestrator.Request {
	req := orchestrator.Request{
		CorePath:       corePath,
		ProfileName:    profileName,
		EnabledPlugins: plugins,
	}
	if interactive {
		req.Callback = promptConflict
	}
	return req
}
