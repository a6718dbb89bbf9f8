// Package service implements the conversation orchestration and
// tool-invocation loop.
package service

import (
	"shopchat/internal/adapter/llm"
	"shopchat/internal/config"
	"shopchat/internal/repository"
	"shopchat/policy"
)

type Service struct {
	store        store.Store
	llmClient    llm.CompletionClient
	policyEngine *policy.Engine
	config       *config.Config
	locks        *sessionLocks
}

func New(store store.Store, llmClient llm.CompletionClient, policyEngine *policy.Engine, cfg *config.Config) *Service {
	return &Service{
		store:        store,
		llmClient:    llmClient,
		policyEngine: policyEngine,
		config:       cfg,
		locks:        newSessionLocks(),
	}
}
