// Package openai provides an ai.Embedder implementation using
// OpenAI-compatible APIs.
//
// It uses the langchaingo library to communicate with OpenAI or
// OpenAI-compatible services (such as Ollama, LocalAI, or vLLM).
package openai
