// Package ai provides the embedding abstraction used by the vector store.
//
// The core pipeline depends on the Embedder interface rather than a
// concrete client, so embedding providers can be swapped without touching
// business logic. Two implementation sub-packages exist:
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
package ai
