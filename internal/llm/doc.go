// Package llm provides single-turn chat clients used for structure
// classification and boundary refinement.
//
// AnthropicClient talks to the Messages API directly. LangChainClient wraps
// any langchaingo model and backs the Ollama and OpenAI providers.
// RateLimited bounds request rate and concurrency for any Provider.
//
// Replies are free text; ExtractJSON pulls the first valid JSON object or
// array out of them.
package llm
