// Package openaicompat implements an oracle backed by an OpenAI-compatible
// Chat Completions endpoint (OpenAI, vLLM, LiteLLM and similar).
package openaicompat
