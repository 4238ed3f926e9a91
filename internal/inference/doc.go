// Package inference provides the vision completion backends used by the
// frame cascade: a local Ollama client that serves both the triage and
// detailed model tiers, and an OpenAI-compatible remote fallback that ships
// frames as image_url data URIs with retry/backoff on transient provider
// failures.
package inference
