// Package generate writes outreach drafts, either through an LLM provider or
// from fixed per-style templates.
package generate
