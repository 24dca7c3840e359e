// Package backend provides the text-generation backends used by the audit pipeline.
//
// Two HTTP implementations are available (OpenAI chat completions and Anthropic
// messages). A Selector chooses exactly one of them at startup from explicit
// configuration or a fixed credential precedence order.
package backend
