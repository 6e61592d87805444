// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the OpenAI-compatible chat completions client.
//
// The client speaks to any endpoint exposing the /chat/completions and
// /models routes: the official OpenAI API, LocalAI, vLLM, proxies. Provider
// identity (base URL, key, model) comes from the configured ModelProvider;
// the conversation supplies per-request generation parameters.
//
// # Key Types
//
//   - Client: configured against one provider at a time
//   - Result: one streaming update; Message always carries the full
//     accumulated content so far under a stable message id
//
// # Usage
//
//	c := chat.NewClient(provider, log)
//	results, err := c.SendStream(ctx, conv.Messages, conv.ModelConfig)
//	if err != nil { ... }
//	for r := range results {
//	    if r.Err != nil { ... }
//	    render(r.Message) // replace by id, never append
//	}
//
// STREAMING: each Result snapshot repeats the whole buffer. Consumers
// replace the message with the matching id instead of concatenating, so a
// dropped update can never corrupt the rendered text.
package chat
