// Package transport delivers composed messages to external gateways.
//
// Every channel goes through a Sender. The HTTP gateway posts a small JSON
// document per message and classifies the response: 2xx is delivered, most
// 4xx responses are definitive rejections (ErrRejected), and network errors,
// 408, 429 and 5xx responses are uncertain because the gateway may or may not
// have acted. Callers use that split to decide whether a key may be retried.
//
// Channels without an endpoint fall back to LogSender, which records the
// message through slog and reports success.
package transport
