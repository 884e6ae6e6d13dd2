// Package backend connects model ids to their implementations.
//
// Neural models run in an external inference server that speaks a small
// HTTP+JSON protocol:
//
//	POST {base}/v1/score     {"model": id, "text": ...}            -> {"ai_probability": p}
//	POST {base}/v1/generate  {"model": id, "text": ..., "options"} -> {"text": ...}
//	POST {base}/v1/load      {"model": id}                         -> 2xx
//	GET  {base}/healthz                                            -> 2xx
//
// Client talks this protocol, optionally through a SOCKS5 proxy and with
// an API key header. Provider routes built-in model ids to the in-process
// rewriter and stylometric scorer and everything else to Client.
package backend
