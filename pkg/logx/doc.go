// Package logx configures minirtos's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional stderr alert sink (min-level + rate limiting)
package logx
