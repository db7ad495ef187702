// Copyright 2025 ModelMesh
// SPDX-License-Identifier: Apache-2.0

/*
Package logger provides structured JSON logging for all gateway components.

Every log line is a single JSON object carrying the component name, the
deployment instance, an optional request ID, and a free-form fields map:

	log := logger.New("gateway")
	log.Info(requestID, "resolved model config", map[string]interface{}{
		"alias":    alias,
		"provider": cfg.Provider,
	})

Output goes to stdout by default so the surrounding container runtime owns
shipping and retention. Tests can redirect it with SetOutput.
*/
package logger
