// Copyright 2025 The Cymbal RAG API Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the deployment settings from the environment and
// the pipeline tuning parameters from an optional JSON file.
package config
