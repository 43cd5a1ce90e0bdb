// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the repository
// writer.
//
// Configuration is loaded from a single file named either by the
// REPOWRITE_CONFIG environment variable (via [Load]) or explicitly
// (via [LoadFile]). There is no automatic file search. YAML is the
// primary format; files ending in .json or .jsonc are accepted with
// comments and trailing commas.
//
// The file may contain environment-specific sections (development,
// staging, production) that override individual [FlowConfig] fields
// when [Config].Environment matches.
//
// Command-line tools layer flags on top with [FlowConfig.BindFlags]:
//
//	cfg, err := config.LoadFile(path)
//	cfg.Flow.BindFlags(pflag.CommandLine)
//	pflag.Parse()
//	err = cfg.Validate()
//
// This package depends on no other repowrite packages.
package config
