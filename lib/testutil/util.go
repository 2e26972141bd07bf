// Copyright (c) 2018 Yandex LLC. All rights reserved.
// Use of this source code is governed by a MPL 2.0
// license that can be found in the LICENSE file.
// Author: Vladimir Skipor <skipor@yandex-team.ru>

package testutil

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// NewLogger and ReplaceGlobalLogger live in ginkgo.go: every spec file
// in this module runs under testutil.RunSuite, so the Ginkgo-writer
// variant is the only one any caller needs.

func NewNullLogger() *zap.Logger {
	c, _ := observer.New(zap.InfoLevel)
	return zap.New(c)
}
