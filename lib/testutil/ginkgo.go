// Copyright (c) 2017 Yandex LLC. All rights reserved.
// Use of this source code is governed by a MPL 2.0
// license that can be found in the LICENSE file.
// Author: Vladimir Skipor <skipor@yandex-team.ru>

package testutil

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/format"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chensheng12330/iSPDY/lib/zaputil"
)

func RunSuite(t *testing.T, description string) {
	format.UseStringerRepresentation = true
	ReplaceGlobalLogger()
	RegisterFailHandler(Fail)
	RunSpecs(t, description)
}

func ReplaceGlobalLogger() *zap.Logger {
	log := NewLogger()
	zap.ReplaceGlobals(log)
	zap.RedirectStdLog(log)
	return log
}

// NewLogger builds a console logger that writes to the Ginkgo writer
// and unpacks github.com/pkg/errors stack traces from error fields
// whose value carries one directly — such as the cause (Error.Err)
// that the connection engine's fail path logs with zap.Error — into
// the log line, where the console encoder would otherwise hide them.
// A *spdy.Error itself has no StackTrace method and is logged as is.
func NewLogger() *zap.Logger {
	conf := zap.NewDevelopmentConfig()
	enc := zapcore.NewConsoleEncoder(conf.EncoderConfig)
	core := zaputil.NewStackExtractCore(zapcore.NewCore(enc, zapcore.AddSync(GinkgoWriter), zap.DebugLevel))
	log := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.DPanicLevel))
	return log
}
