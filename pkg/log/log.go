// Copyright © 2022 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sirupsen/logrus"
	"github.com/sorobangoclient/sorobanclient/pkg/confutil"
)

type ctxLogKey struct{}

var rootLogger = logrus.NewEntry(logrus.StandardLogger())
var initialized atomic.Bool

// L returns the logger bound to a context, falling back to the root logger
// if none has been attached with WithLogger.
func L(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return rootLogger
	}
	if l, ok := ctx.Value(ctxLogKey{}).(*logrus.Entry); ok {
		return l
	}
	return rootLogger
}

// WithLogger attaches a logger (typically with extra fields already set) to a context.
func WithLogger(ctx context.Context, l *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxLogKey{}, l)
}

// WithLogField attaches one extra field to whatever logger is already in the context.
// Values longer than 61 characters are truncated so log lines stay grep-able.
func WithLogField(ctx context.Context, key, value string) context.Context {
	if len(value) > 61 {
		value = value[0:61] + "..."
	}
	return WithLogger(ctx, L(ctx).WithField(key, value))
}

// EnsureInit applies the default configuration exactly once, so that libraries
// which link this package get sane logging even if the embedding application
// never calls InitConfig.
func EnsureInit() {
	if initialized.CompareAndSwap(false, true) {
		InitConfig(Defaults)
	}
}

func InitConfig(conf *Config) {
	initialized.Store(true)

	level := confutil.StringNotEmpty(conf.Level, *Defaults.Level)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	rootLogger.Logger.SetLevel(lvl)

	var out io.Writer
	switch confutil.StringNotEmpty(conf.Output, *Defaults.Output) {
	case "file":
		out = &lumberjack.Logger{
			Filename:   confutil.StringNotEmpty(conf.File.Filename, *Defaults.File.Filename),
			MaxSize:    int(confutil.ByteSize(conf.File.MaxSize, 0, *Defaults.File.MaxSize) / (1024 * 1024)),
			MaxBackups: confutil.IntMin(conf.File.MaxBackups, 0, *Defaults.File.MaxBackups),
			Compress:   confutil.Bool(conf.File.Compress, *Defaults.File.Compress),
		}
	case "stdout":
		out = os.Stdout
	default:
		out = os.Stderr
	}
	rootLogger.Logger.SetOutput(out)

	setFormatting(conf, out)
}

func setFormatting(conf *Config, out io.Writer) {
	timeFormat := confutil.StringNotEmpty(conf.TimeFormat, *Defaults.TimeFormat)
	switch confutil.StringNotEmpty(conf.Format, *Defaults.Format) {
	case "json":
		rootLogger.Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timeFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  confutil.StringNotEmpty(conf.JSON.TimestampField, *Defaults.JSON.TimestampField),
				logrus.FieldKeyLevel: confutil.StringNotEmpty(conf.JSON.LevelField, *Defaults.JSON.LevelField),
				logrus.FieldKeyMsg:   confutil.StringNotEmpty(conf.JSON.MessageField, *Defaults.JSON.MessageField),
				logrus.FieldKeyFunc:  confutil.StringNotEmpty(conf.JSON.FuncField, *Defaults.JSON.FuncField),
				logrus.FieldKeyFile:  confutil.StringNotEmpty(conf.JSON.FileField, *Defaults.JSON.FileField),
			},
		})
	default:
		_, isFile := out.(*lumberjack.Logger)
		forceColor := confutil.Bool(conf.ForceColor, *Defaults.ForceColor)
		disableColor := confutil.Bool(conf.DisableColor, *Defaults.DisableColor) || isFile
		rootLogger.Logger.SetFormatter(&prefixed.TextFormatter{
			ForceColors:     forceColor,
			DisableColors:   disableColor,
			ForceFormatting: true,
			TimestampFormat: timeFormat,
		})
	}
}

func IsDebugEnabled() bool {
	return rootLogger.Logger.IsLevelEnabled(logrus.DebugLevel)
}

func IsTraceEnabled() bool {
	return rootLogger.Logger.IsLevelEnabled(logrus.TraceLevel)
}

func GetLevel() string {
	return rootLogger.Logger.GetLevel().String()
}

func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	rootLogger.Logger.SetLevel(lvl)
	return nil
}
