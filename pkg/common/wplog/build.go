package wplog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-slog/otelslog"
	"github.com/pkg/errors"
	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// wplogHandler decorates the base handler with context attrs (see ContextWith)
// and filters records of infra components. Components are marked with the
// "component" attr; values prefixed with "infra:" belong to watchpost
// internals and can be silenced below a configured level, so that user check
// logs stay readable.
type wplogHandler struct {
	c                 Config
	hasInfraComponent bool
	slog.Handler
}

func newWplogHandler(c Config, h slog.Handler) *wplogHandler {
	return &wplogHandler{c: c, Handler: h, hasInfraComponent: false}
}

func getComponent(attrs []slog.Attr) (string, bool) {
	for _, attr := range attrs {
		if attr.Key == "component" {
			if attr.Value.Kind() != slog.KindString {
				return "", true
			}

			return attr.Value.String(), true
		}
	}

	return "", false
}

func isInfraComponentAttr(attr slog.Attr) bool {
	if attr.Value.Kind() != slog.KindString {
		return false
	}

	return attr.Key == "component" && strings.HasPrefix(attr.Value.String(), "infra:")
}

func (h *wplogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := getAttrs(ctx)

	isInfraLog := h.hasInfraComponent
	r.Attrs(func(attr slog.Attr) bool {
		if isInfraComponentAttr(attr) {
			isInfraLog = true
			return false
		}

		return true
	})

	if slices.ContainsFunc(attrs, isInfraComponentAttr) {
		isInfraLog = true
	}

	if isInfraLog && h.c.Filter.Infra.Enabled && r.Level < h.c.Filter.Infra.level {
		// infra log below the configured level, skip
		return nil
	}

	r.AddAttrs(attrs...)
	return h.Handler.Handle(ctx, r)
}

func (h *wplogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nextHandler := h.Handler.WithAttrs(attrs)

	component, componentFound := getComponent(attrs)
	if !componentFound {
		// component not changed, keep the same state
		return &wplogHandler{Handler: nextHandler, c: h.c, hasInfraComponent: h.hasInfraComponent}
	}

	newIsInfra := strings.HasPrefix(component, "infra:")
	return &wplogHandler{Handler: nextHandler, c: h.c, hasInfraComponent: newIsInfra}
}

func (h *wplogHandler) WithGroup(name string) slog.Handler {
	return &wplogHandler{Handler: h.Handler.WithGroup(name), c: h.c, hasInfraComponent: h.hasInfraComponent}
}

func MustBuild(c Config) *slog.Logger {
	logger, err := Build(c)
	if err != nil {
		panic("cannot build logger: " + err.Error())
	}

	return logger
}

// Build constructs the application logger: slog in front, zap encoding
// behind, otelslog on top so records carry the active trace id. The built
// logger is installed as the slog default.
func Build(c Config) (*slog.Logger, error) {
	zapC := zap.NewProductionConfig()

	if c.Level == "" {
		c.Level = "info"
	}
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse log level %q", c.Level)
	}
	zapC.Level.SetLevel(lvl)

	zapC.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	zapC.OutputPaths = []string{"stdout"}

	if c.Mode == "" {
		c.Mode = "json"
	}

	switch c.Mode {
	case "console":
		zapC.Encoding = "console"
	case "json":
		zapC.Encoding = "json"
	default:
		return nil, errors.Errorf("unknown logging mode %q, allowed options are only [console, json]", c.Mode)
	}

	zapLogger := zap.Must(zapC.Build())

	slogLvl := zapLevelToSlogLevel(lvl)
	base := slogzap.Option{Level: slogLvl, Logger: zapLogger}.NewZapHandler()

	if c.Filter.Infra.Level == "" {
		c.Filter.Infra.Level = slog.LevelWarn.String()
	}
	infraLevel, err := parseSlogLevel(c.Filter.Infra.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse filter.infra.level %q", c.Filter.Infra.Level)
	}
	c.Filter.Infra.level = infraLevel

	ctxHandler := newWplogHandler(c, base)
	otelHandler := otelslog.NewHandler(ctxHandler)

	l := slog.New(otelHandler)
	slog.SetDefault(l)

	return l, nil
}

func parseSlogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err == nil {
		return lvl, nil
	}

	// zap level names (e.g. "warn", "dpanic") are accepted too
	zapLvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return 0, err
	}

	return zapLevelToSlogLevel(zapLvl), nil
}

func zapLevelToSlogLevel(lvl zapcore.Level) slog.Level {
	zapLvlToSlogLvl := reverseMap(slogzap.LogLevels)
	if slogLvl, found := zapLvlToSlogLvl[lvl]; found {
		return slogLvl
	}

	// zap has levels above error (dpanic, panic, fatal) with no slog analog
	if lvl > zapcore.ErrorLevel {
		return slog.LevelError
	}

	panic(fmt.Sprintf("zap level %s cannot be mapped to a slog level", lvl))
}

func reverseMap[TKey comparable, TValue comparable](mp map[TKey]TValue) map[TValue]TKey {
	ret := make(map[TValue]TKey, len(mp))
	for k, v := range mp {
		ret[v] = k
	}

	return ret
}
