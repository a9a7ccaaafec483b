package config

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blackrose-eve/eve-oauth2/core"
)

var logBackends = map[string]func(w io.Writer, level string) (core.Logger, error){
	"zap":     newZap,
	"zerolog": newZerolog,
	"logrus":  newLogrus,
}

// Logger builds the configured logger writing JSON lines to w.
func (s *Settings) Logger(w io.Writer) (core.Logger, error) {
	build, ok := logBackends[s.Log.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown log backend %q", s.Log.Backend)
	}
	return build(w, s.Log.Level)
}

func newZap(w io.Writer, level string) (core.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	l := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
	return core.NewZapLogger(l.Sugar()), nil
}

func newZerolog(w io.Writer, level string) (core.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return core.NewZerologLogger(zerolog.New(w).Level(lvl).With().Timestamp().Logger()), nil
}

func newLogrus(w io.Writer, level string) (core.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.JSONFormatter{})
	return core.NewLogrusLogger(l), nil
}
