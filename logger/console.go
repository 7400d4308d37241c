package logger

import (
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"
)

var levelStyles = map[zapcore.Level]lipgloss.Style{
	zapcore.DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	zapcore.InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("108")),
	zapcore.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	zapcore.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("167")).Bold(true),
}

// newConsoleEncoder builds the human-readable encoder: short time, coloured
// level, dotted component name, message, then key=value fields.
func newConsoleEncoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "component",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05"),
		EncodeLevel:      encodeLevel,
		EncodeName:       zapcore.FullNameEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func encodeLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	style, ok := levelStyles[level]
	if !ok {
		style = levelStyles[zapcore.ErrorLevel]
	}
	enc.AppendString(style.Render(level.CapitalString()[:4]))
}
