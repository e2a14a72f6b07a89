package logging

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Values logged under these keys are masked before they reach a sink.
var sensitiveKeys = map[string]struct{}{
	"email":          {},
	"national_id":    {},
	"contact_number": {},
	"date_of_birth":  {},
	"address":        {},
	"password":       {},
}

func traceFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// zapFields turns alternating key/value args into fields. A non-string key
// becomes "arg" and a trailing key without value is kept as null.
func zapFields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, (len(args)+1)/2+2)
	for len(args) > 0 {
		key, _ := args[0].(string)
		if key == "" {
			key = "arg"
		}
		if len(args) == 1 {
			fields = append(fields, zap.Any(key, nil))
			break
		}
		fields = append(fields, field(key, args[1]))
		args = args[2:]
	}
	return fields
}

func field(key string, value any) zap.Field {
	if _, ok := sensitiveKeys[key]; ok {
		return zap.String(key, mask(value))
	}
	if err, ok := value.(error); ok {
		return zap.NamedError(key, err)
	}
	return zap.Any(key, value)
}

// mask keeps the domain of an email and the last two characters of anything
// else.
func mask(value any) string {
	s, ok := value.(string)
	if !ok {
		return "[redacted]"
	}
	s = strings.TrimSpace(s)
	switch at := strings.LastIndex(s, "@"); {
	case at > 0:
		_, first := utf8.DecodeRuneInString(s)
		return s[:first] + "***" + s[at:]
	case utf8.RuneCountInString(s) <= 4:
		return "***"
	default:
		runes := []rune(s)
		return "***" + string(runes[len(runes)-2:])
	}
}
