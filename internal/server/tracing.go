package server

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanNameSeparatorConstant     = " "
	targetAttributeKeyConstant    = "http.target"
	writeResponseTemplateConstant = "write response: %w"
)

// statusWriter records the status code written through it.
type statusWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

func (writer *statusWriter) WriteHeader(statusCode int) {
	if !writer.written {
		writer.statusCode = statusCode
		writer.written = true
	}
	writer.ResponseWriter.WriteHeader(statusCode)
}

func (writer *statusWriter) Write(buffer []byte) (int, error) {
	if !writer.written {
		writer.statusCode = http.StatusOK
		writer.written = true
	}
	writtenCount, writeError := writer.ResponseWriter.Write(buffer)
	if writeError != nil {
		return writtenCount, fmt.Errorf(writeResponseTemplateConstant, writeError)
	}
	return writtenCount, nil
}

// Unwrap lets http.ResponseController reach the underlying writer, which the relay needs to flush.
func (writer *statusWriter) Unwrap() http.ResponseWriter {
	return writer.ResponseWriter
}

// TracingMiddleware starts a server span named "METHOD /path" for every request.
// Incoming W3C trace context is honored and 5xx responses mark the span as failed.
func TracingMiddleware(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		parentContext := otel.GetTextMapPropagator().Extract(request.Context(), propagation.HeaderCarrier(request.Header))

		spanContext, span := tracer.Start(parentContext, request.Method+spanNameSeparatorConstant+request.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(request.Method),
				attribute.String(targetAttributeKeyConstant, request.URL.Path),
			),
		)
		defer span.End()

		recordingWriter := &statusWriter{ResponseWriter: responseWriter}
		next.ServeHTTP(recordingWriter, request.WithContext(spanContext))

		statusCode := recordingWriter.statusCode
		if !recordingWriter.written {
			statusCode = http.StatusOK
		}
		span.SetAttributes(semconv.HTTPResponseStatusCode(statusCode))
		if statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(statusCode))
		}
	})
}
