package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/janisto/analytics-status/internal/platform/logging"
	"github.com/janisto/analytics-status/internal/platform/respond"
	"github.com/janisto/analytics-status/internal/status"
)

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := req.RequestContext.HTTP.Method
	logger := logging.Logger().With(
		zap.String("requestId", req.RequestContext.RequestID),
		zap.String("method", method),
		zap.String("path", req.RawPath),
	)
	ctx = logging.WithTraceID(logging.WithLogger(ctx, logger), req.RequestContext.RequestID)

	if method != http.MethodGet {
		return methodNotAllowed(ctx, method)
	}
	logging.LogInfo(ctx, "request completed", zap.Int("status", http.StatusOK))
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": status.ContentType},
		Body:       string(status.Body()),
	}, nil
}

func methodNotAllowed(ctx context.Context, method string) (events.APIGatewayV2HTTPResponse, error) {
	body, err := respond.MarshalJSON(respond.Problem(http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", method)))
	if err != nil {
		logging.LogError(ctx, "problem encode failed", err)
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, err
	}
	logging.LogWarn(ctx, "request completed", zap.Int("status", http.StatusMethodNotAllowed))
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusMethodNotAllowed,
		Headers: map[string]string{
			"Allow":        http.MethodGet,
			"Content-Type": respond.ProblemJSON,
		},
		Body: string(body),
	}, nil
}

func main() {
	defer func() { _ = logging.Sync() }()
	lambda.Start(handler)
}
