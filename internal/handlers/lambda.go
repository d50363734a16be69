package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"wondernav/pkg/logging"
)

// Invoke is the Lambda entry point. It tags the logger with the invocation
// identity and delegates to Handle.
func (h *ChatHandler) Invoke(ctx context.Context, req Request) (Response, error) {
	fields := []zap.Field{zap.String("function_name", lambdacontext.FunctionName)}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		fields = append(fields,
			zap.String("aws_request_id", lc.AwsRequestID),
			zap.String("function_arn", lc.InvokedFunctionArn),
		)
	}
	return h.Handle(logging.WithFields(ctx, fields...), req)
}
