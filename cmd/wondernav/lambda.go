package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

// startLambda is replaced in tests.
var startLambda = lambda.StartWithOptions

func newLambdaCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Run the AWS Lambda runtime loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configFile, true)
			if err != nil {
				return err
			}

			a.logger.Info("starting lambda handler")

			// StartWithOptions never returns: runtime API failures exit the
			// process, and clients are released by the SIGTERM hook.
			startLambda(a.handler.Invoke,
				lambda.WithContext(cmd.Context()),
				lambda.WithEnableSIGTERM(a.Close),
			)
			return nil
		},
	}
}
