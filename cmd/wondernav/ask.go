package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"wondernav/internal/handlers"
)

func newAskCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <query...>",
		Short: "Answer one query through the chat store and print the body",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configFile, false)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.handler.Handle(cmd.Context(), handlers.Request{Body: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status %d: %s", resp.StatusCode, resp.Body)
			}

			fmt.Fprintln(cmd.OutOrStdout(), resp.Body)
			return nil
		},
	}
}
