package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"moodlekit.dev/pkg/moodlekit/internal/controller"
	"moodlekit.dev/pkg/moodlekit/pkg/client"
)

const callLongDescription = `Call invokes a web-service function by its dotted path. Path segments are joined
with underscores and converted to snake_case, so core.webservice.getSiteInfo calls
core_webservice_get_site_info.

The argument is a JSON object given inline or read from stdin with "-". The response
body is printed as indented JSON.

The token is read from --token, MOODLEKIT_CLIENT_TOKEN or client.token in moodlekit.yaml.`

// callCmd represents the call command.
var callCmd = newCallCmd()

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <dotted.path> [json-argument|-]",
		Short: "Call a Moodle web-service function",
		Long:  callLongDescription,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg, err := readCallArgument(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}

			c, err := client.New(client.Options{
				BaseURL:    viper.GetString(clientBaseURLKey),
				Token:      viper.GetString(clientTokenKey),
				Debug:      viper.GetBool(clientDebugKey),
				HTTPClient: &http.Client{Timeout: clientTimeout()},
				Logger:     slog.Default(),
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			call := c.ParsePath(args[0])

			if err := ui.Start(ctx, controller.WithMode(controller.ModeCall)); err != nil {
				return err
			}
			defer ui.Close(ctx)

			slog.Info("Calling web-service function", "procedure", call.Procedure())

			body, err := call.Raw(ctx, arg)
			if err != nil {
				return err
			}

			if err := ui.DisplayCallResult(ctx, call.Procedure(), indentBody(body)); err != nil {
				return err
			}

			ui.Wait(ctx)

			return nil
		},
	}

	cmd.Flags().String(baseURLFlagName, viper.GetString(clientBaseURLKey), "site URL, e.g. https://moodle.example")
	bindFlagToConfig(cmd.Flags().Lookup(baseURLFlagName), clientBaseURLKey)

	cmd.Flags().String(tokenFlagName, "", "web-service token")
	bindFlagToConfig(cmd.Flags().Lookup(tokenFlagName), clientTokenKey)

	cmd.Flags().Bool(debugFlagName, viper.GetBool(clientDebugKey), "log request and response bodies")
	bindFlagToConfig(cmd.Flags().Lookup(debugFlagName), clientDebugKey)

	cmd.Flags().String(timeoutFlagName, viper.GetString(clientTimeoutKey), "request timeout")
	bindFlagToConfig(cmd.Flags().Lookup(timeoutFlagName), clientTimeoutKey)

	return cmd
}

// readCallArgument decodes the optional JSON argument. "-" reads it from in.
func readCallArgument(in io.Reader, args []string) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	raw := []byte(args[0])

	if args[0] == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read argument from stdin: %w", err)
		}

		raw = data
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var arg any
	if err := dec.Decode(&arg); err != nil {
		return nil, fmt.Errorf("invalid JSON argument: %w", err)
	}

	if _, ok := arg.(map[string]any); !ok && arg != nil {
		return nil, fmt.Errorf("%w: argument must be a JSON object", client.ErrInvalidArgument)
	}

	return arg, nil
}

// indentBody pretty-prints JSON bodies and returns anything else unchanged.
func indentBody(body []byte) []byte {
	if len(strings.TrimSpace(string(body))) == 0 {
		return body
	}

	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return body
	}

	return out.Bytes()
}

func init() {
	rootCmd.AddCommand(callCmd)
}
