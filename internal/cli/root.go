package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"medical-access-ledger/internal/platform/httpclient"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type globalFlags struct {
	server  string
	as      string
	token   string
	timeout time.Duration
}

// NewRootCmd arma ledgerctl. No usa estado global: cada llamada da un árbol nuevo.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Cliente del medical access ledger",
		Long:          "Herramienta de línea de comandos para registros médicos, permisos de médicos y el log de eventos.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("LEDGER_SERVER")
	if server == "" {
		server = defaultServer
	}

	root.PersistentFlags().StringVar(&g.server, "server", server, "URL base de la API (env LEDGER_SERVER)")
	root.PersistentFlags().StringVar(&g.as, "as", "", "identidad de debug (X-Debug-User-ID), solo en modo dev")
	root.PersistentFlags().StringVar(&g.token, "token", "", "bearer token")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 10*time.Second, "timeout por request")

	root.AddCommand(newRecordCmd(g), newAccessCmd(g), newEventsCmd(g))
	return root
}

// Execute corre ledgerctl y devuelve el código de salida.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

type client struct {
	http *httpclient.Client
}

func (g *globalFlags) client() (*client, error) {
	hc, err := httpclient.New(g.server, g.timeout)
	if err != nil {
		return nil, err
	}
	if g.token != "" {
		hc.Headers["Authorization"] = "Bearer " + g.token
	}
	if g.as != "" {
		hc.Headers["X-Debug-User-ID"] = g.as
	}
	return &client{http: hc}, nil
}

// call hace el request y escribe la respuesta JSON indentada en out.
// Un no-2xx vuelve como *httpclient.HTTPError ("403: access denied").
func (c *client) call(ctx context.Context, out io.Writer, method, path string, body any) error {
	var resp any
	if err := c.http.DoJSON(ctx, method, path, nil, body, &resp); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
