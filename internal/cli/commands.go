package cli

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"medical-access-ledger/internal/domain/identity"

	"github.com/spf13/cobra"
)

func newRecordCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Registro médico propio o de un paciente",
	}

	var (
		name, history, document string
		age                     int
	)
	put := &cobra.Command{
		Use:   "put",
		Short: "Crear o actualizar mi registro",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			return c.call(cmd.Context(), cmd.OutOrStdout(), http.MethodPut, "/me/record", map[string]any{
				"name":            name,
				"age":             age,
				"medical_history": history,
				"document_ref":    document,
			})
		},
	}
	put.Flags().StringVar(&name, "name", "", "nombre (requerido)")
	put.Flags().IntVar(&age, "age", 0, "edad, 1..149 (requerido)")
	put.Flags().StringVar(&history, "history", "", "historia clínica (requerido)")
	put.Flags().StringVar(&document, "document", "", "hash del documento (opcional)")
	_ = put.MarkFlagRequired("name")
	_ = put.MarkFlagRequired("age")
	_ = put.MarkFlagRequired("history")

	get := &cobra.Command{
		Use:   "get [patient]",
		Short: "Leer un registro (sin argumento: el mío)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patient, err := patientArg(g, args)
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			return c.call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/patients/"+patient+"/record", nil)
		},
	}

	cmd.AddCommand(put, get)
	return cmd
}

func newAccessCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Permisos de médicos sobre mi registro",
	}

	grant := &cobra.Command{
		Use:   "grant <doctor>",
		Short: "Dar acceso de lectura a un médico",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doctor, err := identity.Parse(args[0])
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			return c.call(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, "/me/doctors", map[string]string{"doctor": doctor.String()})
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <doctor>",
		Short: "Revocar el acceso de un médico",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doctor, err := identity.Parse(args[0])
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			return c.call(cmd.Context(), cmd.OutOrStdout(), http.MethodDelete, "/me/doctors/"+doctor.String(), nil)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Médicos con acceso, en orden de grant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			return c.call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/me/doctors", nil)
		},
	}

	entries := &cobra.Command{
		Use:   "entries",
		Short: "Todas mis entries de permiso, incluidas las revocadas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			return c.call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/me/grants", nil)
		},
	}

	cmd.AddCommand(grant, revoke, list, entries)
	return cmd
}

func newEventsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Log de eventos",
	}

	var limit int
	cmd.PersistentFlags().IntVar(&limit, "limit", 50, "máximo de eventos")

	recent := &cobra.Command{
		Use:   "recent",
		Short: "Eventos más recientes primero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			q := url.Values{"limit": {strconv.Itoa(limit)}}
			return c.call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/events?"+q.Encode(), nil)
		},
	}

	var from, to uint64
	rng := &cobra.Command{
		Use:   "range",
		Short: "Eventos entre --from y --to, ascendente",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			q := url.Values{
				"limit": {strconv.Itoa(limit)},
				"from":  {strconv.FormatUint(from, 10)},
			}
			if cmd.Flags().Changed("to") {
				q.Set("to", strconv.FormatUint(to, 10))
			}
			return c.call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/events?"+q.Encode(), nil)
		},
	}
	rng.Flags().Uint64Var(&from, "from", 1, "sequence inicial")
	rng.Flags().Uint64Var(&to, "to", 0, "sequence final (default: el último)")

	patient := &cobra.Command{
		Use:   "patient [patient]",
		Short: "Traza de auditoría de un paciente (sin argumento: la mía)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := patientArg(g, args)
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			q := url.Values{"limit": {strconv.Itoa(limit)}}
			return c.call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/patients/"+p+"/events?"+q.Encode(), nil)
		},
	}

	cmd.AddCommand(recent, rng, patient)
	return cmd
}

// patientArg toma el paciente del argumento o, si falta, de --as.
func patientArg(g *globalFlags, args []string) (string, error) {
	raw := g.as
	if len(args) == 1 {
		raw = args[0]
	}
	if raw == "" {
		return "", errors.New("patient is required (argument or --as)")
	}
	k, err := identity.Parse(raw)
	if err != nil {
		return "", err
	}
	return k.String(), nil
}
