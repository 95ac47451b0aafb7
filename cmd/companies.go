package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/registralia/borme-cli/internal/index"
	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/store"
)

var (
	companiesLimit     int
	companiesOffset    int
	companiesProvince  string
	companiesStatus    string
	companiesLegalForm string
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Query the company records",
}

var companiesSearchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Full-text search over names and corporate purposes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := index.New(st).Search(cmd.Context(), strings.Join(args, " "), companiesLimit)
		if err != nil {
			return err
		}
		return printCompanies(results)
	},
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies by structured filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := st.ListCompanies(cmd.Context(), store.CompanyFilter{
			Province:  companiesProvince,
			Status:    model.CompanyStatus(companiesStatus),
			LegalForm: companiesLegalForm,
			Limit:     companiesLimit,
			Offset:    companiesOffset,
		})
		if err != nil {
			return err
		}
		return printCompanies(results)
	},
}

var companiesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one company with its acts and officers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid company id %q", args[0])
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		c, err := st.GetCompany(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s, %s)\n  status: %s\n", c.Name, c.LegalForm, c.Province, c.Status)
		if c.Capital != nil {
			fmt.Printf("  capital: %.2f EUR\n", *c.Capital)
		}
		if c.Address != "" {
			fmt.Printf("  address: %s", c.Address)
			if c.Locality != "" {
				fmt.Printf(", %s", c.Locality)
			}
			fmt.Println()
		}
		if c.CorporatePurpose != "" {
			fmt.Printf("  purpose: %s\n", c.CorporatePurpose)
		}
		if c.SectorEstimate != "" {
			fmt.Printf("  sector (CNAE): %s\n", c.SectorEstimate)
		}
		fmt.Printf("  published: %s .. %s\n",
			c.FirstPublished.Format("2006-01-02"), c.LastPublished.Format("2006-01-02"))

		acts, err := st.ListActs(ctx, id)
		if err != nil {
			return err
		}
		if len(acts) > 0 {
			fmt.Printf("\nacts (%d):\n", len(acts))
			for _, a := range acts {
				fmt.Printf("  %s  %-14s %s (%s)\n",
					a.Published.Format("2006-01-02"), a.Type, a.Label, a.GazetteID)
			}
		}

		officers, err := st.ListOfficers(ctx, id)
		if err != nil {
			return err
		}
		if len(officers) > 0 {
			fmt.Printf("\nofficers (%d):\n", len(officers))
			for _, o := range officers {
				state := "active"
				if !o.Active {
					state = "ceased"
				}
				fmt.Printf("  %-30s %-22s %s\n", o.Name, o.Role, state)
			}
		}
		return nil
	},
}

var companiesReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the full-text search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		return index.New(st).Rebuild(cmd.Context())
	},
}

func printCompanies(results []model.Company) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFORM\tPROVINCE\tSTATUS\tCAPITAL")
	for _, c := range results {
		capital := "-"
		if c.Capital != nil {
			capital = fmt.Sprintf("%.2f", *c.Capital)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.LegalForm, c.Province, c.Status, capital)
	}
	return w.Flush()
}

func init() {
	companiesSearchCmd.Flags().IntVar(&companiesLimit, "limit", 25, "max results")
	companiesListCmd.Flags().IntVar(&companiesLimit, "limit", 25, "max results")
	companiesListCmd.Flags().IntVar(&companiesOffset, "offset", 0, "skip this many results")
	companiesListCmd.Flags().StringVar(&companiesProvince, "province", "", "filter by province")
	companiesListCmd.Flags().StringVar(&companiesStatus, "status", "", "filter by lifecycle status")
	companiesListCmd.Flags().StringVar(&companiesLegalForm, "legal-form", "", "filter by legal form (SL, SA, ...)")
	companiesCmd.AddCommand(companiesSearchCmd)
	companiesCmd.AddCommand(companiesListCmd)
	companiesCmd.AddCommand(companiesShowCmd)
	companiesCmd.AddCommand(companiesReindexCmd)
	rootCmd.AddCommand(companiesCmd)
}
