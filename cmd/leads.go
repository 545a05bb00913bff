package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medhirweb/salespipe/internal/model"
	"github.com/medhirweb/salespipe/internal/store"
)

var (
	leadsStageID string
	leadsStatus  string
	leadsLimit   int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			StageID: leadsStageID,
			Status:  model.LeadStatus(leadsStatus),
			Limit:   leadsLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTAGE\tSTATUS\tSALES PERSON")
		for _, l := range leads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.Name, l.StageID, l.Status, l.AssignSalesPersonID)
		}
		return w.Flush()
	},
}

func init() {
	leadsCmd.Flags().StringVar(&leadsStageID, "stage", "", "filter by stage ID")
	leadsCmd.Flags().StringVar(&leadsStatus, "status", "", "filter by lead status")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 0, "maximum number of leads")
	rootCmd.AddCommand(leadsCmd)
}
