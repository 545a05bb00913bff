package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medhirweb/salespipe/internal/model"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Manage pipeline stages",
}

var stagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pipeline stages in board order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stages, err := st.ListStages(ctx)
		if err != nil {
			return err
		}
		model.SortStages(stages)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "POSITION\tKEY\tNAME\tFORM\tID")
		for _, s := range stages {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.Position, s.Key, s.Name, s.FormType, s.ID)
		}
		return w.Flush()
	},
}

var (
	stageAddName     string
	stageAddColor    string
	stageAddFormType string
	stageAddPosition int
)

var stagesAddCmd = &cobra.Command{
	Use:   "add <key>",
	Short: "Add a pipeline stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		formType, err := model.ParseFormType(stageAddFormType)
		if err != nil {
			return err
		}
		name := stageAddName
		if name == "" {
			name = args[0]
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stage, err := st.CreateStage(ctx, model.Stage{
			Key:      args[0],
			Name:     name,
			Color:    stageAddColor,
			FormType: formType,
			Position: stageAddPosition,
		})
		if err != nil {
			return err
		}

		zap.L().Info("stage created",
			zap.String("key", stage.Key),
			zap.String("id", stage.ID),
		)
		return nil
	},
}

func init() {
	stagesAddCmd.Flags().StringVar(&stageAddName, "name", "", "display name (defaults to the key)")
	stagesAddCmd.Flags().StringVar(&stageAddColor, "color", "", "board color")
	stagesAddCmd.Flags().StringVar(&stageAddFormType, "form", "", "gating form type (lost, junk, converted)")
	stagesAddCmd.Flags().IntVar(&stageAddPosition, "position", 0, "board position")
	stagesCmd.AddCommand(stagesListCmd, stagesAddCmd)
	rootCmd.AddCommand(stagesCmd)
}
